// Package readiness turns cluster state into probes for the converge waiters.
//
// Probes (NodeReady, DeploymentReady, PodReady, ...) are plain wait.Probe
// values: lookup errors are returned as-is and the waiter treats them as "not
// yet". The WaitFor* helpers bind a probe to a wait.Spec and enrich timeouts
// with a summary of failing pods.
//
// Key features:
//   - Node, deployment and pod readiness probes and waits
//   - Concurrent multi-resource waits (WaitForResources)
//   - API server reachability and stability (WaitForAPIServer, WaitForAPIServerStable)
//   - Failing pod diagnostics (DiagnosePodFailures)
//   - Cluster overview (Info)
package readiness
