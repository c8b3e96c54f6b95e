// Package k8s connects converge to the cluster under test.
//
// It builds REST configs and clientsets from kubeconfig files and generates
// DNS-safe names for resources created by tests. Readiness probes live in the
// [readiness] sub-package and tracked resource creation in [resources].
package k8s
