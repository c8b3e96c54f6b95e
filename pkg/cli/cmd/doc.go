// Package cmd provides the converge command-line interface.
//
// The root command carries the shared flags and delegates to:
//   - wait: block until a node, deployment, pod or API server is ready
//   - watch: keep re-checking readiness in the background and report changes
//   - config: show the effective configuration
//   - version: print build information
package cmd
