// Package client holds in-process collaborators that converge tests drive
// alongside the cluster:
//
//   - stake: an in-memory stake validator with cache latency simulation
package client
