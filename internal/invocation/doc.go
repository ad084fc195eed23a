// Package invocation carries the per-command context threaded through tree
// resolution and synchronization: the invocation identifier, the entry-point
// root directory, and the path of the node currently being processed.
package invocation
