// Package failures defines the failure kinds shared by manifest resolution and
// tree synchronization, the (path, kind, message) tuples surfaced to callers,
// and the mapping from outcomes to process exit codes.
package failures
