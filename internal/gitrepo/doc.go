// Package gitrepo contains the git operations tree synchronization relies on.
//
// RepositoryManager drives the git executable through execshell for every
// mutating or network-bound operation (clone, fetch, checkout, fast-forward
// pull) so that the invocation environment reaches each process. Inspector
// reads repository state with go-git for status reporting without spawning
// processes.
package gitrepo
