package shared

// CleanWorktreePolicy describes expectations for repository cleanliness before a directory is replaced.
type CleanWorktreePolicy int

const (
	// CleanWorktreeRequired refuses to replace directories holding local changes.
	CleanWorktreeRequired CleanWorktreePolicy = iota
	// CleanWorktreeOptional allows local changes to be discarded.
	CleanWorktreeOptional
)

// CleanWorktreePolicyFromForce converts a --force flag into a policy value.
func CleanWorktreePolicyFromForce(force bool) CleanWorktreePolicy {
	if force {
		return CleanWorktreeOptional
	}
	return CleanWorktreeRequired
}

// RequireClean reports whether a clean worktree is mandatory.
func (policy CleanWorktreePolicy) RequireClean() bool {
	return policy == CleanWorktreeRequired
}
