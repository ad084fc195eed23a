// Package flags binds the flags shared by gitp commands to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
)

const (
	// ForceFlagName exposes the shared force flag name.
	ForceFlagName = "force"
	// ForceFlagShorthand provides the shorthand for the force flag.
	ForceFlagShorthand = "f"
	// BranchFlagName exposes the shared branch flag name.
	BranchFlagName = "branch"
	// BranchFlagShorthand provides the shorthand for the branch flag.
	BranchFlagShorthand = "b"
	// JobsFlagName exposes the parallelism flag name.
	JobsFlagName = "jobs"
	// JobsFlagShorthand provides the shorthand for the jobs flag.
	JobsFlagShorthand = "j"
	// JobsFlagUsage describes the parallelism flag purpose.
	JobsFlagUsage = "Maximum number of git operations running at once"
	// RemoteFlagName exposes the shared remote flag name.
	RemoteFlagName = "remote"
	// RemoteFlagUsage describes the shared remote flag purpose.
	RemoteFlagUsage = "Remote fetched and pulled from"
)

// TreeFlagValues stores values of the flags that tune every tree operation.
type TreeFlagValues struct {
	Jobs   int
	Remote string
}

// BindTreeFlags attaches the persistent jobs and remote flags to command.
func BindTreeFlags(command *cobra.Command, defaults TreeFlagValues) *TreeFlagValues {
	values := defaults
	if command == nil {
		return &values
	}
	persistentFlagSet := command.PersistentFlags()
	if persistentFlagSet.Lookup(JobsFlagName) == nil {
		persistentFlagSet.IntVarP(&values.Jobs, JobsFlagName, JobsFlagShorthand, defaults.Jobs, JobsFlagUsage)
	}
	if persistentFlagSet.Lookup(RemoteFlagName) == nil {
		persistentFlagSet.StringVar(&values.Remote, RemoteFlagName, defaults.Remote, RemoteFlagUsage)
	}
	return &values
}

// BindBranchFlag attaches the branch flag with the provided usage and returns its value holder.
func BindBranchFlag(command *cobra.Command, usage string) *string {
	var branch string
	if command == nil {
		return &branch
	}
	command.Flags().StringVarP(&branch, BranchFlagName, BranchFlagShorthand, "", usage)
	return &branch
}

// BindForceFlag attaches the force toggle with the provided usage and returns its value holder.
func BindForceFlag(command *cobra.Command, usage string) *bool {
	var force bool
	if command == nil {
		return &force
	}
	AddToggleFlag(command.Flags(), &force, ForceFlagName, ForceFlagShorthand, false, usage)
	return &force
}
