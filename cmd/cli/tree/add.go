package tree

import (
	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/shared"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	addUseConstant              = "add <path>"
	addShortDescriptionConstant = "Declare and clone a child repository"
	addLongDescriptionConstant  = "add declares the repository given by --url at <path> in the manifest of the nearest enclosing repository, clones it with its own children, and ignores it in the enclosing repository. The declaration is withdrawn when the clone fails."
	addURLFlagNameConstant      = "url"
	addURLFlagUsage             = "Repository to clone"
	addBranchFlagUsage          = "Branch to check out"
	addCommitFlagNameConstant   = "commit"
	addCommitFlagUsage          = "Commit to pin the repository to"
	addArgumentCountConstant    = 1
)

// AddCommandBuilder assembles the add command.
type AddCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
}

// Build constructs the add command.
func (builder *AddCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   addUseConstant,
		Short: addShortDescriptionConstant,
		Long:  addLongDescriptionConstant,
		Args:  cobra.ExactArgs(addArgumentCountConstant),
	}

	var url, commit string
	command.Flags().StringVar(&url, addURLFlagNameConstant, "", addURLFlagUsage)
	command.Flags().StringVar(&commit, addCommitFlagNameConstant, "", addCommitFlagUsage)
	branch := flagutils.BindBranchFlag(command, addBranchFlagUsage)
	if markError := command.MarkFlagRequired(addURLFlagNameConstant); markError != nil {
		return nil, markError
	}

	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, url, *branch, commit)
	}
	return command, nil
}

func (builder *AddCommandBuilder) run(command *cobra.Command, arguments []string, url string, branch string, commit string) error {
	sourceURL, urlError := shared.NewRemoteURL(url)
	if urlError != nil {
		return failures.Aborted(urlError)
	}
	branchRevision, branchError := shared.ParseRevisionOptional(branch)
	if branchError != nil {
		return failures.Aborted(branchError)
	}
	commitRevision, commitError := shared.ParseRevisionOptional(commit)
	if commitError != nil {
		return failures.Aborted(commitError)
	}

	runtime, runtimeError := newRuntime(command, builder.LoggerProvider, builder.ConfigurationProvider, builder.Collaborators)
	if runtimeError != nil {
		return failures.Aborted(runtimeError)
	}
	resolved, resolveError := runtime.resolveTree()
	if resolveError != nil {
		return resolveError
	}
	nodePath, pathError := runtime.treePath(resolved, arguments[0])
	if pathError != nil {
		return pathError
	}
	engine, engineError := runtime.engine(false)
	if engineError != nil {
		return engineError
	}

	entry := manifest.RepoEntry{URL: sourceURL.String(), Branch: branchRevision, Commit: commitRevision}
	return runtime.finish(engine.AddRepository(command.Context(), resolved, nodePath, entry))
}
