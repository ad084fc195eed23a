package tree

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/ui"
)

const (
	statusUseConstant              = "status"
	statusShortDescriptionConstant = "Report how every repository of the tree differs from its declaration"
	statusLongDescriptionConstant  = "status inspects the entry-point repository and every declared child without changing anything and prints one line per node: clean, ahead, behind, diverged, modified, unaligned, absent, unlinked, overlaid, or error."
)

// StatusCommandBuilder assembles the status command.
type StatusCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
	// ColorProvider reports whether output should be colored. Nil follows terminal detection.
	ColorProvider func() bool
}

// Build constructs the status command.
func (builder *StatusCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   statusUseConstant,
		Short: statusShortDescriptionConstant,
		Long:  statusLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *StatusCommandBuilder) run(command *cobra.Command, arguments []string) error {
	runtime, runtimeError := newRuntime(command, builder.LoggerProvider, builder.ConfigurationProvider, builder.Collaborators)
	if runtimeError != nil {
		return failures.Aborted(runtimeError)
	}
	resolved, resolveError := runtime.resolveTree()
	if resolveError != nil {
		return resolveError
	}

	report, statusError := runtime.aggregator().Status(command.Context(), resolved)
	if statusError != nil {
		return failures.Aborted(statusError)
	}

	colorize := !color.NoColor
	if builder.ColorProvider != nil {
		colorize = builder.ColorProvider()
	}
	ui.NewStatusRenderer(command.OutOrStdout(), colorize).Render(report)
	return failures.FromFailures(resolved.Failures())
}
