package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/status"
)

const (
	indentUnitConstant           = "  "
	linkArrowTemplateConstant    = " -> %s"
	countsTemplateConstant       = " %d/%d"
	stateLabelTemplateConstant   = "[%s]"
	messageTemplateConstant      = " (%s)"
	summaryTemplateConstant      = "%d repositories: %s\n"
	summaryEntryTemplateConstant = "%d %s"
	summarySeparatorConstant     = ", "
	problemsTemplateConstant     = "%d need attention\n"
	allCleanMessageConstant      = "everything is aligned\n"
	shortCommitLengthConstant    = 8
)

// StatusRenderer prints status reports as an indented tree followed by a summary line.
type StatusRenderer struct {
	writer io.Writer
	colors map[status.State]*color.Color
	path   *color.Color
	dim    *color.Color
}

// NewStatusRenderer constructs a StatusRenderer. Colors are emitted only when colorize is set.
func NewStatusRenderer(writer io.Writer, colorize bool) *StatusRenderer {
	renderer := &StatusRenderer{
		writer: writer,
		colors: map[status.State]*color.Color{
			status.StateClean:     color.New(color.FgGreen),
			status.StateOverlaid:  color.New(color.FgCyan),
			status.StateAhead:     color.New(color.FgYellow),
			status.StateBehind:    color.New(color.FgYellow),
			status.StateDiverged:  color.New(color.FgRed, color.Bold),
			status.StateModified:  color.New(color.FgYellow, color.Bold),
			status.StateUnaligned: color.New(color.FgMagenta),
			status.StateUnlinked:  color.New(color.FgMagenta),
			status.StateAbsent:    color.New(color.FgRed),
			status.StateError:     color.New(color.FgRed, color.Bold),
		},
		path: color.New(color.Bold),
		dim:  color.New(color.FgHiBlack),
	}
	for _, stateColor := range append(renderer.stateColors(), renderer.path, renderer.dim) {
		if colorize {
			stateColor.EnableColor()
		} else {
			stateColor.DisableColor()
		}
	}
	return renderer
}

// Render writes report and its summary.
func (renderer *StatusRenderer) Render(report *status.Report) {
	report.Walk(func(current *status.Report, depth int) {
		fmt.Fprintln(renderer.writer, strings.Repeat(indentUnitConstant, depth)+renderer.describe(current))
	})
	renderer.renderSummary(report.Summary())
}

func (renderer *StatusRenderer) describe(report *status.Report) string {
	var line strings.Builder
	line.WriteString(renderer.path.Sprint(invocation.DisplayPath(report.Path)))
	if report.IsLink || report.IsOverlay {
		if len(report.LinkTarget) > 0 {
			line.WriteString(renderer.dim.Sprintf(linkArrowTemplateConstant, report.LinkTarget))
		} else if report.Target.IsLink() {
			line.WriteString(renderer.dim.Sprintf(linkArrowTemplateConstant, report.Target.String()))
		}
	}
	line.WriteString(" ")
	line.WriteString(renderer.colorFor(report.State).Sprintf(stateLabelTemplateConstant, report.State))
	if report.State == status.StateAhead || report.State == status.StateBehind || report.State == status.StateDiverged {
		line.WriteString(fmt.Sprintf(countsTemplateConstant, report.AheadCount, report.BehindCount))
	}
	if revision := describeRevision(report); len(revision) > 0 {
		line.WriteString(" ")
		line.WriteString(renderer.dim.Sprint(revision))
	}
	if len(report.Message) > 0 {
		line.WriteString(fmt.Sprintf(messageTemplateConstant, report.Message))
	}
	return line.String()
}

func (renderer *StatusRenderer) renderSummary(summary status.Summary) {
	entries := make([]string, 0, len(status.OrderedStates))
	for _, state := range status.OrderedStates {
		if count := summary.Counts[state]; count > 0 {
			entries = append(entries, renderer.colorFor(state).Sprintf(summaryEntryTemplateConstant, count, state))
		}
	}
	fmt.Fprintf(renderer.writer, summaryTemplateConstant, summary.Total, strings.Join(entries, summarySeparatorConstant))
	if problems := summary.Problems(); problems > 0 {
		fmt.Fprintf(renderer.writer, problemsTemplateConstant, problems)
		return
	}
	fmt.Fprint(renderer.writer, allCleanMessageConstant)
}

func (renderer *StatusRenderer) colorFor(state status.State) *color.Color {
	if stateColor, exists := renderer.colors[state]; exists {
		return stateColor
	}
	return renderer.dim
}

func (renderer *StatusRenderer) stateColors() []*color.Color {
	stateColors := make([]*color.Color, 0, len(renderer.colors))
	for _, stateColor := range renderer.colors {
		stateColors = append(stateColors, stateColor)
	}
	return stateColors
}

func describeRevision(report *status.Report) string {
	commit := report.Commit
	if len(commit) > shortCommitLengthConstant {
		commit = commit[:shortCommitLengthConstant]
	}
	switch {
	case len(report.Branch) > 0 && len(commit) > 0:
		return report.Branch + "@" + commit
	case len(commit) > 0:
		return commit
	default:
		return report.Branch
	}
}
