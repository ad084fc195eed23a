package treesync

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/execshell"
	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/tree"
)

const (
	execHookConstant              = "exec"
	execPlannedTemplateConstant   = "PLAN-EXEC: %s $ %s\n"
	execCompletedTemplateConstant = "EXEC: %s $ %s\n"
	execSkippedTemplateConstant   = "EXEC-SKIP: %s (%s)\n"
	execAbsentReasonConstant      = "not cloned"
	execLinkedReasonTemplate      = "linked to %s"
	execStartedMessageConstant    = "Running command"
	invalidFilterTemplateConstant = "invalid filter %q: %w"
	execMatchAllPatternConstant   = ".*"
	execTargetSeparatorConstant   = ", "
)

var (
	// ErrNoCommands indicates that Exec was asked to run nothing.
	ErrNoCommands = errors.New("no commands specified")

	// ErrNoMatchingRepositories indicates that the exec selection matched no node.
	ErrNoMatchingRepositories = errors.New("no repository matches the selection")
)

// ExecOptions select the nodes commands run in. Without targets or filters every node is selected.
// Filters are regular expressions matched against node paths, with "." standing for the root.
type ExecOptions struct {
	Commands []string
	Targets  []string
	Filters  []string
	Modified bool
	Links    bool
	Preview  bool
}

type execSelection struct {
	node       *tree.Node
	skipReason string
}

// Exec runs every command, in order, in every selected node. Nodes that are not cloned, and links
// unless Links is set, are reported and skipped. A failing command is recorded for its node and the
// remaining nodes still run it.
func (engine *Engine) Exec(executionContext context.Context, resolved *tree.Tree, options ExecOptions) (Result, error) {
	commands := make([]string, 0, len(options.Commands))
	for _, command := range options.Commands {
		if trimmed := strings.TrimSpace(command); len(trimmed) > 0 {
			commands = append(commands, trimmed)
		}
	}
	if len(commands) == 0 {
		return Result{}, ErrNoCommands
	}
	selections, selectionError := engine.selectExecNodes(executionContext, resolved, options)
	if selectionError != nil {
		return Result{}, selectionError
	}

	state := newRun()
	for _, command := range commands {
		for _, selection := range selections {
			if executionContext.Err() != nil {
				return state.result(resolved), executionContext.Err()
			}
			displayPath := invocation.DisplayPath(selection.node.Path())
			if len(selection.skipReason) > 0 {
				engine.reporter.Printf(execSkippedTemplateConstant, displayPath, selection.skipReason)
				continue
			}
			if options.Preview {
				engine.reporter.Printf(execPlannedTemplateConstant, displayPath, command)
				continue
			}
			if commandError := engine.execIn(executionContext, resolved, selection.node, command); commandError != nil {
				engine.fail(state, selection.node.Path(), commandError)
				continue
			}
			engine.reporter.Printf(execCompletedTemplateConstant, displayPath, command)
		}
	}
	return state.result(resolved), nil
}

func (engine *Engine) execIn(executionContext context.Context, resolved *tree.Tree, node *tree.Node, command string) error {
	engine.logger.Debug(execStartedMessageConstant, zap.String(pathLogFieldConstant, invocation.DisplayPath(node.Path())), zap.String(commandLogFieldConstant, command))
	details := execshell.CommandDetails{
		WorkingDirectory:     node.Directory(),
		EnvironmentVariables: resolved.Invocation().WithNode(node.Path()).Environment(),
	}
	executionError := engine.external(executionContext, func() error {
		_, runError := engine.hooks.ExecuteShell(executionContext, command, details)
		return runError
	})
	if executionError != nil {
		return HookFailureError{Path: node.Path(), Hook: execHookConstant, Command: command, Err: executionError}
	}
	return nil
}

// selectExecNodes walks the tree in pre-order and keeps the nodes named by a target or matched by a
// filter, narrowed to nodes with local changes when requested.
func (engine *Engine) selectExecNodes(executionContext context.Context, resolved *tree.Tree, options ExecOptions) ([]execSelection, error) {
	filterTexts := options.Filters
	if len(filterTexts) == 0 && len(options.Targets) == 0 {
		filterTexts = []string{execMatchAllPatternConstant}
	}
	filters := make([]*regexp.Regexp, 0, len(filterTexts))
	for _, filterText := range filterTexts {
		filter, compileError := regexp.Compile(filterText)
		if compileError != nil {
			return nil, fmt.Errorf(invalidFilterTemplateConstant, filterText, compileError)
		}
		filters = append(filters, filter)
	}
	unresolved := make(map[string]bool, len(options.Targets))
	for _, target := range options.Targets {
		unresolved[invocation.NormalizePath(target)] = true
	}

	var selections []execSelection
	for _, node := range resolved.Nodes() {
		targeted := unresolved[node.Path()]
		delete(unresolved, node.Path())
		if !targeted && !matchesAny(filters, invocation.DisplayPath(node.Path())) {
			continue
		}
		skipReason, reasonError := engine.execSkipReason(node, options.Links)
		if reasonError != nil {
			return nil, reasonError
		}
		if options.Modified {
			if len(skipReason) > 0 || node.IsLink() {
				continue
			}
			dirty, dirtyError := engine.repositoryModified(executionContext, resolved, node)
			if dirtyError != nil {
				return nil, dirtyError
			}
			if !dirty {
				continue
			}
		}
		selections = append(selections, execSelection{node: node, skipReason: skipReason})
	}

	if len(unresolved) > 0 {
		missing := make([]string, 0, len(unresolved))
		for target := range unresolved {
			missing = append(missing, invocation.DisplayPath(target))
		}
		sort.Strings(missing)
		return nil, fmt.Errorf(declarationErrorTemplateConstant, ErrUnknownPath, strings.Join(missing, execTargetSeparatorConstant))
	}
	if len(selections) == 0 && !options.Preview {
		return nil, fmt.Errorf(declarationErrorTemplateConstant, ErrNoMatchingRepositories, strings.Join(filterTexts, execTargetSeparatorConstant))
	}
	return selections, nil
}

func (engine *Engine) execSkipReason(node *tree.Node, includeLinks bool) (string, error) {
	present, presenceError := engine.exists(node.Directory())
	if presenceError != nil {
		return "", CollaboratorFailureError{Path: node.Path(), Operation: inspectOperationConstant, Err: presenceError}
	}
	if !present {
		return execAbsentReasonConstant, nil
	}
	if node.IsLink() && !includeLinks {
		linkText, readError := engine.fileSystem.Readlink(node.Directory())
		if readError != nil || len(linkText) == 0 {
			linkText = node.EffectiveTarget().LinkPath
		}
		return fmt.Sprintf(execLinkedReasonTemplate, linkText), nil
	}
	return "", nil
}

func matchesAny(filters []*regexp.Regexp, nodePath string) bool {
	for _, filter := range filters {
		if filter.MatchString(nodePath) {
			return true
		}
	}
	return false
}
