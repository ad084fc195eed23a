package status

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/gitrepo"
	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/links"
	"github.com/temirov/gitp/internal/repos/filesystem"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/tree"
)

const (
	defaultJobsConstant            = 1
	gitMetadataDirectoryConstant   = ".git"
	pathLogFieldConstant           = "path"
	stateLogFieldConstant          = "state"
	nodeInspectedMessageConstant   = "Inspected node"
	notRepositoryMessageConstant   = "not a git repository"
	symlinkMessageConstant         = "a symlink occupies a repository path"
	branchMismatchTemplateConstant = "on %s, expected %s"
	detachedHeadLabelConstant      = "detached HEAD"
)

// InspectorFactory returns an inspector that ignores worktree changes below the supplied
// slash-separated paths, which are the node's nested children.
type InspectorFactory func(excludedPaths []string) shared.RepositoryInspector

// Dependencies enumerates the collaborators the aggregator relies on.
type Dependencies struct {
	Inspectors InspectorFactory
	Links      *links.Resolver
	FileSystem shared.FileSystem
	Logger     *zap.Logger
}

// Options tune status collection.
type Options struct {
	Jobs       int
	RemoteName string
}

// Aggregator computes status reports.
type Aggregator struct {
	inspectors InspectorFactory
	links      *links.Resolver
	fileSystem shared.FileSystem
	logger     *zap.Logger
	options    Options
}

// NewAggregator constructs an Aggregator. Missing dependencies default to go-git and the operating system.
func NewAggregator(dependencies Dependencies, options Options) *Aggregator {
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = filesystem.OSFileSystem{}
	}
	if dependencies.Inspectors == nil {
		dependencies.Inspectors = func(excludedPaths []string) shared.RepositoryInspector {
			return gitrepo.NewInspector().WithExcludedPaths(excludedPaths)
		}
	}
	if dependencies.Links == nil {
		dependencies.Links = links.NewResolver(dependencies.FileSystem, nil)
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if options.Jobs < defaultJobsConstant {
		options.Jobs = defaultJobsConstant
	}
	if len(options.RemoteName) == 0 {
		options.RemoteName = shared.OriginRemoteNameConstant
	}
	return &Aggregator{
		inspectors: dependencies.Inspectors,
		links:      dependencies.Links,
		fileSystem: dependencies.FileSystem,
		logger:     dependencies.Logger,
		options:    options,
	}
}

// Status inspects every node of resolved and returns the report tree rooted at the entry-point root.
// Resolution failures appear as error reports.
func (aggregator *Aggregator) Status(executionContext context.Context, resolved *tree.Tree) (*Report, error) {
	nodes := resolved.Nodes()
	reports := make(map[string]*Report, len(nodes))
	var reportsMutex sync.Mutex

	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(aggregator.options.Jobs)
	for _, node := range nodes {
		currentNode := node
		group.Go(func() error {
			report := aggregator.inspectNode(groupContext, resolved, currentNode)
			aggregator.logger.Debug(nodeInspectedMessageConstant, zap.String(pathLogFieldConstant, invocation.DisplayPath(currentNode.Path())), zap.String(stateLogFieldConstant, string(report.State)))
			reportsMutex.Lock()
			reports[currentNode.Path()] = report
			reportsMutex.Unlock()
			return groupContext.Err()
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}

	for _, node := range nodes {
		parentReport := reports[node.Path()]
		for _, child := range resolved.Children(node.Path()) {
			parentReport.Children = append(parentReport.Children, reports[child.Path()])
		}
	}
	for _, failure := range resolved.Failures() {
		attachFailure(reports, failure)
	}
	return reports[""], nil
}

// inspectNode computes the report of a single node.
func (aggregator *Aggregator) inspectNode(executionContext context.Context, resolved *tree.Tree, node *tree.Node) *Report {
	report := &Report{
		Path:      node.Path(),
		Target:    node.EffectiveTarget(),
		IsLink:    node.IsLink(),
		IsOverlay: node.IsOverlay(),
	}
	if node.IsLink() {
		aggregator.inspectLink(report, node)
		return report
	}

	info, statError := aggregator.fileSystem.Lstat(node.Directory())
	switch {
	case errors.Is(statError, fs.ErrNotExist):
		report.State = StateAbsent
		return report
	case statError != nil:
		return withError(report, statError.Error())
	case info.Mode()&fs.ModeSymlink != 0:
		report.State = StateUnaligned
		report.Message = symlinkMessageConstant
		return report
	}

	if _, gitError := aggregator.fileSystem.Stat(filepath.Join(node.Directory(), gitMetadataDirectoryConstant)); gitError != nil {
		if node.IsRoot() {
			report.State = StateClean
			return report
		}
		return withError(report, notRepositoryMessageConstant)
	}

	inspector := aggregator.inspectors(childExclusions(resolved, node))
	repositoryState, inspectError := inspector.Inspect(executionContext, node.Directory(), aggregator.options.RemoteName)
	if inspectError != nil {
		return withError(report, inspectError.Error())
	}
	report.Branch = repositoryState.Branch
	report.Commit = repositoryState.HeadCommit
	report.AheadCount = repositoryState.AheadCount
	report.BehindCount = repositoryState.BehindCount
	report.State = classify(report, node.EffectiveTarget(), repositoryState)
	return report
}

func (aggregator *Aggregator) inspectLink(report *Report, node *tree.Node) {
	inspection, inspectError := aggregator.links.Inspect(node.Directory(), node.EffectiveTarget().LinkPath)
	if inspectError != nil {
		withError(report, inspectError.Error())
		return
	}
	report.LinkTarget = inspection.CurrentTarget
	switch inspection.State {
	case links.StateNonexistent:
		report.State = StateAbsent
	case links.StateUnlinked:
		report.State = StateUnlinked
	case links.StateUnaligned:
		report.State = StateUnaligned
	default:
		if node.IsOverlay() {
			report.State = StateOverlaid
		} else {
			report.State = StateClean
		}
	}
}

// classify applies the state precedence: unaligned, modified, diverged, ahead, behind, clean.
func classify(report *Report, target tree.Target, repositoryState gitrepo.RepositoryState) State {
	switch {
	case len(target.Commit) > 0 && !strings.HasPrefix(repositoryState.HeadCommit, target.Commit):
		return StateUnaligned
	case len(target.Commit) == 0 && len(target.Branch) > 0 && repositoryState.Branch != target.Branch:
		report.Message = describeBranchMismatch(repositoryState.Branch, target.Branch)
		return StateUnaligned
	case repositoryState.IsDirty:
		return StateModified
	case repositoryState.AheadCount > 0 && repositoryState.BehindCount > 0:
		return StateDiverged
	case repositoryState.AheadCount > 0:
		return StateAhead
	case repositoryState.BehindCount > 0:
		return StateBehind
	default:
		return StateClean
	}
}

// childExclusions lists the children of node relative to its directory.
func childExclusions(resolved *tree.Tree, node *tree.Node) []string {
	children := resolved.Children(node.Path())
	excluded := make([]string, 0, len(children))
	for _, child := range children {
		if node.IsRoot() {
			excluded = append(excluded, child.Path())
			continue
		}
		excluded = append(excluded, strings.TrimPrefix(child.Path(), node.Path()+"/"))
	}
	return excluded
}

// attachFailure marks the failing node as an error, or adds an error report under the nearest
// ancestor when resolution excluded the node from the tree.
func attachFailure(reports map[string]*Report, failure failures.Failure) {
	if existing, found := reports[failure.Path]; found {
		existing.State = StateError
		existing.Message = failure.String()
		return
	}
	ancestorPath := invocation.ParentPath(failure.Path)
	for {
		if ancestor, found := reports[ancestorPath]; found {
			ancestor.Children = append(ancestor.Children, &Report{Path: failure.Path, State: StateError, Message: failure.String()})
			return
		}
		if len(ancestorPath) == 0 {
			return
		}
		ancestorPath = invocation.ParentPath(ancestorPath)
	}
}

func withError(report *Report, message string) *Report {
	report.State = StateError
	report.Message = message
	return report
}

func describeBranchMismatch(actual string, expected string) string {
	if len(actual) == 0 {
		actual = detachedHeadLabelConstant
	}
	return fmt.Sprintf(branchMismatchTemplateConstant, actual, expected)
}
