package gitrepo

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	openRepositoryErrorTemplateConstant = "open git repository %s: %w"
	readHeadErrorTemplateConstant       = "read HEAD of %s: %w"
	worktreeErrorTemplateConstant       = "open worktree of %s: %w"
	worktreeStatusErrorTemplateConstant = "read worktree status of %s: %w"
	upstreamErrorTemplateConstant       = "read %s of %s: %w"
	historyErrorTemplateConstant        = "walk history of %s from %s: %w"
	pathSeparatorSlashConstant          = "/"
)

// RepositoryState summarizes the version-control state of a working tree.
type RepositoryState struct {
	HasCommits  bool
	HeadCommit  string
	Branch      string
	IsDirty     bool
	HasUpstream bool
	AheadCount  int
	BehindCount int
}

// IsDetached reports whether HEAD points at a commit rather than a branch.
func (state RepositoryState) IsDetached() bool {
	return state.HasCommits && len(state.Branch) == 0
}

// Inspector reads repository state with go-git.
type Inspector struct {
	excludedPaths []string
}

// NewInspector constructs an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// WithExcludedPaths returns an inspector that ignores worktree changes below the supplied
// slash-separated relative paths. Nested child repositories are excluded this way.
func (inspector *Inspector) WithExcludedPaths(excludedPaths []string) *Inspector {
	return &Inspector{excludedPaths: append([]string{}, excludedPaths...)}
}

// Inspect reports the state of the repository at repositoryPath relative to remoteName.
func (inspector *Inspector) Inspect(executionContext context.Context, repositoryPath string, remoteName string) (RepositoryState, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return RepositoryState{}, contextError
	}

	repository, openError := git.PlainOpen(repositoryPath)
	if openError != nil {
		return RepositoryState{}, fmt.Errorf(openRepositoryErrorTemplateConstant, repositoryPath, openError)
	}

	state := RepositoryState{}
	headReference, headError := repository.Head()
	switch {
	case headError == nil:
		state.HasCommits = true
		state.HeadCommit = headReference.Hash().String()
		if headReference.Name().IsBranch() {
			state.Branch = headReference.Name().Short()
		}
	case errors.Is(headError, plumbing.ErrReferenceNotFound):
		symbolicHead, symbolicError := repository.Reference(plumbing.HEAD, false)
		if symbolicError == nil && symbolicHead.Type() == plumbing.SymbolicReference {
			state.Branch = symbolicHead.Target().Short()
		}
	default:
		return RepositoryState{}, fmt.Errorf(readHeadErrorTemplateConstant, repositoryPath, headError)
	}

	isDirty, dirtyError := inspector.hasLocalChanges(repository, repositoryPath)
	if dirtyError != nil {
		return RepositoryState{}, dirtyError
	}
	state.IsDirty = isDirty

	if !state.HasCommits || len(state.Branch) == 0 || len(remoteName) == 0 {
		return state, nil
	}

	upstreamName := plumbing.NewRemoteReferenceName(remoteName, state.Branch)
	upstreamReference, upstreamError := repository.Reference(upstreamName, true)
	if errors.Is(upstreamError, plumbing.ErrReferenceNotFound) {
		return state, nil
	}
	if upstreamError != nil {
		return RepositoryState{}, fmt.Errorf(upstreamErrorTemplateConstant, upstreamName, repositoryPath, upstreamError)
	}
	state.HasUpstream = true

	if upstreamReference.Hash() == headReference.Hash() {
		return state, nil
	}

	aheadCount, behindCount, divergenceError := countDivergence(repository, headReference.Hash(), upstreamReference.Hash())
	if divergenceError != nil {
		return RepositoryState{}, fmt.Errorf(historyErrorTemplateConstant, repositoryPath, upstreamName.Short(), divergenceError)
	}
	state.AheadCount = aheadCount
	state.BehindCount = behindCount
	return state, nil
}

func (inspector *Inspector) hasLocalChanges(repository *git.Repository, repositoryPath string) (bool, error) {
	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return false, fmt.Errorf(worktreeErrorTemplateConstant, repositoryPath, worktreeError)
	}
	worktreeStatus, statusError := worktree.Status()
	if statusError != nil {
		return false, fmt.Errorf(worktreeStatusErrorTemplateConstant, repositoryPath, statusError)
	}
	for filePath, fileStatus := range worktreeStatus {
		if fileStatus.Staging == git.Unmodified && fileStatus.Worktree == git.Unmodified {
			continue
		}
		if inspector.isExcluded(filePath) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (inspector *Inspector) isExcluded(filePath string) bool {
	slashedPath := filepath.ToSlash(filePath)
	for _, excludedPath := range inspector.excludedPaths {
		trimmedExcluded := strings.Trim(excludedPath, pathSeparatorSlashConstant)
		if len(trimmedExcluded) == 0 {
			continue
		}
		if slashedPath == trimmedExcluded || strings.HasPrefix(slashedPath, trimmedExcluded+pathSeparatorSlashConstant) {
			return true
		}
	}
	return false
}

const (
	reachableFromLocal    uint8 = 1
	reachableFromUpstream uint8 = 2
	reachableFromBoth     uint8 = reachableFromLocal | reachableFromUpstream
)

// staleCommitSlopConstant is how many commits reachable from both sides are still walked once the walk
// could stop, so committer clocks that run backwards do not cut it short.
const staleCommitSlopConstant = 5

// countDivergence walks both histories together, newest commit first, marking each commit with the
// sides it is reachable from. The walk ends once every pending commit is reachable from both sides and
// is older than every commit reachable from one side only, since no pending commit can then lead back
// to one of those.
func countDivergence(repository *git.Repository, local plumbing.Hash, upstream plumbing.Hash) (int, int, error) {
	marks := map[plumbing.Hash]uint8{}
	pending := &commitQueue{}
	oneSided := &commitQueue{oldestFirst: true}
	enqueue := func(commitHash plumbing.Hash, mark uint8) error {
		previous := marks[commitHash]
		if previous|mark == previous {
			return nil
		}
		commit, commitError := repository.CommitObject(commitHash)
		if commitError != nil {
			return commitError
		}
		marks[commitHash] = previous | mark
		heap.Push(pending, commit)
		if previous == 0 && mark != reachableFromBoth {
			heap.Push(oneSided, commit)
		}
		return nil
	}
	if enqueueError := enqueue(local, reachableFromLocal); enqueueError != nil {
		return 0, 0, enqueueError
	}
	if enqueueError := enqueue(upstream, reachableFromUpstream); enqueueError != nil {
		return 0, 0, enqueueError
	}

	slop := staleCommitSlopConstant
	for pending.Len() > 0 {
		if pending.settled(marks, oneSided) {
			if slop == 0 {
				break
			}
			slop--
		}
		commit := heap.Pop(pending).(*object.Commit)
		mark := marks[commit.Hash]
		for _, parentHash := range commit.ParentHashes {
			if enqueueError := enqueue(parentHash, mark); enqueueError != nil {
				return 0, 0, enqueueError
			}
		}
	}

	var aheadCount, behindCount int
	for _, mark := range marks {
		switch mark {
		case reachableFromLocal:
			aheadCount++
		case reachableFromUpstream:
			behindCount++
		}
	}
	return aheadCount, behindCount, nil
}

// commitQueue is a heap of commits ordered by committer time, newest first unless oldestFirst is set.
type commitQueue struct {
	commits     []*object.Commit
	oldestFirst bool
}

func (queue *commitQueue) Len() int { return len(queue.commits) }

func (queue *commitQueue) Less(leftIndex int, rightIndex int) bool {
	leftTime := queue.commits[leftIndex].Committer.When
	rightTime := queue.commits[rightIndex].Committer.When
	if queue.oldestFirst {
		return leftTime.Before(rightTime)
	}
	return leftTime.After(rightTime)
}

func (queue *commitQueue) Swap(leftIndex int, rightIndex int) {
	queue.commits[leftIndex], queue.commits[rightIndex] = queue.commits[rightIndex], queue.commits[leftIndex]
}

func (queue *commitQueue) Push(element any) {
	queue.commits = append(queue.commits, element.(*object.Commit))
}

func (queue *commitQueue) Pop() any {
	last := queue.commits[len(queue.commits)-1]
	queue.commits = queue.commits[:len(queue.commits)-1]
	return last
}

// settled reports whether every pending commit is reachable from both sides and strictly older than
// the oldest commit still reachable from one side only.
func (queue *commitQueue) settled(marks map[plumbing.Hash]uint8, oneSided *commitQueue) bool {
	for _, commit := range queue.commits {
		if marks[commit.Hash] != reachableFromBoth {
			return false
		}
	}
	for oneSided.Len() > 0 && marks[oneSided.commits[0].Hash] == reachableFromBoth {
		heap.Pop(oneSided)
	}
	if oneSided.Len() == 0 || queue.Len() == 0 {
		return true
	}
	return queue.commits[0].Committer.When.Before(oneSided.commits[0].Committer.When)
}
