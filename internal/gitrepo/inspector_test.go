package gitrepo_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/gitrepo"
)

const (
	testRemoteNameConstant      = "origin"
	testTrackedFileNameConstant = "README.md"
	testFilePermissionsConstant = 0o644
)

type repositoryFixture struct {
	testInstance *testing.T
	directory    string
	repository   *git.Repository
	worktree     *git.Worktree
}

func newRepositoryFixture(testInstance *testing.T) *repositoryFixture {
	testInstance.Helper()
	directory := testInstance.TempDir()
	repository, initError := git.PlainInit(directory, false)
	require.NoError(testInstance, initError)
	worktree, worktreeError := repository.Worktree()
	require.NoError(testInstance, worktreeError)
	return &repositoryFixture{testInstance: testInstance, directory: directory, repository: repository, worktree: worktree}
}

func (fixture *repositoryFixture) commit(content string, parents ...plumbing.Hash) plumbing.Hash {
	fixture.testInstance.Helper()
	require.NoError(fixture.testInstance, os.WriteFile(filepath.Join(fixture.directory, testTrackedFileNameConstant), []byte(content), testFilePermissionsConstant))
	_, addError := fixture.worktree.Add(testTrackedFileNameConstant)
	require.NoError(fixture.testInstance, addError)
	commitHash, commitError := fixture.worktree.Commit(content, &git.CommitOptions{
		Author:  &object.Signature{Name: "gitp", Email: "gitp@example.com", When: time.Now()},
		Parents: parents,
	})
	require.NoError(fixture.testInstance, commitError)
	return commitHash
}

func (fixture *repositoryFixture) branchName() string {
	fixture.testInstance.Helper()
	headReference, headError := fixture.repository.Head()
	require.NoError(fixture.testInstance, headError)
	return headReference.Name().Short()
}

func (fixture *repositoryFixture) setUpstream(commitHash plumbing.Hash) {
	fixture.testInstance.Helper()
	upstreamName := plumbing.NewRemoteReferenceName(testRemoteNameConstant, fixture.branchName())
	require.NoError(fixture.testInstance, fixture.repository.Storer.SetReference(plumbing.NewHashReference(upstreamName, commitHash)))
}

func TestInspectorReportsAheadBehindAndDirtiness(testInstance *testing.T) {
	testCases := []struct {
		name           string
		prepare        func(fixture *repositoryFixture)
		excludedPaths  []string
		expectedAhead  int
		expectedBehind int
		expectUpstream bool
		expectDirty    bool
	}{
		{
			name: "in_sync_with_upstream",
			prepare: func(fixture *repositoryFixture) {
				fixture.setUpstream(fixture.commit("first"))
			},
			expectUpstream: true,
		},
		{
			name: "ahead_of_upstream",
			prepare: func(fixture *repositoryFixture) {
				firstCommit := fixture.commit("first")
				fixture.commit("second")
				fixture.setUpstream(firstCommit)
			},
			expectedAhead:  1,
			expectUpstream: true,
		},
		{
			name: "diverged_from_upstream",
			prepare: func(fixture *repositoryFixture) {
				firstCommit := fixture.commit("first")
				secondCommit := fixture.commit("second")
				fixture.commit("third", firstCommit)
				fixture.setUpstream(secondCommit)
			},
			expectedAhead:  1,
			expectedBehind: 1,
			expectUpstream: true,
		},
		{
			name: "behind_upstream",
			prepare: func(fixture *repositoryFixture) {
				firstCommit := fixture.commit("first")
				fixture.commit("second")
				fixture.setUpstream(fixture.commit("third"))
				require.NoError(testInstance, fixture.worktree.Reset(&git.ResetOptions{Commit: firstCommit, Mode: git.HardReset}))
			},
			expectedBehind: 2,
			expectUpstream: true,
		},
		{
			name: "merged_upstream_into_local_work",
			prepare: func(fixture *repositoryFixture) {
				firstCommit := fixture.commit("first")
				secondCommit := fixture.commit("second")
				thirdCommit := fixture.commit("third", firstCommit)
				fixture.commit("merge", thirdCommit, secondCommit)
				fixture.setUpstream(secondCommit)
			},
			expectedAhead:  2,
			expectUpstream: true,
		},
		{
			name: "diverged_after_long_shared_history",
			prepare: func(fixture *repositoryFixture) {
				var forkCommit plumbing.Hash
				for index := 0; index < 12; index++ {
					forkCommit = fixture.commit(fmt.Sprintf("shared %d", index))
				}
				fixture.commit("upstream one")
				upstreamCommit := fixture.commit("upstream two")
				fixture.commit("local", forkCommit)
				fixture.setUpstream(upstreamCommit)
			},
			expectedAhead:  1,
			expectedBehind: 2,
			expectUpstream: true,
		},
		{
			name: "untracked_file_marks_dirty",
			prepare: func(fixture *repositoryFixture) {
				fixture.commit("first")
				require.NoError(testInstance, os.WriteFile(filepath.Join(fixture.directory, "notes.txt"), []byte("draft"), testFilePermissionsConstant))
			},
			expectDirty: true,
		},
		{
			name: "nested_child_repository_is_excluded",
			prepare: func(fixture *repositoryFixture) {
				fixture.commit("first")
				childDirectory := filepath.Join(fixture.directory, "child")
				require.NoError(testInstance, os.MkdirAll(childDirectory, 0o755))
				require.NoError(testInstance, os.WriteFile(filepath.Join(childDirectory, "main.go"), []byte("package main"), testFilePermissionsConstant))
			},
			excludedPaths: []string{"child"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newRepositoryFixture(testInstance)
			testCase.prepare(fixture)

			inspector := gitrepo.NewInspector().WithExcludedPaths(testCase.excludedPaths)
			state, inspectError := inspector.Inspect(context.Background(), fixture.directory, testRemoteNameConstant)
			require.NoError(testInstance, inspectError)

			require.True(testInstance, state.HasCommits)
			require.Equal(testInstance, fixture.branchName(), state.Branch)
			require.Equal(testInstance, testCase.expectUpstream, state.HasUpstream)
			require.Equal(testInstance, testCase.expectedAhead, state.AheadCount)
			require.Equal(testInstance, testCase.expectedBehind, state.BehindCount)
			require.Equal(testInstance, testCase.expectDirty, state.IsDirty)
		})
	}
}

func TestInspectorHandlesRepositoryWithoutCommits(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)

	state, inspectError := gitrepo.NewInspector().Inspect(context.Background(), fixture.directory, testRemoteNameConstant)
	require.NoError(testInstance, inspectError)
	require.False(testInstance, state.HasCommits)
	require.False(testInstance, state.IsDetached())
	require.NotEmpty(testInstance, state.Branch)
}

func TestInspectorReportsDetachedHead(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	firstCommit := fixture.commit("first")
	fixture.commit("second")
	require.NoError(testInstance, fixture.worktree.Checkout(&git.CheckoutOptions{Hash: firstCommit}))

	state, inspectError := gitrepo.NewInspector().Inspect(context.Background(), fixture.directory, testRemoteNameConstant)
	require.NoError(testInstance, inspectError)
	require.True(testInstance, state.IsDetached())
	require.Equal(testInstance, firstCommit.String(), state.HeadCommit)
}

func TestInspectorRejectsNonRepository(testInstance *testing.T) {
	_, inspectError := gitrepo.NewInspector().Inspect(context.Background(), testInstance.TempDir(), testRemoteNameConstant)
	require.Error(testInstance, inspectError)
}
