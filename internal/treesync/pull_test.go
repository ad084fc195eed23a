package treesync_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/treesync"
)

const testPullManifestConstant = `repos:
  lib:
    url: https://example.com/lib.git
    branch: main
  tools:
    type: overlay
    link: ../cache
post_pull:
  - make sync
`

func newPullFixture(testInstance *testing.T) *engineFixture {
	testInstance.Helper()
	workspace := testInstance.TempDir()
	root := filepath.Join(workspace, "root")
	writeManifest(testInstance, root, testPullManifestConstant)
	makeRepository(testInstance, filepath.Join(root, "lib"))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(workspace, "cache"), 0o755))

	fixture := newEngineFixture(testInstance, root)
	fixture.repositories.remoteHeads[filepath.Join(root, "lib")] = "c1"
	return fixture
}

func TestPullRunsChildrenThenRootHooksThenOverlays(testInstance *testing.T) {
	fixture := newPullFixture(testInstance)

	result, pullError := fixture.engine.Pull(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, pullError)
	require.NoError(testInstance, result.Err())

	require.Equal(testInstance, []string{
		"fetch lib",
		"checkout lib main",
		"pull lib",
		"hook . make sync GITP_PARENT_REPO=1",
		"symlink tools -> ../cache",
	}, fixture.log.snapshot())
	require.Equal(testInstance, []string{"lib", "tools"}, result.Changed)
	require.Contains(testInstance, fixture.output.String(), "UPDATED: lib (c0 -> c1)")
	require.Contains(testInstance, fixture.output.String(), "OVERLAID: tools -> ../cache")

	linkText, readError := os.Readlink(filepath.Join(fixture.root, "tools"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "../cache", linkText)
}

// newThreeLevelPullFixture extends the pull fixture with lib/vendor; both carry post_pull hooks
// and both have upstream changes.
func newThreeLevelPullFixture(testInstance *testing.T) *engineFixture {
	testInstance.Helper()
	fixture := newPullFixture(testInstance)
	libraryDirectory := filepath.Join(fixture.root, "lib")
	vendorDirectory := filepath.Join(libraryDirectory, "vendor")
	writeManifest(testInstance, libraryDirectory, "repos:\n  vendor:\n    url: https://example.com/vendor.git\n    branch: main\npost_pull:\n  - make lib\n")
	makeRepository(testInstance, vendorDirectory)
	writeManifest(testInstance, vendorDirectory, "post_pull:\n  - make vendor\n")
	fixture.repositories.remoteHeads[vendorDirectory] = "v1"
	return fixture
}

func TestPullOrdersThreeLevelsDepthFirst(testInstance *testing.T) {
	fixture := newThreeLevelPullFixture(testInstance)

	result, pullError := fixture.engine.Pull(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, pullError)
	require.NoError(testInstance, result.Err())

	require.Equal(testInstance, []string{
		"fetch lib",
		"checkout lib main",
		"pull lib",
		"fetch lib/vendor",
		"checkout lib/vendor main",
		"pull lib/vendor",
		"hook lib/vendor make vendor GITP_PARENT_REPO=0",
		"hook lib make lib GITP_PARENT_REPO=0",
		"hook . make sync GITP_PARENT_REPO=1",
		"symlink tools -> ../cache",
	}, fixture.log.snapshot())
	require.Equal(testInstance, []string{"lib", "lib/vendor", "tools"}, result.Changed)
}

func TestPullTargetLimitsTheUpdatedNodes(testInstance *testing.T) {
	testCases := []struct {
		name            string
		recursive       bool
		expectedEvents  []string
		expectedChanged []string
	}{
		{
			name:            "sole_node",
			recursive:       false,
			expectedEvents:  []string{"fetch lib", "checkout lib main", "pull lib", "hook lib make lib GITP_PARENT_REPO=0"},
			expectedChanged: []string{"lib"},
		},
		{
			name:      "subtree",
			recursive: true,
			expectedEvents: []string{
				"fetch lib",
				"checkout lib main",
				"pull lib",
				"fetch lib/vendor",
				"checkout lib/vendor main",
				"pull lib/vendor",
				"hook lib/vendor make vendor GITP_PARENT_REPO=0",
				"hook lib make lib GITP_PARENT_REPO=0",
			},
			expectedChanged: []string{"lib", "lib/vendor"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newThreeLevelPullFixture(testInstance)

			result, pullError := fixture.engine.PullTarget(context.Background(), fixture.resolve(testInstance), "lib", testCase.recursive)
			require.NoError(testInstance, pullError)
			require.NoError(testInstance, result.Err())
			require.Equal(testInstance, testCase.expectedEvents, fixture.log.snapshot())
			require.Equal(testInstance, testCase.expectedChanged, result.Changed)

			_, statError := os.Lstat(filepath.Join(fixture.root, "tools"))
			require.True(testInstance, os.IsNotExist(statError))
		})
	}
}

func TestPullTargetRejectsUnknownAndOverlayPaths(testInstance *testing.T) {
	fixture := newPullFixture(testInstance)
	resolved := fixture.resolve(testInstance)

	_, unknownError := fixture.engine.PullTarget(context.Background(), resolved, "missing", false)
	require.ErrorIs(testInstance, unknownError, treesync.ErrUnknownPath)
	_, overlayError := fixture.engine.PullTarget(context.Background(), resolved, "tools", true)
	require.ErrorIs(testInstance, overlayError, treesync.ErrOverlayTarget)
	require.Empty(testInstance, fixture.log.snapshot())
}

func TestPullWithoutChangesRunsNoHooks(testInstance *testing.T) {
	fixture := newPullFixture(testInstance)

	_, firstError := fixture.engine.Pull(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, firstError)
	eventCount := len(fixture.log.snapshot())

	result, secondError := fixture.engine.Pull(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, secondError)
	require.Empty(testInstance, result.Changed)
	require.Equal(testInstance, []string{"fetch lib", "checkout lib main", "pull lib"}, fixture.log.snapshot()[eventCount:])
}

func TestPullHookFailureBlocksOverlays(testInstance *testing.T) {
	fixture := newPullFixture(testInstance)
	fixture.hooks.failing["make sync"] = true

	result, pullError := fixture.engine.Pull(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, pullError)

	require.Len(testInstance, result.Failures, 1)
	require.Equal(testInstance, "", result.Failures[0].Path)
	require.Equal(testInstance, failures.KindHookFailure, result.Failures[0].Kind)
	require.Equal(testInstance, failures.ExitCodeCompletedWithFailures, failures.ExitCode(result.Err()))
	require.NotContains(testInstance, fixture.log.snapshot(), "symlink tools -> ../cache")
	require.Contains(testInstance, fixture.output.String(), "OVERLAY-SKIP: tools (post_pull failed)")

	_, statError := os.Lstat(filepath.Join(fixture.root, "tools"))
	require.True(testInstance, os.IsNotExist(statError))
}

func TestPullWithoutBranchFollowsTheCheckedOutBranch(testInstance *testing.T) {
	root := filepath.Join(testInstance.TempDir(), "root")
	writeManifest(testInstance, root, "repos:\n  lib:\n    url: https://example.com/lib.git\n")
	makeRepository(testInstance, filepath.Join(root, "lib"))
	fixture := newEngineFixture(testInstance, root)

	result, pullError := fixture.engine.Pull(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, pullError)
	require.NoError(testInstance, result.Err())
	require.Equal(testInstance, []string{"fetch lib", "pull lib"}, fixture.log.snapshot())
}

func TestPullClonesAbsentChildren(testInstance *testing.T) {
	root := filepath.Join(testInstance.TempDir(), "root")
	writeManifest(testInstance, root, "repos:\n  lib:\n    url: https://example.com/lib.git\npost_pull:\n  - make sync\n")
	fixture := newEngineFixture(testInstance, root)
	fixture.repositories.manifests[testLibraryURLConstant] = "repos:\n  vendor:\n    url: https://example.com/vendor.git\n"

	result, pullError := fixture.engine.Pull(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, pullError)
	require.NoError(testInstance, result.Err())

	require.Equal(testInstance, []string{
		"clone lib https://example.com/lib.git",
		"clone lib/vendor https://example.com/vendor.git",
		"hook . make sync GITP_PARENT_REPO=1",
	}, fixture.log.snapshot())
	require.Equal(testInstance, []string{"lib", "lib/vendor"}, result.Changed)
}
