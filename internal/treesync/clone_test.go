package treesync_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/failures"
)

const (
	testLibraryURLConstant = "https://example.com/lib.git"
	testToolsURLConstant   = "https://example.com/tools.git"
	testVendorURLConstant  = "https://example.com/vendor.git"
)

func TestCloneMaterializesTreeParentHooksFirst(testInstance *testing.T) {
	root := filepath.Join(testInstance.TempDir(), "root")
	writeManifest(testInstance, root, `repos:
  lib:
    url: https://example.com/lib.git
    branch: main
  tools:
    url: https://example.com/tools.git
    commit: 9f8e7d6
post_clone:
  - make setup
`)
	fixture := newEngineFixture(testInstance, root)
	fixture.repositories.manifests[testLibraryURLConstant] = "repos:\n  vendor:\n    url: https://example.com/vendor.git\npost_clone:\n  - echo lib\n"

	result, cloneError := fixture.engine.Clone(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, cloneError)
	require.NoError(testInstance, result.Err())

	require.Equal(testInstance, []string{
		"clone lib https://example.com/lib.git@main",
		"clone tools https://example.com/tools.git",
		"checkout tools 9f8e7d6",
		"hook . make setup GITP_PARENT_REPO=1",
		"clone lib/vendor https://example.com/vendor.git",
		"hook lib echo lib GITP_PARENT_REPO=0",
	}, fixture.log.snapshot())
	require.Equal(testInstance, []string{"lib", "lib/vendor", "tools"}, result.Changed)

	vendor, found := result.Tree.Node("lib/vendor")
	require.True(testInstance, found)
	require.Equal(testInstance, testVendorURLConstant, vendor.EffectiveTarget().URL)
	require.Contains(testInstance, fixture.output.String(), "CLONED: lib/vendor ("+testVendorURLConstant+")")
}

func TestCloneIsIdempotent(testInstance *testing.T) {
	root := filepath.Join(testInstance.TempDir(), "root")
	writeManifest(testInstance, root, "repos:\n  lib:\n    url: https://example.com/lib.git\npost_clone:\n  - make setup\n")
	fixture := newEngineFixture(testInstance, root)
	fixture.repositories.manifests[testLibraryURLConstant] = "repos:\n  vendor:\n    url: https://example.com/vendor.git\npost_clone:\n  - echo lib\n"

	_, firstError := fixture.engine.Clone(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, firstError)
	eventsAfterFirstClone := fixture.log.snapshot()
	require.NotEmpty(testInstance, eventsAfterFirstClone)

	result, secondError := fixture.engine.Clone(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, secondError)
	require.NoError(testInstance, result.Err())
	require.Empty(testInstance, result.Changed)
	require.Equal(testInstance, eventsAfterFirstClone, fixture.log.snapshot())
}

func TestCloneFailureAbortsOnlyTheFailingSubtree(testInstance *testing.T) {
	root := filepath.Join(testInstance.TempDir(), "root")
	writeManifest(testInstance, root, "repos:\n  broken:\n    url: https://example.com/tools.git\n  lib:\n    url: https://example.com/lib.git\n")
	fixture := newEngineFixture(testInstance, root)
	fixture.repositories.failingURLs[testToolsURLConstant] = true
	fixture.repositories.manifests[testLibraryURLConstant] = "repos:\n  vendor:\n    url: https://example.com/vendor.git\n"

	result, cloneError := fixture.engine.Clone(context.Background(), fixture.resolve(testInstance))
	require.NoError(testInstance, cloneError)
	require.Len(testInstance, result.Failures, 1)
	require.Equal(testInstance, "broken", result.Failures[0].Path)
	require.Equal(testInstance, failures.KindCollaboratorFailure, result.Failures[0].Kind)
	require.Equal(testInstance, []string{"lib", "lib/vendor"}, result.Changed)
	require.Error(testInstance, result.Err())
}

func TestCloneRootClonesEntryPointAndRunsItsHooks(testInstance *testing.T) {
	workspace := testInstance.TempDir()
	destination := filepath.Join(workspace, "checkout")
	fixture := newEngineFixture(testInstance, destination)
	fixture.repositories.manifests["https://example.com/root.git"] = "repos:\n  lib:\n    url: https://example.com/lib.git\n    branch: main\npost_clone:\n  - make setup\n"

	result, cloneError := fixture.engine.CloneRoot(context.Background(), "https://example.com/root.git", "", destination)
	require.NoError(testInstance, cloneError)
	require.NoError(testInstance, result.Err())

	require.Equal(testInstance, []string{
		"clone . https://example.com/root.git",
		"clone lib https://example.com/lib.git@main",
		"hook . make setup GITP_PARENT_REPO=1",
	}, fixture.log.snapshot())
	require.Equal(testInstance, []string{"", "lib"}, result.Changed)
	require.True(testInstance, result.Tree.Invocation().IsEntryPointRoot())
}
