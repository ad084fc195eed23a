package links_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/links"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/filesystem"
	pathutils "github.com/temirov/gitp/internal/utils/path"
)

func newTestResolver(homeDirectory string) *links.Resolver {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return homeDirectory, nil })
	return links.NewResolver(filesystem.OSFileSystem{}, expander)
}

func TestClassifyHonorsOverlaysOnlyAtEntryPointRoot(testInstance *testing.T) {
	resolver := newTestResolver("/home/tester")

	testCases := []struct {
		name           string
		entry          manifest.RepoEntry
		entryPointRoot bool
		expected       links.Classification
	}{
		{name: "repo_at_root", entry: manifest.RepoEntry{URL: "u"}, entryPointRoot: true, expected: links.OrdinaryRepo},
		{name: "repo_below_root", entry: manifest.RepoEntry{URL: "u"}, entryPointRoot: false, expected: links.OrdinaryRepo},
		{name: "link_at_root", entry: manifest.RepoEntry{Link: "../x"}, entryPointRoot: true, expected: links.OrdinaryLink},
		{name: "link_below_root", entry: manifest.RepoEntry{Link: "../x"}, entryPointRoot: false, expected: links.OrdinaryLink},
		{name: "overlay_at_root", entry: manifest.RepoEntry{Type: manifest.EntryTypeOverlay, Link: "../x"}, entryPointRoot: true, expected: links.OverlayLink},
		{name: "overlay_below_root", entry: manifest.RepoEntry{Type: manifest.EntryTypeOverlay, Link: "../x"}, entryPointRoot: false, expected: links.Ignored},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, resolver.Classify(testCase.entry, testCase.entryPointRoot))
		})
	}
}

func TestResolveTargetQualifiesLinks(testInstance *testing.T) {
	resolver := newTestResolver("/home/tester")

	testCases := []struct {
		name             string
		entry            manifest.RepoEntry
		expectedTarget   string
		expectedRelative bool
	}{
		{name: "relative", entry: manifest.RepoEntry{Link: "../shared"}, expectedTarget: "/work/shared", expectedRelative: true},
		{name: "absolute", entry: manifest.RepoEntry{Link: "/opt/tools/"}, expectedTarget: "/opt/tools", expectedRelative: false},
		{name: "home", entry: manifest.RepoEntry{Link: "~/cache"}, expectedTarget: "/home/tester/cache", expectedRelative: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			target, resolveError := resolver.ResolveTarget("/work/root", testCase.entry)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedTarget, target)
			require.Equal(testInstance, testCase.expectedRelative, resolver.IsRelative(testCase.entry))
		})
	}
}

func TestResolveTargetPicksNewestMatchingSubdirectory(testInstance *testing.T) {
	baseDirectory := testInstance.TempDir()
	searchDirectory := filepath.Join(baseDirectory, "builds")
	baseTime := time.Now().Add(-time.Hour)
	for index, name := range []string{"release-1", "nightly-9", "release-2", "notes.txt"} {
		candidatePath := filepath.Join(searchDirectory, name)
		if filepath.Ext(name) == ".txt" {
			require.NoError(testInstance, os.WriteFile(candidatePath, []byte("x"), 0o644))
		} else {
			require.NoError(testInstance, os.MkdirAll(candidatePath, 0o755))
		}
		modified := baseTime.Add(time.Duration(index) * time.Minute)
		require.NoError(testInstance, os.Chtimes(candidatePath, modified, modified))
	}

	resolver := newTestResolver(baseDirectory)

	newest, newestError := resolver.ResolveTarget(baseDirectory, manifest.RepoEntry{Link: "builds", LinkNewest: true})
	require.NoError(testInstance, newestError)
	require.Equal(testInstance, filepath.Join(searchDirectory, "release-2"), newest)

	filtered, filteredError := resolver.ResolveTarget(baseDirectory, manifest.RepoEntry{Link: "builds", LinkNewest: true, LinkFilter: "^nightly-"})
	require.NoError(testInstance, filteredError)
	require.Equal(testInstance, filepath.Join(searchDirectory, "nightly-9"), filtered)

	_, noMatchError := resolver.ResolveTarget(baseDirectory, manifest.RepoEntry{Link: "builds", LinkNewest: true, LinkFilter: "^hotfix-"})
	require.Error(testInstance, noMatchError)
	require.Equal(testInstance, failures.KindCollaboratorFailure, failures.KindOf(noMatchError))

	_, missingError := resolver.ResolveTarget(baseDirectory, manifest.RepoEntry{Link: "absent", LinkNewest: true})
	require.ErrorContains(testInstance, missingError, "does not exist")
}

func TestInspectReportsLinkStates(testInstance *testing.T) {
	workspace := testInstance.TempDir()
	expectedTarget := filepath.Join(workspace, "expected")
	otherTarget := filepath.Join(workspace, "other")
	require.NoError(testInstance, os.MkdirAll(expectedTarget, 0o755))
	require.NoError(testInstance, os.MkdirAll(otherTarget, 0o755))

	alignedRelative := filepath.Join(workspace, "aligned-relative")
	require.NoError(testInstance, os.Symlink("expected", alignedRelative))
	alignedAbsolute := filepath.Join(workspace, "aligned-absolute")
	require.NoError(testInstance, os.Symlink(expectedTarget, alignedAbsolute))
	unaligned := filepath.Join(workspace, "unaligned")
	require.NoError(testInstance, os.Symlink(otherTarget, unaligned))
	unlinked := filepath.Join(workspace, "unlinked")
	require.NoError(testInstance, os.MkdirAll(unlinked, 0o755))

	resolver := newTestResolver(workspace)
	testCases := []struct {
		name     string
		linkPath string
		expected links.State
	}{
		{name: "nonexistent", linkPath: filepath.Join(workspace, "missing"), expected: links.StateNonexistent},
		{name: "unlinked", linkPath: unlinked, expected: links.StateUnlinked},
		{name: "unaligned", linkPath: unaligned, expected: links.StateUnaligned},
		{name: "aligned_relative", linkPath: alignedRelative, expected: links.StateAligned},
		{name: "aligned_absolute", linkPath: alignedAbsolute, expected: links.StateAligned},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			inspection, inspectError := resolver.Inspect(testCase.linkPath, expectedTarget)
			require.NoError(testInstance, inspectError)
			require.Equal(testInstance, testCase.expected, inspection.State)
		})
	}
}

func TestSymlinkText(testInstance *testing.T) {
	relativeText, relativeError := links.SymlinkText("/work/root/libs/core", "/work/shared/core", true)
	require.NoError(testInstance, relativeError)
	require.Equal(testInstance, "../../shared/core", relativeText)

	absoluteText, absoluteError := links.SymlinkText("/work/root/libs/core", "/opt/core/", false)
	require.NoError(testInstance, absoluteError)
	require.Equal(testInstance, "/opt/core", absoluteText)
}
