package invocation_test

import (
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/invocation"
)

func TestEnvironmentSignalsEntryPointRoot(testInstance *testing.T) {
	identifier := ulid.MustParse("01HZY3J0Q8X5R9V2C7N4M6K1PB")
	rootContext := invocation.NewWithIdentifier("/work/root", identifier)

	testCases := []struct {
		name                string
		nodePath            string
		expectedParentValue string
		expectedPathValue   string
		expectedDirectory   string
	}{
		{name: "entry_point_root", nodePath: "", expectedParentValue: "1", expectedPathValue: ".", expectedDirectory: "/work/root"},
		{name: "direct_child", nodePath: "child", expectedParentValue: "0", expectedPathValue: "child", expectedDirectory: filepath.Join("/work/root", "child")},
		{name: "grandchild_with_trailing_separator", nodePath: "child/grandchild/", expectedParentValue: "0", expectedPathValue: "child/grandchild", expectedDirectory: filepath.Join("/work/root", "child", "grandchild")},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			nodeContext := rootContext.WithNode(testCase.nodePath)
			environment := nodeContext.Environment()
			require.Equal(testInstance, testCase.expectedParentValue, environment[invocation.ParentRepositoryEnvironmentVariable])
			require.Equal(testInstance, testCase.expectedPathValue, environment[invocation.RepositoryPathEnvironmentVariable])
			require.Equal(testInstance, identifier.String(), environment[invocation.InvocationIdentifierEnvironmentVariable])
			require.Equal(testInstance, testCase.expectedDirectory, nodeContext.Directory())
		})
	}
}

func TestNewAssignsDistinctIdentifiers(testInstance *testing.T) {
	first := invocation.New("/work")
	second := invocation.New("/work")
	require.NotEqual(testInstance, first.Identifier(), second.Identifier())
	require.True(testInstance, first.IsEntryPointRoot())
}

func TestPathHelpers(testInstance *testing.T) {
	require.Equal(testInstance, "", invocation.NormalizePath("./"))
	require.Equal(testInstance, "a/b", invocation.NormalizePath("a//b/"))
	require.Equal(testInstance, "a/b", invocation.JoinPath("a", "b/"))
	require.Equal(testInstance, "b", invocation.JoinPath("", "b"))
	require.Equal(testInstance, "a", invocation.ParentPath("a/b"))
	require.Equal(testInstance, "", invocation.ParentPath("a"))
	require.True(testInstance, invocation.IsAncestorPath("", "a"))
	require.True(testInstance, invocation.IsAncestorPath("a", "a/b"))
	require.False(testInstance, invocation.IsAncestorPath("a", "ab"))
	require.False(testInstance, invocation.IsAncestorPath("a", "a"))
}
