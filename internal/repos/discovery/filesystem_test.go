package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/repos/discovery"
)

const (
	rootRepositoryDirectoryName    = "Root"
	childRepositoryDirectoryName   = "child"
	nestedDirectoryName            = "src"
	gitMetadataDirectoryName       = ".git"
	repositoryDirectoryPermissions = 0o755
)

func TestFindRepositoryRoot(testInstance *testing.T) {
	temporaryRootDirectory := testInstance.TempDir()
	rootRepository := filepath.Join(temporaryRootDirectory, rootRepositoryDirectoryName)
	childRepository := filepath.Join(rootRepository, childRepositoryDirectoryName)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(rootRepository, gitMetadataDirectoryName), repositoryDirectoryPermissions))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(childRepository, gitMetadataDirectoryName), repositoryDirectoryPermissions))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(childRepository, nestedDirectoryName), repositoryDirectoryPermissions))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(rootRepository, nestedDirectoryName), repositoryDirectoryPermissions))

	testCases := []struct {
		name           string
		startDirectory string
		expectedRoot   string
		expectNotFound bool
	}{
		{name: "repository_root_itself", startDirectory: rootRepository, expectedRoot: rootRepository},
		{name: "nested_directory_of_root", startDirectory: filepath.Join(rootRepository, nestedDirectoryName), expectedRoot: rootRepository},
		{name: "nearest_child_repository_wins", startDirectory: filepath.Join(childRepository, nestedDirectoryName), expectedRoot: childRepository},
		{name: "outside_any_repository", startDirectory: temporaryRootDirectory, expectNotFound: true},
	}

	discoverer := discovery.NewFilesystemRepositoryDiscoverer()
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryRoot, discoveryError := discoverer.FindRepositoryRoot(testCase.startDirectory)
			if testCase.expectNotFound {
				// The temporary directory may itself live inside a repository on some machines.
				if discoveryError == nil {
					require.NotEqual(testInstance, rootRepository, repositoryRoot)
					return
				}
				require.ErrorIs(testInstance, discoveryError, discovery.ErrRepositoryNotFound)
				return
			}
			require.NoError(testInstance, discoveryError)
			require.Equal(testInstance, testCase.expectedRoot, repositoryRoot)
		})
	}
}
