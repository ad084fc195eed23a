package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/gitrepo"
)

func TestRepositoryNameFromURL(testInstance *testing.T) {
	testCases := []struct {
		name         string
		remote       string
		expectedName string
		expectError  bool
	}{
		{name: "https_with_suffix", remote: "https://github.com/owner/child.git", expectedName: "child"},
		{name: "https_trailing_slash", remote: "https://example.com/group/sub/child/", expectedName: "child"},
		{name: "scp_like", remote: "git@github.com:owner/child.git", expectedName: "child"},
		{name: "ssh_scheme", remote: "ssh://git@example.com:2222/owner/child.git", expectedName: "child"},
		{name: "file_scheme", remote: "file:///srv/git/child.git", expectedName: "child"},
		{name: "local_path", remote: "/srv/git/child", expectedName: "child"},
		{name: "relative_path", remote: "../child.git", expectedName: "child"},
		{name: "empty", remote: "   ", expectError: true},
		{name: "host_only", remote: "https://example.com/", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryName, parseError := gitrepo.RepositoryNameFromURL(testCase.remote)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				require.IsType(testInstance, gitrepo.RemoteURLParseError{}, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedName, repositoryName)
		})
	}
}
