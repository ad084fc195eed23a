package gitrepo

import (
	"fmt"
	"path"
	"strings"
)

const (
	schemeDelimiterConstant             = "://"
	scpPathDelimiterConstant            = ":"
	pathSeparatorConstant               = "/"
	windowsPathSeparatorConstant        = "\\"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	requiredValueMessageConstant        = "value required"
	invalidRemoteURLMessageConstant     = "cannot derive repository name"
)

// RemoteURLParseError indicates a remote string could not be interpreted.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// RepositoryNameFromURL derives the directory name git would clone remote into.
// It accepts scheme URLs (https://host/owner/name.git), scp-like addresses
// (git@host:owner/name.git), and local paths.
func RepositoryNameFromURL(remote string) (string, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return "", RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	remotePath := trimmedRemote
	if schemeIndex := strings.Index(remotePath, schemeDelimiterConstant); schemeIndex >= 0 {
		remotePath = remotePath[schemeIndex+len(schemeDelimiterConstant):]
		if slashIndex := strings.Index(remotePath, pathSeparatorConstant); slashIndex >= 0 {
			remotePath = remotePath[slashIndex:]
		}
	} else if isScpLikeAddress(remotePath) {
		remotePath = remotePath[strings.Index(remotePath, scpPathDelimiterConstant)+1:]
	}

	remotePath = strings.ReplaceAll(remotePath, windowsPathSeparatorConstant, pathSeparatorConstant)
	remotePath = strings.TrimRight(remotePath, pathSeparatorConstant)
	repositoryName := strings.TrimSuffix(path.Base(remotePath), gitSuffixConstant)
	if len(repositoryName) == 0 || repositoryName == "." || repositoryName == pathSeparatorConstant {
		return "", RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return repositoryName, nil
}

// isScpLikeAddress reports whether remote uses git's user@host:path shorthand.
func isScpLikeAddress(remote string) bool {
	colonIndex := strings.Index(remote, scpPathDelimiterConstant)
	if colonIndex <= 1 {
		return false
	}
	slashIndex := strings.Index(remote, pathSeparatorConstant)
	return slashIndex < 0 || colonIndex < slashIndex
}
