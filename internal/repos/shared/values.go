package shared

import (
	"errors"
	"strings"
)

// ErrRepositoryPathInvalid indicates an empty or multi-line repository path.
var ErrRepositoryPathInvalid = errors.New("repository path must be a single non-empty line")

// ErrRemoteURLInvalid indicates an empty or whitespace-containing remote URL.
var ErrRemoteURLInvalid = errors.New("remote url must be non-empty and contain no whitespace")

// ErrRevisionInvalid indicates a branch or commit containing whitespace.
var ErrRevisionInvalid = errors.New("revision must not contain whitespace")

// RepositoryPath is a validated filesystem path of a repository or tree node.
type RepositoryPath struct {
	value string
}

// NewRepositoryPath trims and validates raw.
func NewRepositoryPath(raw string) (RepositoryPath, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 || strings.ContainsAny(trimmed, "\r\n") {
		return RepositoryPath{}, ErrRepositoryPathInvalid
	}
	return RepositoryPath{value: trimmed}, nil
}

// String returns the path.
func (repositoryPath RepositoryPath) String() string {
	return repositoryPath.value
}

// RemoteURL is a validated clone source.
type RemoteURL struct {
	value string
}

// NewRemoteURL trims and validates raw.
func NewRemoteURL(raw string) (RemoteURL, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 || strings.ContainsAny(trimmed, " \t\r\n") {
		return RemoteURL{}, ErrRemoteURLInvalid
	}
	return RemoteURL{value: trimmed}, nil
}

// String returns the URL.
func (remoteURL RemoteURL) String() string {
	return remoteURL.value
}

// ParseRemoteURLOptional normalizes remote URLs, returning nil when empty.
func ParseRemoteURLOptional(raw string) (*RemoteURL, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	remoteURL, remoteURLError := NewRemoteURL(trimmed)
	if remoteURLError != nil {
		return nil, remoteURLError
	}
	return &remoteURL, nil
}

// ParseRevisionOptional trims a branch or commit, returning an empty string when unset.
func ParseRevisionOptional(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return "", ErrRevisionInvalid
	}
	return trimmed, nil
}
