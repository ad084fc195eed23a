package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	gitMetadataDirectoryNameConstant   = ".git"
	repositoryNotFoundTemplateConstant = "%w: %s"
)

// ErrRepositoryNotFound indicates that no enclosing git repository exists.
var ErrRepositoryNotFound = errors.New("not inside a git repository")

// FilesystemRepositoryDiscoverer locates git repositories on disk.
type FilesystemRepositoryDiscoverer struct {
	statPath func(path string) (fs.FileInfo, error)
}

// NewFilesystemRepositoryDiscoverer constructs a repository discoverer backed by os.Stat.
func NewFilesystemRepositoryDiscoverer() *FilesystemRepositoryDiscoverer {
	return &FilesystemRepositoryDiscoverer{statPath: os.Stat}
}

// FindRepositoryRoot walks upward from startDirectory and returns the first directory containing a .git entry.
func (discoverer *FilesystemRepositoryDiscoverer) FindRepositoryRoot(startDirectory string) (string, error) {
	currentDirectory, absoluteError := filepath.Abs(startDirectory)
	if absoluteError != nil {
		return "", absoluteError
	}

	for {
		if _, statError := discoverer.statPath(filepath.Join(currentDirectory, gitMetadataDirectoryNameConstant)); statError == nil {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", fmt.Errorf(repositoryNotFoundTemplateConstant, ErrRepositoryNotFound, startDirectory)
		}
		currentDirectory = parentDirectory
	}
}
