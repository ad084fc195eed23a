package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/repos/filesystem"
	"github.com/temirov/gitp/internal/repos/shared"
)

const (
	manifestFilePermissionsConstant  = 0o644
	temporaryFileSuffixConstant      = ".tmp"
	notFoundTemplateConstant         = "%w: %s"
	readErrorTemplateConstant        = "read manifest %s: %w"
	writeErrorTemplateConstant       = "write manifest %s: %w"
	manifestLoadedMessageConstant    = "Loaded manifest"
	manifestSavedMessageConstant     = "Saved manifest"
	manifestPathLogFieldConstant     = "manifest"
	declarationCountLogFieldConstant = "declarations"
)

// Store loads and persists manifests inside repository directories.
type Store struct {
	fileSystem shared.FileSystem
	fileName   string
	logger     *zap.Logger
}

// NewStore constructs a Store. Empty arguments fall back to the OS filesystem, DefaultFileName, and a no-op logger.
func NewStore(fileSystem shared.FileSystem, fileName string, logger *zap.Logger) *Store {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	if len(strings.TrimSpace(fileName)) == 0 {
		fileName = DefaultFileName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{fileSystem: fileSystem, fileName: strings.TrimSpace(fileName), logger: logger}
}

// FileName returns the manifest file name looked up in each directory.
func (store *Store) FileName() string {
	return store.fileName
}

// PathFor returns the manifest file path inside directory.
func (store *Store) PathFor(directory string) string {
	return filepath.Join(directory, store.fileName)
}

// Exists reports whether directory holds a manifest file.
func (store *Store) Exists(directory string) (bool, error) {
	_, statError := store.fileSystem.Stat(store.PathFor(directory))
	if statError == nil {
		return true, nil
	}
	if errors.Is(statError, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf(readErrorTemplateConstant, store.PathFor(directory), statError)
}

// Load reads and validates the manifest inside directory. A missing file yields ErrNotFound.
func (store *Store) Load(directory string) (*Manifest, error) {
	manifestPath := store.PathFor(directory)
	contents, readError := store.fileSystem.ReadFile(manifestPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, fmt.Errorf(notFoundTemplateConstant, ErrNotFound, manifestPath)
		}
		return nil, fmt.Errorf(readErrorTemplateConstant, manifestPath, readError)
	}

	manifest, decodeError := Decode(contents)
	if decodeError != nil {
		return nil, attachFile(decodeError, manifestPath)
	}
	store.logger.Debug(manifestLoadedMessageConstant, zap.String(manifestPathLogFieldConstant, manifestPath), zap.Int(declarationCountLogFieldConstant, manifest.Len()))
	return manifest, nil
}

// Save validates manifest and writes it into directory through a temporary file and rename.
func (store *Store) Save(directory string, manifest *Manifest) error {
	manifestPath := store.PathFor(directory)
	if validationError := Validate(manifest); validationError != nil {
		return attachFile(validationError, manifestPath)
	}
	contents, encodeError := Encode(manifest)
	if encodeError != nil {
		return fmt.Errorf(writeErrorTemplateConstant, manifestPath, encodeError)
	}

	temporaryPath := manifestPath + temporaryFileSuffixConstant
	if writeError := store.fileSystem.WriteFile(temporaryPath, contents, manifestFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(writeErrorTemplateConstant, manifestPath, writeError)
	}
	if renameError := store.fileSystem.Rename(temporaryPath, manifestPath); renameError != nil {
		_ = store.fileSystem.Remove(temporaryPath)
		return fmt.Errorf(writeErrorTemplateConstant, manifestPath, renameError)
	}
	store.logger.Info(manifestSavedMessageConstant, zap.String(manifestPathLogFieldConstant, manifestPath), zap.Int(declarationCountLogFieldConstant, manifest.Len()))
	return nil
}
