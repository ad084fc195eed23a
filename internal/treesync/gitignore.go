package treesync

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	gitIgnorePermissionsConstant = 0o644
	gitIgnoreSeparatorConstant   = "/"
	gitIgnoreUpdatedMessage      = "Updated .gitignore"
	newlineConstant              = "\n"
)

// ignoreChild appends childPath to the .gitignore of directory unless an equivalent pattern is present.
func (engine *Engine) ignoreChild(directory string, childPath string) error {
	gitIgnorePath := filepath.Join(directory, defaultGitIgnoreFileConstant)
	contents, readError := engine.fileSystem.ReadFile(gitIgnorePath)
	if readError != nil && !errors.Is(readError, fs.ErrNotExist) {
		return readError
	}

	pattern := strings.Trim(filepath.ToSlash(childPath), gitIgnoreSeparatorConstant)
	for _, line := range strings.Split(string(contents), newlineConstant) {
		if strings.Trim(strings.TrimSpace(line), gitIgnoreSeparatorConstant) == pattern {
			return nil
		}
	}

	updated := string(contents)
	if len(updated) > 0 && !strings.HasSuffix(updated, newlineConstant) {
		updated += newlineConstant
	}
	updated += pattern + newlineConstant
	if writeError := engine.fileSystem.WriteFile(gitIgnorePath, []byte(updated), gitIgnorePermissionsConstant); writeError != nil {
		return writeError
	}
	engine.logger.Debug(gitIgnoreUpdatedMessage, zap.String(pathLogFieldConstant, gitIgnorePath), zap.String(targetLogFieldConstant, pattern))
	return nil
}

// unignoreChild drops the patterns equivalent to childPath from the .gitignore of directory.
func (engine *Engine) unignoreChild(directory string, childPath string) error {
	gitIgnorePath := filepath.Join(directory, defaultGitIgnoreFileConstant)
	contents, readError := engine.fileSystem.ReadFile(gitIgnorePath)
	if errors.Is(readError, fs.ErrNotExist) {
		return nil
	}
	if readError != nil {
		return readError
	}

	pattern := strings.Trim(filepath.ToSlash(childPath), gitIgnoreSeparatorConstant)
	lines := strings.Split(string(contents), newlineConstant)
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Trim(strings.TrimSpace(line), gitIgnoreSeparatorConstant) == pattern {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == len(lines) {
		return nil
	}
	if writeError := engine.fileSystem.WriteFile(gitIgnorePath, []byte(strings.Join(kept, newlineConstant)), gitIgnorePermissionsConstant); writeError != nil {
		return writeError
	}
	engine.logger.Debug(gitIgnoreUpdatedMessage, zap.String(pathLogFieldConstant, gitIgnorePath), zap.String(targetLogFieldConstant, pattern))
	return nil
}
