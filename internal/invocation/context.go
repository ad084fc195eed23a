package invocation

import (
	"crypto/rand"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// ParentRepositoryEnvironmentVariable signals whether the repository a process runs against is the entry-point root.
	ParentRepositoryEnvironmentVariable = "GITP_PARENT_REPO"
	// RepositoryPathEnvironmentVariable carries the tree path of the repository a process runs against.
	RepositoryPathEnvironmentVariable = "GITP_REPO_PATH"
	// InvocationIdentifierEnvironmentVariable carries the identifier shared by every process of one invocation.
	InvocationIdentifierEnvironmentVariable = "GITP_INVOCATION_ID"

	entryPointRootValueConstant = "1"
	descendantValueConstant     = "0"
	rootPathLabelConstant       = "."
)

var (
	entropyMutex  sync.Mutex
	entropySource = ulid.Monotonic(rand.Reader, 0)
)

// Context describes one command invocation as seen from a single node of the tree.
type Context struct {
	identifier     ulid.ULID
	entryPointRoot string
	nodePath       string
}

// New creates the context of a fresh invocation rooted at entryPointRoot.
func New(entryPointRoot string) Context {
	entropyMutex.Lock()
	identifier := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropySource)
	entropyMutex.Unlock()
	return NewWithIdentifier(entryPointRoot, identifier)
}

// NewWithIdentifier creates an invocation context with a caller-supplied identifier.
func NewWithIdentifier(entryPointRoot string, identifier ulid.ULID) Context {
	return Context{identifier: identifier, entryPointRoot: filepath.Clean(entryPointRoot)}
}

// Identifier returns the invocation identifier.
func (invocationContext Context) Identifier() ulid.ULID {
	return invocationContext.identifier
}

// EntryPointRoot returns the directory the command was invoked against.
func (invocationContext Context) EntryPointRoot() string {
	return invocationContext.entryPointRoot
}

// NodePath returns the slash-separated tree path of the current node; the root is empty.
func (invocationContext Context) NodePath() string {
	return invocationContext.nodePath
}

// IsEntryPointRoot reports whether the current node is the entry-point root.
func (invocationContext Context) IsEntryPointRoot() bool {
	return len(invocationContext.nodePath) == 0
}

// WithNode returns a copy of the context positioned at nodePath.
func (invocationContext Context) WithNode(nodePath string) Context {
	positioned := invocationContext
	positioned.nodePath = NormalizePath(nodePath)
	return positioned
}

// Directory returns the filesystem directory of the current node.
func (invocationContext Context) Directory() string {
	return invocationContext.DirectoryOf(invocationContext.nodePath)
}

// DirectoryOf returns the filesystem directory of the node at nodePath.
func (invocationContext Context) DirectoryOf(nodePath string) string {
	normalized := NormalizePath(nodePath)
	if len(normalized) == 0 {
		return invocationContext.entryPointRoot
	}
	return filepath.Join(invocationContext.entryPointRoot, filepath.FromSlash(normalized))
}

// Environment returns the variables set on every process spawned for the current node.
func (invocationContext Context) Environment() map[string]string {
	parentValue := descendantValueConstant
	if invocationContext.IsEntryPointRoot() {
		parentValue = entryPointRootValueConstant
	}
	return map[string]string{
		ParentRepositoryEnvironmentVariable:     parentValue,
		RepositoryPathEnvironmentVariable:       DisplayPath(invocationContext.nodePath),
		InvocationIdentifierEnvironmentVariable: invocationContext.identifier.String(),
	}
}

// NormalizePath converts a tree path to its canonical slash-separated form without leading or trailing separators.
func NormalizePath(nodePath string) string {
	slashed := strings.TrimSpace(filepath.ToSlash(nodePath))
	if len(slashed) == 0 {
		return ""
	}
	cleaned := path.Clean(slashed)
	cleaned = strings.Trim(cleaned, "/")
	if cleaned == rootPathLabelConstant {
		return ""
	}
	return cleaned
}

// JoinPath appends a relative child path to a parent tree path.
func JoinPath(parentPath string, childPath string) string {
	normalizedChild := NormalizePath(childPath)
	if len(parentPath) == 0 {
		return normalizedChild
	}
	if len(normalizedChild) == 0 {
		return NormalizePath(parentPath)
	}
	return NormalizePath(parentPath + "/" + normalizedChild)
}

// ParentPath returns the tree path of the parent of nodePath; the root has no parent and returns itself.
func ParentPath(nodePath string) string {
	normalized := NormalizePath(nodePath)
	separatorIndex := strings.LastIndex(normalized, "/")
	if separatorIndex < 0 {
		return ""
	}
	return normalized[:separatorIndex]
}

// DisplayPath renders a tree path for humans, showing the root as ".".
func DisplayPath(nodePath string) string {
	if len(nodePath) == 0 {
		return rootPathLabelConstant
	}
	return nodePath
}

// IsAncestorPath reports whether ancestorPath is a strict ancestor of nodePath.
func IsAncestorPath(ancestorPath string, nodePath string) bool {
	if ancestorPath == nodePath {
		return false
	}
	if len(ancestorPath) == 0 {
		return true
	}
	return strings.HasPrefix(nodePath, ancestorPath+"/")
}
