package treesync

import (
	"errors"
	"fmt"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/invocation"
)

const (
	collaboratorFailureTemplateConstant = "%s %s: %v"
	hookFailureTemplateConstant         = "%s hook %q in %s: %v"
	localChangesTemplateConstant        = "local changes present in %s (use --force to discard them)"
)

var (
	// ErrUnknownPath indicates that an operation named a path absent from the tree.
	ErrUnknownPath = errors.New("path is not part of the repository tree")

	// ErrNotLinked indicates that an unlink targeted a path that is not a link.
	ErrNotLinked = errors.New("path is not linked")

	// ErrOverlayNotDeclared indicates that an overlay removal named an undeclared overlay.
	ErrOverlayNotDeclared = errors.New("overlay is not declared in the entry-point manifest")

	// ErrAlreadyDeclared indicates that a declaration targeted a path the manifest already declares.
	ErrAlreadyDeclared = errors.New("path is already declared")

	// ErrDestinationExists indicates that AddRepository targeted an existing directory.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrLinkedParent indicates that a declaration would modify a repository reached through a link.
	ErrLinkedParent = errors.New("cannot modify a repository reached through a link")

	// ErrSelfLink indicates that a link would point at its own location.
	ErrSelfLink = errors.New("link cannot point at itself")

	// ErrLinkSourceMissing indicates that a link source directory does not exist.
	ErrLinkSourceMissing = errors.New("link source does not exist (use --force to link anyway)")

	// ErrRootOperation indicates that an operation targeted the entry-point root itself.
	ErrRootOperation = errors.New("operation cannot target the entry-point root")

	// ErrOverlayTarget indicates that an ordinary link operation targeted an overlay node.
	ErrOverlayTarget = errors.New("path is occupied by an overlay; use the overlay variant")
)

// CollaboratorFailureError reports a failed git or filesystem operation on a node.
type CollaboratorFailureError struct {
	Path      string
	Operation string
	Err       error
}

// Error describes the failed operation.
func (collaboratorError CollaboratorFailureError) Error() string {
	return fmt.Sprintf(collaboratorFailureTemplateConstant, collaboratorError.Operation, invocation.DisplayPath(collaboratorError.Path), collaboratorError.Err)
}

// Unwrap exposes the underlying failure.
func (collaboratorError CollaboratorFailureError) Unwrap() error {
	return collaboratorError.Err
}

// Kind classifies the error.
func (CollaboratorFailureError) Kind() failures.Kind {
	return failures.KindCollaboratorFailure
}

// HookFailureError reports a post_clone or post_pull command that failed.
type HookFailureError struct {
	Path    string
	Hook    string
	Command string
	Err     error
}

// Error describes the failed hook.
func (hookError HookFailureError) Error() string {
	return fmt.Sprintf(hookFailureTemplateConstant, hookError.Hook, hookError.Command, invocation.DisplayPath(hookError.Path), hookError.Err)
}

// Unwrap exposes the underlying failure.
func (hookError HookFailureError) Unwrap() error {
	return hookError.Err
}

// Kind classifies the error.
func (HookFailureError) Kind() failures.Kind {
	return failures.KindHookFailure
}

// LocalChangesError reports a directory that cannot be replaced without discarding local changes.
type LocalChangesError struct {
	Path string
}

// Error describes the refusal.
func (localChangesError LocalChangesError) Error() string {
	return fmt.Sprintf(localChangesTemplateConstant, invocation.DisplayPath(localChangesError.Path))
}

// Kind classifies the error.
func (LocalChangesError) Kind() failures.Kind {
	return failures.KindCollaboratorFailure
}
