// Package execshell runs the external collaborators gitp delegates to: git for
// repository operations and sh for manifest hooks.
//
// ShellExecutor logs every invocation through zap using human-readable
// messages from CommandMessageFormatter, while OSCommandRunner performs the
// actual process execution so callers can substitute a recording runner in
// tests.
package execshell
