// Package ui formats human-readable console output for gitp commands.
//
// StatusRenderer prints status reports as an indented, optionally colored tree.
// HookOutputPrinter relays what manifest hooks print so that command results
// stay on standard output while diagnostics flow through structured loggers.
package ui
