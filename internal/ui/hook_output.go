package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/temirov/gitp/internal/execshell"
)

const (
	hookOutputLineTemplateConstant = "  | %s\n"
	lineSeparatorConstant          = "\n"
)

// HookOutputPrinter relays the output of shell hooks to a writer once each hook finishes.
// Git commands are ignored. It implements execshell.CommandEventObserver.
type HookOutputPrinter struct {
	mutex  sync.Mutex
	writer io.Writer
}

// NewHookOutputPrinter constructs a HookOutputPrinter writing to writer.
func NewHookOutputPrinter(writer io.Writer) *HookOutputPrinter {
	if writer == nil {
		writer = io.Discard
	}
	return &HookOutputPrinter{writer: writer}
}

// CommandStarted implements execshell.CommandEventObserver.
func (printer *HookOutputPrinter) CommandStarted(execshell.ShellCommand) {}

// CommandCompleted prints the standard output of a hook, followed by its standard error when it failed.
func (printer *HookOutputPrinter) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if printer == nil || command.Name != execshell.CommandShell {
		return
	}
	lines := outputLines(result.StandardOutput)
	if result.ExitCode != 0 {
		lines = append(lines, outputLines(result.StandardError)...)
	}
	if len(lines) == 0 {
		return
	}

	// Sibling subtrees may run hooks concurrently; keep each hook's lines together.
	printer.mutex.Lock()
	defer printer.mutex.Unlock()
	for _, line := range lines {
		fmt.Fprintf(printer.writer, hookOutputLineTemplateConstant, line)
	}
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (printer *HookOutputPrinter) CommandExecutionFailed(execshell.ShellCommand, error) {}

func outputLines(output string) []string {
	trimmed := strings.TrimRight(output, lineSeparatorConstant)
	if len(strings.TrimSpace(trimmed)) == 0 {
		return nil
	}
	return strings.Split(trimmed, lineSeparatorConstant)
}
