package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CommandName identifies an external executable.
type CommandName string

// Supported external executables.
const (
	CommandGit   CommandName = "git"
	CommandShell CommandName = "sh"
)

const (
	shellScriptFlagConstant            = "-c"
	commandFailedTemplateConstant      = "%s exited with code %d%s"
	commandExecutionTemplateConstant   = "%s could not be executed: %v"
	commandErrorSuffixTemplateConstant = ": %s"
	commandLogFieldNameConstant        = "command"
	directoryLogFieldNameConstant      = "directory"
	exitCodeLogFieldNameConstant       = "exit_code"
)

// ErrLoggerNotConfigured indicates that a logger was not supplied.
var ErrLoggerNotConfigured = errors.New("shell executor logger not configured")

// ErrCommandRunnerNotConfigured indicates that a command runner was not supplied.
var ErrCommandRunnerNotConfigured = errors.New("shell executor command runner not configured")

// CommandDetails describes how to invoke an executable.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand couples an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes a command and reports its result. A nonzero exit code is not an error.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error)
}

// CommandFailedError reports a command that exited with a nonzero status.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command.
func (failedError CommandFailedError) Error() string {
	standardErrorSuffix := ""
	trimmedStandardError := strings.TrimSpace(failedError.Result.StandardError)
	if len(trimmedStandardError) > 0 {
		standardErrorSuffix = fmt.Sprintf(commandErrorSuffixTemplateConstant, trimmedStandardError)
	}
	return fmt.Sprintf(commandFailedTemplateConstant, describeCommand(failedError.Command), failedError.Result.ExitCode, standardErrorSuffix)
}

// CommandExecutionError reports a command that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionTemplateConstant, describeCommand(executionError.Command), executionError.Cause)
}

// Unwrap exposes the underlying cause.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ShellExecutor runs external commands and logs their lifecycle.
type ShellExecutor struct {
	logger           *zap.Logger
	runner           CommandRunner
	messageFormatter CommandMessageFormatter
	observer         CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{logger: logger, runner: runner, observer: noopCommandEventObserver{}}, nil
}

// WithObserver returns a copy of the executor that reports command events to observer.
func (executor *ShellExecutor) WithObserver(observer CommandEventObserver) *ShellExecutor {
	observed := *executor
	if observer == nil {
		observer = noopCommandEventObserver{}
	}
	observed.observer = observer
	return &observed
}

// Execute runs the supplied command.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	logFields := []zap.Field{
		zap.String(commandLogFieldNameConstant, describeCommand(command)),
		zap.String(directoryLogFieldNameConstant, command.Details.WorkingDirectory),
	}
	executor.logger.Debug(executor.messageFormatter.BuildStartedMessage(command), logFields...)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Error(executor.messageFormatter.BuildExecutionFailureMessage(command, runError), logFields...)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)
	if executionResult.ExitCode != 0 {
		failureFields := append(logFields, zap.Int(exitCodeLogFieldNameConstant, executionResult.ExitCode))
		executor.logger.Warn(executor.messageFormatter.BuildFailureMessage(command, executionResult), failureFields...)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Info(executor.messageFormatter.BuildSuccessMessage(command), logFields...)
	return executionResult, nil
}

// ExecuteGit runs git with the supplied details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteShell runs script through sh -c with the supplied details.
func (executor *ShellExecutor) ExecuteShell(executionContext context.Context, script string, details CommandDetails) (ExecutionResult, error) {
	shellDetails := details
	shellDetails.Arguments = []string{shellScriptFlagConstant, script}
	return executor.Execute(executionContext, ShellCommand{Name: CommandShell, Details: shellDetails})
}

func describeCommand(command ShellCommand) string {
	if len(command.Details.Arguments) == 0 {
		return string(command.Name)
	}
	return string(command.Name) + " " + strings.Join(command.Details.Arguments, " ")
}
