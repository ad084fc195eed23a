package execshell

// CommandEventObserver is notified around every command the ShellExecutor runs. The CLI uses it
// to relay hook output to the user while git output stays in the log.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	// CommandCompleted receives the captured output, including nonzero exit codes.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports commands that produced no result, such as a missing executable.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
