package treesync

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/execshell"
	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/tree"
)

const (
	postCloneHookConstant         = "post_clone"
	postPullHookConstant          = "post_pull"
	hookCompletedTemplateConstant = "HOOK: %s %s: %s\n"
	hookStartedMessageConstant    = "Running hook"
)

// runHooks executes commands in order inside the node's directory and stops at the first failure.
func (engine *Engine) runHooks(executionContext context.Context, resolved *tree.Tree, node *tree.Node, hook string, commands []string) error {
	invocationContext := resolved.Invocation().WithNode(node.Path())
	for _, command := range commands {
		engine.logger.Debug(hookStartedMessageConstant, zap.String(hookLogFieldConstant, hook), zap.String(pathLogFieldConstant, invocation.DisplayPath(node.Path())), zap.String(commandLogFieldConstant, command))
		details := execshell.CommandDetails{
			WorkingDirectory:     node.Directory(),
			EnvironmentVariables: invocationContext.Environment(),
		}
		hookError := engine.external(executionContext, func() error {
			_, executionError := engine.hooks.ExecuteShell(executionContext, command, details)
			return executionError
		})
		if hookError != nil {
			return HookFailureError{Path: node.Path(), Hook: hook, Command: command, Err: hookError}
		}
		engine.reporter.Printf(hookCompletedTemplateConstant, hook, invocation.DisplayPath(node.Path()), command)
	}
	return nil
}
