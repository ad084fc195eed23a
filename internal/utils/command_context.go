package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	entryPointRootContextKeyConstant        = commandContextKey("entryPointRoot")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return accessor.with(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return accessor.lookup(executionContext, configurationFilePathContextKeyConstant)
}

// WithEntryPointRoot attaches the directory of the repository the command was invoked from.
func (accessor CommandContextAccessor) WithEntryPointRoot(parentContext context.Context, entryPointRoot string) context.Context {
	return accessor.with(parentContext, entryPointRootContextKeyConstant, entryPointRoot)
}

// EntryPointRoot extracts the entry-point root directory from the provided context.
func (accessor CommandContextAccessor) EntryPointRoot(executionContext context.Context) (string, bool) {
	return accessor.lookup(executionContext, entryPointRootContextKeyConstant)
}

func (accessor CommandContextAccessor) with(parentContext context.Context, key commandContextKey, value string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, key, value)
}

func (accessor CommandContextAccessor) lookup(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, available := executionContext.Value(key).(string)
	if !available || len(value) == 0 {
		return "", false
	}
	return value, true
}
