package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	treecmd "github.com/temirov/gitp/cmd/cli/tree"
	"github.com/temirov/gitp/internal/utils"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	applicationNameConstant                 = "gitp"
	applicationShortDescriptionConstant     = "Manage a tree of nested git repositories declared in manifests"
	applicationLongDescriptionConstant      = "gitp clones, updates, links, and inspects the repositories declared in .gitp_manifest files, starting from the repository enclosing the working directory."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Log format."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	treeConfigurationKeyConstant            = "tree"
	environmentPrefixConstant               = "GITP"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	entryPointRootFieldConstant             = "entry_point_root"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	workingDirectoryErrorTemplateConstant   = "unable to determine working directory: %w"
	developmentVersionConstant              = "dev"
	develBuildVersionConstant               = "(devel)"
)

// Version is the release identifier stamped at build time.
var Version = developmentVersionConstant

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tree   treecmd.Configuration          `mapstructure:"tree"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	commandContextAccessor utils.CommandContextAccessor
	collaborators          treecmd.Collaborators
}

// ApplicationOption customizes an Application during construction.
type ApplicationOption func(application *Application)

// WithCollaborators replaces the collaborators handed to every tree command.
func WithCollaborators(collaborators treecmd.Collaborators) ApplicationOption {
	return func(application *Application) {
		application.collaborators = collaborators
	}
}

// WithLogOutput redirects diagnostic logs, which go to standard error by default.
func WithLogOutput(output io.Writer) ApplicationOption {
	return func(application *Application) {
		application.loggerFactory = application.loggerFactory.WithOutput(output)
	}
}

// WithConfigurationSearchPaths replaces the directories searched for a configuration file.
func WithConfigurationSearchPaths(searchPaths []string) ApplicationOption {
	return func(application *Application) {
		application.configurationLoader = newConfigurationLoader(searchPaths)
	}
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication(options ...ApplicationOption) *Application {
	application := &Application{
		configurationLoader:    newConfigurationLoader(utils.DefaultSearchPaths(applicationNameConstant)),
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		configuration:          defaultApplicationConfiguration(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}
	for _, option := range options {
		option(application)
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       resolveVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	cobraCommand.SetContext(context.Background())

	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	flagutils.AddChoiceFlag(persistentFlags, &application.logLevelFlagValue, logLevelFlagNameConstant, string(utils.LogLevelWarn), utils.SupportedLogLevels(), logLevelFlagUsageConstant)
	flagutils.AddChoiceFlag(persistentFlags, &application.logFormatFlagValue, logFormatFlagNameConstant, string(utils.LogFormatConsole), utils.SupportedLogFormats(), logFormatFlagUsageConstant)
	treeDefaults := treecmd.DefaultConfiguration()
	flagutils.BindTreeFlags(cobraCommand, flagutils.TreeFlagValues{Jobs: treeDefaults.Jobs, Remote: treeDefaults.Remote})

	application.configurationLoader.BindFlag(commonLogLevelConfigKeyConstant, persistentFlags.Lookup(logLevelFlagNameConstant))
	application.configurationLoader.BindFlag(commonLogFormatConfigKeyConstant, persistentFlags.Lookup(logFormatFlagNameConstant))
	application.configurationLoader.BindFlag(treecmd.JobsConfigurationKey(treeConfigurationKeyConstant), persistentFlags.Lookup(flagutils.JobsFlagName))
	application.configurationLoader.BindFlag(treecmd.RemoteConfigurationKey(treeConfigurationKeyConstant), persistentFlags.Lookup(flagutils.RemoteFlagName))

	loggerProvider := func() *zap.Logger {
		return application.logger
	}
	configurationProvider := func() treecmd.Configuration {
		return application.configuration.Tree
	}

	builders := []interface {
		Build() (*cobra.Command, error)
	}{
		&treecmd.CloneCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
		&treecmd.PullCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
		&treecmd.StatusCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
		&treecmd.LinkCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
		&treecmd.UnlinkCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
		&treecmd.AddCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
		&treecmd.RemoteCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
		&treecmd.RmCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
		&treecmd.ExecCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, Collaborators: application.collaborators},
	}
	for _, builder := range builders {
		subcommand, buildError := builder.Build()
		if buildError == nil {
			cobraCommand.AddCommand(subcommand)
		}
	}

	application.rootCommand = cobraCommand
	return application
}

// Execute runs the configured Cobra command hierarchy with the process arguments and ensures logger flushing.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command hierarchy with arguments and ensures logger flushing.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	application.rootCommand.SetArgs(flagutils.NormalizeToggleArguments(arguments))
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// SetOutput redirects command output and error messages printed by Cobra.
func (application *Application) SetOutput(output io.Writer) {
	application.rootCommand.SetOut(output)
	application.rootCommand.SetErr(output)
}

// Configuration returns the configuration resolved by the last execution.
func (application *Application) Configuration() ApplicationConfiguration {
	return application.configuration
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelWarn),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for configurationKey, configurationValue := range treecmd.DefaultConfigurationValues(treeConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	logLevel, levelError := utils.ParseLogLevel(application.configuration.Common.LogLevel)
	if levelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, levelError)
	}
	logFormat, formatError := utils.ParseLogFormat(application.configuration.Common.LogFormat)
	if formatError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, formatError)
	}
	logger, loggerCreationError := application.loggerFactory.CreateLogger(logLevel, logFormat)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	workingDirectory := application.collaborators.WorkingDirectory
	if len(workingDirectory) == 0 {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}
	entryPointRoot := treecmd.DiscoverEntryPointRoot(application.collaborators.Discoverer, workingDirectory)

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, string(logLevel)),
		zap.String(configurationLogFormatFieldConstant, string(logFormat)),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(entryPointRootFieldConstant, entryPointRoot),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(command.Context(), application.configurationMetadata.ConfigFileUsed)
		updatedContext = application.commandContextAccessor.WithEntryPointRoot(updatedContext, entryPointRoot)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}
	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}
	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func newConfigurationLoader(searchPaths []string) *utils.ConfigurationLoader {
	configurationLoader := utils.NewConfigurationLoader(configurationNameConstant, configurationTypeConstant, environmentPrefixConstant, searchPaths)
	configurationData, configurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(configurationData, configurationType)
	return configurationLoader
}

func defaultApplicationConfiguration() ApplicationConfiguration {
	return ApplicationConfiguration{
		Common: ApplicationCommonConfiguration{
			LogLevel:  string(utils.LogLevelWarn),
			LogFormat: string(utils.LogFormatConsole),
		},
		Tree: treecmd.DefaultConfiguration(),
	}
}

// resolveVersion prefers the stamped Version and falls back to the module version recorded by go install.
func resolveVersion() string {
	if Version != developmentVersionConstant {
		return Version
	}
	buildInformation, available := debug.ReadBuildInfo()
	if !available || len(buildInformation.Main.Version) == 0 || buildInformation.Main.Version == develBuildVersionConstant {
		return Version
	}
	return buildInformation.Main.Version
}
