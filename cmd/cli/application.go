package cli

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/gitws/internal/utils"
	"github.com/temirov/gitws/internal/utils/flags"
	pathutils "github.com/temirov/gitws/internal/utils/path"
	"github.com/temirov/gitws/internal/vcs"
	"github.com/temirov/gitws/internal/workspace"
)

const (
	applicationNameConstant                 = "gitws"
	applicationUseConstant                  = applicationNameConstant + " <config>"
	applicationShortDescriptionConstant     = "Provision a multi-repository workspace from a declarative configuration"
	applicationLongDescriptionConstant      = "gitws clones every declared repository that is missing from a workspace and adds any declared remotes that are not yet configured. Existing clones and remotes are left untouched, so the command can be re-run safely."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	backendFlagNameConstant                 = "backend"
	backendFlagUsageConstant                = "Override the configured version control backend."
	dryRunFlagNameConstant                  = "dry-run"
	dryRunFlagUsageConstant                 = "Report planned clones and remote additions without changing anything."
	continueOnErrorFlagNameConstant         = "continue-on-error"
	continueOnErrorFlagUsageConstant        = "Attempt every repository and report all failures at the end."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonBackendConfigKeyConstant          = commonConfigurationKeyConstant + ".backend"
	commonDryRunConfigKeyConstant           = commonConfigurationKeyConstant + ".dry_run"
	commonContinueOnErrorConfigKeyConstant  = commonConfigurationKeyConstant + ".continue_on_error"
	environmentPrefixConstant               = "GITWS"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationBackendFieldConstant       = "backend"
	configurationFileFieldConstant          = "config_file"
	configurationWorkspaceCountFieldConst   = "workspace_count"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	configurationEmptyErrorTemplateConstant = "%w: %s declares no workspace entries"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	reconciliationFailedMessageConstant     = "workspace reconciliation failed"
)

// Version is reported by --version. Release builds set it with -ldflags.
var Version = "dev"

// ApplicationConfiguration describes the configuration document.
type ApplicationConfiguration struct {
	Common     ApplicationCommonConfiguration `mapstructure:"common"`
	Workspaces []workspace.Configuration      `mapstructure:"workspace"`
}

// ApplicationCommonConfiguration stores settings shared by every workspace.
type ApplicationCommonConfiguration struct {
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	Backend         string `mapstructure:"backend"`
	DryRun          bool   `mapstructure:"dry_run"`
	ContinueOnError bool   `mapstructure:"continue_on_error"`
}

// ApplicationDependencies overrides collaborators; zero values select the production implementations.
type ApplicationDependencies struct {
	Client       vcs.Client
	FileSystem   workspace.FileSystem
	PathExpander workspace.PathExpander
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand              *cobra.Command
	configurationLoader      *utils.ConfigurationLoader
	loggerFactory            *utils.LoggerFactory
	logger                   *zap.Logger
	dependencies             ApplicationDependencies
	configuration            ApplicationConfiguration
	configurationMetadata    utils.LoadedConfiguration
	backend                  workspace.Backend
	workspaces               []workspace.ResolvedWorkspace
	logLevelFlagValue        string
	logFormatFlagValue       string
	backendFlagValue         string
	dryRunFlagValue          bool
	continueOnErrorFlagValue bool
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return NewApplicationWithDependencies(ApplicationDependencies{})
}

// NewApplicationWithDependencies assembles an application using the provided collaborators.
func NewApplicationWithDependencies(dependencies ApplicationDependencies) *Application {
	if dependencies.PathExpander == nil {
		dependencies.PathExpander = pathutils.NewEnvironmentExpander()
	}

	application := &Application{
		configurationLoader: utils.NewConfigurationLoader(environmentPrefixConstant, true),
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
		dependencies:        dependencies,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationUseConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       Version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command, arguments)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runReconciliation(command)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(
		&application.logLevelFlagValue,
		logLevelFlagNameConstant,
		"",
		flags.FormatChoiceUsage(string(utils.LogLevelInfo), []string{string(utils.LogLevelDebug), string(utils.LogLevelInfo), string(utils.LogLevelWarn), string(utils.LogLevelError)}, logLevelFlagUsageConstant),
	)
	cobraCommand.PersistentFlags().StringVar(
		&application.logFormatFlagValue,
		logFormatFlagNameConstant,
		"",
		flags.FormatChoiceUsage(string(utils.LogFormatStructured), []string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)}, logFormatFlagUsageConstant),
	)
	cobraCommand.Flags().StringVar(
		&application.backendFlagValue,
		backendFlagNameConstant,
		"",
		flags.FormatChoiceUsage(string(workspace.BackendGoGit), []string{string(workspace.BackendGoGit), string(workspace.BackendGitCLI)}, backendFlagUsageConstant),
	)
	cobraCommand.Flags().BoolVar(&application.dryRunFlagValue, dryRunFlagNameConstant, false, dryRunFlagUsageConstant)
	cobraCommand.Flags().BoolVar(&application.continueOnErrorFlagValue, continueOnErrorFlagNameConstant, false, continueOnErrorFlagUsageConstant)

	resolveBuilder := ResolveCommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		WorkspacesProvider: func() []workspace.ResolvedWorkspace {
			return application.workspaces
		},
	}
	cobraCommand.AddCommand(resolveBuilder.Build())

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command, arguments []string) error {
	configurationFilePath := ""
	if len(arguments) > 0 {
		configurationFilePath = arguments[0]
	}

	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:        string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:       string(utils.LogFormatStructured),
		commonBackendConfigKeyConstant:         string(workspace.BackendGoGit),
		commonDryRunConfigKeyConstant:          false,
		commonContinueOnErrorConfigKeyConstant: false,
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	application.applyFlagOverrides(command)

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	backend, backendError := workspace.ParseBackend(application.configuration.Common.Backend)
	if backendError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, backendError)
	}
	application.backend = backend

	if len(application.configuration.Workspaces) == 0 {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, fmt.Errorf(configurationEmptyErrorTemplateConstant, utils.ErrConfigurationParse, configurationFilePath))
	}

	workspaces, resolveError := workspace.ResolveAll(application.configuration.Workspaces, application.dependencies.PathExpander)
	if resolveError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, resolveError)
	}
	application.workspaces = workspaces

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationBackendFieldConstant, string(application.backend)),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Int(configurationWorkspaceCountFieldConst, len(application.workspaces)),
	)

	return nil
}

func (application *Application) applyFlagOverrides(command *cobra.Command) {
	if application.flagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.flagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.flagChanged(command, backendFlagNameConstant) {
		application.configuration.Common.Backend = application.backendFlagValue
	}
	if application.flagChanged(command, dryRunFlagNameConstant) {
		application.configuration.Common.DryRun = application.dryRunFlagValue
	}
	if application.flagChanged(command, continueOnErrorFlagNameConstant) {
		application.configuration.Common.ContinueOnError = application.continueOnErrorFlagValue
	}
}

func (application *Application) runReconciliation(command *cobra.Command) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	client, clientError := workspace.ResolveClient(application.dependencies.Client, application.backend, application.logger)
	if clientError != nil {
		return clientError
	}

	service := workspace.NewService(
		workspace.Dependencies{
			Client:     client,
			FileSystem: workspace.ResolveFileSystem(application.dependencies.FileSystem),
			Logger:     application.logger,
			Reporter:   workspace.NewWriterReporter(command.OutOrStdout()),
		},
		workspace.Options{
			DryRun:          application.configuration.Common.DryRun,
			ContinueOnError: application.configuration.Common.ContinueOnError,
		},
	)

	_, runError := service.Run(command.Context(), application.workspaces)
	if runError != nil {
		application.logger.Error(reconciliationFailedMessageConstant, zap.Error(runError))
		return runError
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
	default:
		return syncError
	}
}

func (application *Application) flagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.Flags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}
		if flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
