package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gitws/internal/workspace"
)

const (
	resolveCommandUseConstant              = "resolve <config>"
	resolveCommandShortDescriptionConstant = "Print the workspaces after environment expansion"
	resolveCommandLongDescriptionConstant  = "resolve loads the configuration, expands environment references and home shortcuts in every path, and prints the result as YAML without touching any repository."
	resolveDocumentIndentConstant          = 2
	unresolvedKeyPathMessageConstant       = "ssh key path could not be resolved"
	logFieldWorkspacePathConstant          = "workspace"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// WorkspacesProvider supplies the resolved workspaces loaded by the root command.
type WorkspacesProvider func() []workspace.ResolvedWorkspace

// ResolveCommandBuilder assembles the resolve subcommand.
type ResolveCommandBuilder struct {
	LoggerProvider     LoggerProvider
	WorkspacesProvider WorkspacesProvider
}

type resolvedDocument struct {
	Workspaces []workspace.ResolvedWorkspace `yaml:"workspace"`
}

// Build constructs the cobra command.
func (builder ResolveCommandBuilder) Build() *cobra.Command {
	return &cobra.Command{
		Use:   resolveCommandUseConstant,
		Short: resolveCommandShortDescriptionConstant,
		Long:  resolveCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}
}

func (builder ResolveCommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	var workspaces []workspace.ResolvedWorkspace
	if builder.WorkspacesProvider != nil {
		workspaces = builder.WorkspacesProvider()
	}

	for _, resolved := range workspaces {
		if resolved.SSHKeyPathError != nil {
			logger.Warn(unresolvedKeyPathMessageConstant, zap.String(logFieldWorkspacePathConstant, resolved.Path), zap.Error(resolved.SSHKeyPathError))
		}
	}

	encoder := yaml.NewEncoder(command.OutOrStdout())
	encoder.SetIndent(resolveDocumentIndentConstant)
	if encodeError := encoder.Encode(resolvedDocument{Workspaces: workspaces}); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

func (builder ResolveCommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
