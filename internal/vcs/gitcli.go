package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitws/internal/execshell"
)

const (
	gitCloneSubcommandConstant         = "clone"
	gitRemoteSubcommandConstant        = "remote"
	gitRemoteAddSubcommandConstant     = "add"
	gitRemoteRenameSubcommandConstant  = "rename"
	gitRemoteGetURLSubcommandConstant  = "get-url"
	gitAllFlagConstant                 = "--all"
	gitRevParseSubcommandConstant      = "rev-parse"
	gitShowTopLevelFlagConstant        = "--show-toplevel"
	gitSSHCommandEnvironmentConstant   = "GIT_SSH_COMMAND"
	gitTerminalPromptEnvironmentConst  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant  = "0"
	gitSSHCommandTemplateConstant      = "ssh -i %s -o IdentitiesOnly=yes"
	gitSSHCommandUserTemplateConstant  = " -l %s"
	shellSingleQuoteConstant           = "'"
	shellEscapedSingleQuoteConstant    = `'\''`
	notRepositoryRootTemplateConstant  = "%w: %s is inside %s"
	notDirectoryTemplateConstant       = "%w: %s is not a directory"
	outputLineSeparatorConstant        = "\n"
	missingGitExecutorMessageConstant  = "git executor not configured"
)

// ErrGitExecutorNotConfigured indicates the CLI client was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(missingGitExecutorMessageConstant)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CLIClient implements Client by invoking the git executable.
type CLIClient struct {
	executor GitExecutor
	logger   *zap.Logger
}

// NewCLIClient constructs a git CLI backed client.
func NewCLIClient(executor GitExecutor, logger *zap.Logger) (*CLIClient, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLIClient{executor: executor, logger: logger}, nil
}

// Open succeeds only when repositoryPath is the top level of a working tree.
func (client *CLIClient) Open(executionContext context.Context, repositoryPath string) (Repository, error) {
	information, statError := os.Stat(repositoryPath)
	if statError != nil {
		if errors.Is(statError, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, repositoryPath)
		}
		return nil, statError
	}
	if !information.IsDir() {
		return nil, fmt.Errorf(notDirectoryTemplateConstant, ErrRepositoryNotFound, repositoryPath)
	}

	result, executionError := client.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitShowTopLevelFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		var failure execshell.CommandFailedError
		if errors.As(executionError, &failure) {
			return nil, fmt.Errorf("%w: %s: %w", ErrRepositoryNotFound, repositoryPath, executionError)
		}
		return nil, executionError
	}

	topLevel := strings.TrimSpace(result.StandardOutput)
	if canonicalPath(topLevel) != canonicalPath(repositoryPath) {
		return nil, fmt.Errorf(notRepositoryRootTemplateConstant, ErrRepositoryNotFound, repositoryPath, topLevel)
	}

	return &cliRepository{path: repositoryPath, executor: client.executor}, nil
}

// Clone runs "git clone". SSH URLs authenticate with the key supplied by the credentials callback.
func (client *CLIClient) Clone(executionContext context.Context, options CloneOptions) (Repository, error) {
	credential, credentialError := resolveSSHCredential(options.URL, options.Credentials)
	if credentialError != nil {
		return nil, credentialError
	}

	environment := map[string]string{gitTerminalPromptEnvironmentConst: gitTerminalPromptDisabledConstant}
	if credential != nil {
		environment[gitSSHCommandEnvironmentConstant] = buildSSHCommand(*credential)
		client.logger.Debug(
			"using ssh key authentication",
			zap.String(logFieldUsernameConstant, credential.Username),
			zap.String(logFieldPrivateKeyPathConstant, credential.PrivateKeyPath),
		)
	}

	_, cloneError := client.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitCloneSubcommandConstant, options.URL, options.Destination},
		EnvironmentVariables: environment,
	})
	if cloneError != nil {
		return nil, cloneError
	}

	return &cliRepository{path: options.Destination, executor: client.executor}, nil
}

type cliRepository struct {
	path     string
	executor GitExecutor
}

func (repository *cliRepository) Path() string {
	return repository.path
}

func (repository *cliRepository) FindRemote(executionContext context.Context, remoteName string) (Remote, error) {
	listResult, listError := repository.run(executionContext, gitRemoteSubcommandConstant)
	if listError != nil {
		return Remote{}, listError
	}
	if !containsLine(listResult.StandardOutput, remoteName) {
		return Remote{}, fmt.Errorf("%w: %s", ErrRemoteNotFound, remoteName)
	}

	urlResult, urlError := repository.run(executionContext, gitRemoteSubcommandConstant, gitRemoteGetURLSubcommandConstant, gitAllFlagConstant, remoteName)
	if urlError != nil {
		return Remote{}, urlError
	}
	return Remote{Name: remoteName, URLs: splitLines(urlResult.StandardOutput)}, nil
}

func (repository *cliRepository) CreateRemote(executionContext context.Context, remoteName string, remoteURL string) error {
	_, addError := repository.run(executionContext, gitRemoteSubcommandConstant, gitRemoteAddSubcommandConstant, remoteName, remoteURL)
	return addError
}

func (repository *cliRepository) RenameRemote(executionContext context.Context, currentName string, newName string) error {
	_, renameError := repository.run(executionContext, gitRemoteSubcommandConstant, gitRemoteRenameSubcommandConstant, currentName, newName)
	return renameError
}

func (repository *cliRepository) run(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repository.path,
	})
}

func buildSSHCommand(credential Credential) string {
	command := fmt.Sprintf(gitSSHCommandTemplateConstant, shellQuote(credential.PrivateKeyPath))
	if len(credential.Username) > 0 {
		command += fmt.Sprintf(gitSSHCommandUserTemplateConstant, shellQuote(credential.Username))
	}
	return command
}

func shellQuote(value string) string {
	return shellSingleQuoteConstant + strings.ReplaceAll(value, shellSingleQuoteConstant, shellEscapedSingleQuoteConstant) + shellSingleQuoteConstant
}

func canonicalPath(candidate string) string {
	absolutePath, absoluteError := filepath.Abs(candidate)
	if absoluteError != nil {
		absolutePath = candidate
	}
	resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath)
	if resolveError != nil {
		return filepath.Clean(absolutePath)
	}
	return resolvedPath
}

func splitLines(output string) []string {
	lines := []string{}
	for _, line := range strings.Split(output, outputLineSeparatorConstant) {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 0 {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func containsLine(output string, expected string) bool {
	for _, line := range splitLines(output) {
		if line == expected {
			return true
		}
	}
	return false
}
