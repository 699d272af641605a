package vcs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/gitws/internal/execshell"
	"github.com/temirov/gitws/internal/vcs"
)

var errTestCredentials = errors.New("credentials unavailable")

type scriptedGitResponse struct {
	result execshell.ExecutionResult
	err    error
}

type scriptedGitExecutor struct {
	responses []scriptedGitResponse
	recorded  []execshell.CommandDetails
}

func (executor *scriptedGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	if len(executor.responses) == 0 {
		return execshell.ExecutionResult{}, nil
	}
	response := executor.responses[0]
	executor.responses = executor.responses[1:]
	return response.result, response.err
}

func newCLIClient(testInstance *testing.T, executor *scriptedGitExecutor) *vcs.CLIClient {
	testInstance.Helper()
	client, clientError := vcs.NewCLIClient(executor, zap.NewNop())
	require.NoError(testInstance, clientError)
	return client
}

func TestNewCLIClientRequiresExecutor(testInstance *testing.T) {
	_, clientError := vcs.NewCLIClient(nil, zap.NewNop())
	require.ErrorIs(testInstance, clientError, vcs.ErrGitExecutorNotConfigured)
}

func TestCLIClientOpen(testInstance *testing.T) {
	testCases := []struct {
		name          string
		pathBuilder   func(*testing.T) string
		responder     func(path string) scriptedGitResponse
		expectedError error
		expectedCalls int
	}{
		{
			name:        "repository_root",
			pathBuilder: func(testInstance *testing.T) string { return testInstance.TempDir() },
			responder: func(path string) scriptedGitResponse {
				return scriptedGitResponse{result: execshell.ExecutionResult{StandardOutput: path + "\n"}}
			},
			expectedCalls: 1,
		},
		{
			name:          "absent_directory",
			pathBuilder:   func(testInstance *testing.T) string { return filepath.Join(testInstance.TempDir(), "missing") },
			expectedError: vcs.ErrRepositoryNotFound,
		},
		{
			name:        "not_a_repository",
			pathBuilder: func(testInstance *testing.T) string { return testInstance.TempDir() },
			responder: func(path string) scriptedGitResponse {
				return scriptedGitResponse{err: execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 128}}}
			},
			expectedError: vcs.ErrRepositoryNotFound,
			expectedCalls: 1,
		},
		{
			name:        "nested_inside_another_repository",
			pathBuilder: func(testInstance *testing.T) string { return testInstance.TempDir() },
			responder: func(path string) scriptedGitResponse {
				return scriptedGitResponse{result: execshell.ExecutionResult{StandardOutput: filepath.Dir(path) + "\n"}}
			},
			expectedError: vcs.ErrRepositoryNotFound,
			expectedCalls: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryPath := testCase.pathBuilder(testInstance)
			executor := &scriptedGitExecutor{}
			if testCase.responder != nil {
				executor.responses = []scriptedGitResponse{testCase.responder(repositoryPath)}
			}

			repository, openError := newCLIClient(testInstance, executor).Open(context.Background(), repositoryPath)
			require.Len(testInstance, executor.recorded, testCase.expectedCalls)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, openError, testCase.expectedError)
				return
			}
			require.NoError(testInstance, openError)
			require.Equal(testInstance, repositoryPath, repository.Path())
			require.Equal(testInstance, []string{"rev-parse", "--show-toplevel"}, executor.recorded[0].Arguments)
			require.Equal(testInstance, repositoryPath, executor.recorded[0].WorkingDirectory)
		})
	}
}

func TestCLIClientCloneConfiguresSSHCommand(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	client := newCLIClient(testInstance, executor)

	repository, cloneError := client.Clone(context.Background(), vcs.CloneOptions{
		URL:         "git@example.com:org/app",
		Destination: "/tmp/ws/app",
		Credentials: func(username string) (vcs.Credential, error) {
			return vcs.Credential{Username: username, PrivateKeyPath: "/keys/id_ed25519"}, nil
		},
	})
	require.NoError(testInstance, cloneError)
	require.Equal(testInstance, "/tmp/ws/app", repository.Path())
	require.Len(testInstance, executor.recorded, 1)
	require.Equal(testInstance, []string{"clone", "git@example.com:org/app", "/tmp/ws/app"}, executor.recorded[0].Arguments)
	require.Equal(testInstance, "ssh -i '/keys/id_ed25519' -o IdentitiesOnly=yes -l 'git'", executor.recorded[0].EnvironmentVariables["GIT_SSH_COMMAND"])
	require.Equal(testInstance, "0", executor.recorded[0].EnvironmentVariables["GIT_TERMINAL_PROMPT"])
}

func TestCLIClientCloneLocalPathSkipsCredentials(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	client := newCLIClient(testInstance, executor)

	_, cloneError := client.Clone(context.Background(), vcs.CloneOptions{
		URL:         "/srv/git/org/app",
		Destination: "/tmp/ws/app",
		Credentials: func(string) (vcs.Credential, error) {
			return vcs.Credential{}, errTestCredentials
		},
	})
	require.NoError(testInstance, cloneError)
	require.NotContains(testInstance, executor.recorded[0].EnvironmentVariables, "GIT_SSH_COMMAND")
}

func TestCLIClientClonePropagatesCommandFailure(testInstance *testing.T) {
	failure := execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 128, StandardError: "fatal: repository not found"}}
	executor := &scriptedGitExecutor{responses: []scriptedGitResponse{{err: failure}}}

	_, cloneError := newCLIClient(testInstance, executor).Clone(context.Background(), vcs.CloneOptions{URL: "/srv/git/org/app", Destination: "/tmp/ws/app"})
	var commandFailure execshell.CommandFailedError
	require.ErrorAs(testInstance, cloneError, &commandFailure)
	require.Equal(testInstance, 128, commandFailure.Result.ExitCode)
}

func TestCLIRepositoryRemoteOperations(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	executor := &scriptedGitExecutor{responses: []scriptedGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: repositoryPath + "\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "origin\nupstream\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "git@example.com:upstream/app\n"}},
		{result: execshell.ExecutionResult{StandardOutput: "origin\n"}},
		{},
		{},
	}}
	executionContext := context.Background()

	repository, openError := newCLIClient(testInstance, executor).Open(executionContext, repositoryPath)
	require.NoError(testInstance, openError)

	upstream, upstreamError := repository.FindRemote(executionContext, "upstream")
	require.NoError(testInstance, upstreamError)
	require.Equal(testInstance, vcs.Remote{Name: "upstream", URLs: []string{"git@example.com:upstream/app"}}, upstream)

	_, missingError := repository.FindRemote(executionContext, "personal")
	require.ErrorIs(testInstance, missingError, vcs.ErrRemoteNotFound)

	require.NoError(testInstance, repository.CreateRemote(executionContext, "personal", "git@example.com:me/app"))
	require.NoError(testInstance, repository.RenameRemote(executionContext, "origin", "canonical"))

	recordedArguments := make([][]string, 0, len(executor.recorded))
	for _, details := range executor.recorded {
		require.Equal(testInstance, repositoryPath, details.WorkingDirectory)
		recordedArguments = append(recordedArguments, details.Arguments)
	}
	require.Equal(testInstance, [][]string{
		{"rev-parse", "--show-toplevel"},
		{"remote"},
		{"remote", "get-url", "--all", "upstream"},
		{"remote"},
		{"remote", "add", "personal", "git@example.com:me/app"},
		{"remote", "rename", "origin", "canonical"},
	}, recordedArguments)
}
