package vcs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveSSHCredential(testInstance *testing.T) {
	callbackError := errors.New("no key")

	testCases := []struct {
		name              string
		url               string
		callback          CredentialsCallback
		expectCredential  bool
		expectedUsername  string
		expectedError     error
		expectedRequested string
	}{
		{name: "local_path_skips_callback", url: "/srv/git/org/app"},
		{name: "file_url_skips_callback", url: "file:///srv/git/org/app"},
		{name: "https_skips_callback", url: "https://example.com/org/app"},
		{
			name:              "scp_like_url_supplies_username",
			url:               "git@example.com:org/app",
			expectCredential:  true,
			expectedUsername:  "git",
			expectedRequested: "git",
		},
		{
			name:              "ssh_url_without_user_requests_empty_name",
			url:               "ssh://example.com/org/app",
			expectCredential:  true,
			expectedRequested: "",
		},
		{
			name:          "callback_error_propagates",
			url:           "git@example.com:org/app",
			callback:      func(string) (Credential, error) { return Credential{}, callbackError },
			expectedError: callbackError,
		},
		{
			name:          "missing_callback",
			url:           "git@example.com:org/app",
			callback:      nil,
			expectedError: ErrCredentialsNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			requested := "unset"
			callback := testCase.callback
			if callback == nil && testCase.expectedError == nil {
				callback = func(username string) (Credential, error) {
					requested = username
					return Credential{Username: username, PrivateKeyPath: "/keys/id_ed25519"}, nil
				}
			}

			credential, resolveError := resolveSSHCredential(testCase.url, callback)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, resolveError, testCase.expectedError)
				return
			}
			require.NoError(testInstance, resolveError)
			if !testCase.expectCredential {
				require.Nil(testInstance, credential)
				require.Equal(testInstance, "unset", requested)
				return
			}
			require.NotNil(testInstance, credential)
			require.Equal(testInstance, testCase.expectedRequested, requested)
			require.Equal(testInstance, testCase.expectedUsername, credential.Username)
		})
	}
}

func TestBuildSSHCommandQuotesArguments(testInstance *testing.T) {
	command := buildSSHCommand(Credential{Username: "git", PrivateKeyPath: "/home/o'neil/.ssh/id"})
	require.Equal(testInstance, `ssh -i '/home/o'\''neil/.ssh/id' -o IdentitiesOnly=yes -l 'git'`, command)
}
