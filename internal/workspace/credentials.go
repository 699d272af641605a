package workspace

import (
	"fmt"
	"strings"

	"github.com/temirov/gitws/internal/vcs"
)

const (
	missingUsernameMessageConstant = "could not determine username for remote"
	missingKeyPathMessageConstant  = "ssh key path is empty"
)

// CredentialProvider supplies SSH key credentials for clone operations.
type CredentialProvider struct {
	privateKeyPath  string
	resolutionError error
}

// NewCredentialProvider captures the resolved key path of workspace.
func NewCredentialProvider(workspace ResolvedWorkspace) *CredentialProvider {
	return &CredentialProvider{privateKeyPath: workspace.SSHKeyPath, resolutionError: workspace.SSHKeyPathError}
}

// GetCredentials returns a key credential for requestedUsername. The key file itself is read by the backend.
func (provider *CredentialProvider) GetCredentials(requestedUsername string) (vcs.Credential, error) {
	username := strings.TrimSpace(requestedUsername)
	if len(username) == 0 {
		return vcs.Credential{}, fmt.Errorf("%w: %s", ErrAuthConfig, missingUsernameMessageConstant)
	}
	if provider.resolutionError != nil {
		return vcs.Credential{}, provider.resolutionError
	}
	if len(strings.TrimSpace(provider.privateKeyPath)) == 0 {
		return vcs.Credential{}, fmt.Errorf("%w: %s", ErrAuthConfig, missingKeyPathMessageConstant)
	}
	return vcs.Credential{Username: username, PrivateKeyPath: provider.privateKeyPath}, nil
}
