package vcs

import (
	"context"
	"errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

const (
	// DefaultRemoteName is the remote name a fresh clone receives.
	DefaultRemoteName = "origin"

	sshProtocolConstant = "ssh"
)

var (
	// ErrRepositoryNotFound reports a path that does not hold a repository.
	ErrRepositoryNotFound = errors.New("repository not found")
	// ErrRemoteNotFound reports a remote name that is not configured on a repository.
	ErrRemoteNotFound = errors.New("remote not found")
	// ErrCredentialsNotConfigured reports an SSH clone attempted without a credentials callback.
	ErrCredentialsNotConfigured = errors.New("ssh credentials callback not configured")
)

// Remote describes a configured remote.
type Remote struct {
	Name string
	URLs []string
}

// URL returns the primary fetch URL of the remote.
func (remote Remote) URL() string {
	if len(remote.URLs) == 0 {
		return ""
	}
	return remote.URLs[0]
}

// Credential carries SSH key authentication material. The key file is read by the backend at clone time.
type Credential struct {
	Username       string
	PrivateKeyPath string
}

// CredentialsCallback supplies credentials for the username embedded in a clone URL.
type CredentialsCallback func(requestedUsername string) (Credential, error)

// CloneOptions configures a single clone.
type CloneOptions struct {
	URL         string
	Destination string
	Credentials CredentialsCallback
}

// Repository is a handle to an on-disk repository.
type Repository interface {
	Path() string
	FindRemote(executionContext context.Context, remoteName string) (Remote, error)
	CreateRemote(executionContext context.Context, remoteName string, remoteURL string) error
	RenameRemote(executionContext context.Context, currentName string, newName string) error
}

// Client opens and clones repositories.
type Client interface {
	Open(executionContext context.Context, repositoryPath string) (Repository, error)
	Clone(executionContext context.Context, options CloneOptions) (Repository, error)
}

// resolveSSHCredential invokes the credentials callback when the URL uses SSH transport.
// It returns nil for local paths and other transports, which are cloned without authentication.
func resolveSSHCredential(rawURL string, callback CredentialsCallback) (*Credential, error) {
	endpoint, endpointError := transport.NewEndpoint(strings.TrimSpace(rawURL))
	if endpointError != nil {
		return nil, endpointError
	}
	if endpoint.Protocol != sshProtocolConstant {
		return nil, nil
	}
	if callback == nil {
		return nil, ErrCredentialsNotConfigured
	}

	credential, credentialError := callback(endpoint.User)
	if credentialError != nil {
		return nil, credentialError
	}
	return &credential, nil
}
