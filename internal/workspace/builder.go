package workspace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/gitws/internal/vcs"
)

const (
	cloneFailureTemplateConstant  = "%w: %s from %s: %w"
	renameFailureTemplateConstant = "%w: %s: renaming remote %s to %s: %w"
)

// RepositoryBuilder clones repositories from the workspace origin.
type RepositoryBuilder struct {
	client      vcs.Client
	credentials *CredentialProvider
	origin      RemoteDescriptor
	logger      *zap.Logger
}

// NewRepositoryBuilder constructs a builder for the workspace origin.
func NewRepositoryBuilder(client vcs.Client, credentials *CredentialProvider, origin RemoteDescriptor, logger *zap.Logger) *RepositoryBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepositoryBuilder{client: client, credentials: credentials, origin: origin, logger: logger}
}

// SourceURL returns the origin URL of repositoryName.
func (builder *RepositoryBuilder) SourceURL(repositoryName string) string {
	return builder.origin.RepositoryURL(repositoryName)
}

// Clone clones repositoryName into destinationPath and renames the default remote to the configured origin name.
func (builder *RepositoryBuilder) Clone(executionContext context.Context, repositoryName string, destinationPath string) (vcs.Repository, error) {
	sourceURL := builder.SourceURL(repositoryName)
	repository, cloneError := builder.client.Clone(executionContext, vcs.CloneOptions{
		URL:         sourceURL,
		Destination: destinationPath,
		Credentials: builder.credentials.GetCredentials,
	})
	if cloneError != nil {
		return nil, fmt.Errorf(cloneFailureTemplateConstant, ErrClone, repositoryName, sourceURL, cloneError)
	}

	originName := builder.origin.Name
	if len(originName) == 0 || originName == vcs.DefaultRemoteName {
		return repository, nil
	}

	if renameError := repository.RenameRemote(executionContext, vcs.DefaultRemoteName, originName); renameError != nil {
		return nil, fmt.Errorf(renameFailureTemplateConstant, ErrClone, repositoryName, vcs.DefaultRemoteName, originName, renameError)
	}
	builder.logger.Debug(
		"renamed origin remote",
		zap.String(logFieldRepositoryConstant, repositoryName),
		zap.String(logFieldRemoteConstant, originName),
	)
	return repository, nil
}
