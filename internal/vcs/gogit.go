package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"go.uber.org/zap"
)

const (
	remoteTrackingReferencePrefixConstant = "refs/remotes/"
	logFieldRepositoryPathConstant        = "repository_path"
	logFieldRemoteNameConstant            = "remote"
	logFieldRemoteURLConstant             = "remote_url"
	logFieldNewRemoteNameConstant         = "new_remote"
	logFieldSourceURLConstant             = "source_url"
	logFieldUsernameConstant              = "username"
	logFieldPrivateKeyPathConstant        = "private_key_path"
)

// GoGitClient implements Client with go-git.
type GoGitClient struct {
	logger *zap.Logger
}

// NewGoGitClient constructs a go-git backed client.
func NewGoGitClient(logger *zap.Logger) *GoGitClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoGitClient{logger: logger}
}

// Open opens the repository rooted at repositoryPath. Parent directories are not searched.
func (client *GoGitClient) Open(executionContext context.Context, repositoryPath string) (Repository, error) {
	repository, openError := git.PlainOpen(repositoryPath)
	if openError != nil {
		if errors.Is(openError, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, repositoryPath)
		}
		return nil, fmt.Errorf("opening repository %s: %w", repositoryPath, openError)
	}

	client.logger.Debug("opened repository", zap.String(logFieldRepositoryPathConstant, repositoryPath))
	return &goGitRepository{path: repositoryPath, repository: repository, logger: client.logger}, nil
}

// Clone clones options.URL into options.Destination, authenticating SSH URLs with the credentials callback.
func (client *GoGitClient) Clone(executionContext context.Context, options CloneOptions) (Repository, error) {
	cloneOptions := &git.CloneOptions{URL: options.URL, RemoteName: DefaultRemoteName}

	credential, credentialError := resolveSSHCredential(options.URL, options.Credentials)
	if credentialError != nil {
		return nil, credentialError
	}
	if credential != nil {
		publicKeys, keyError := gitssh.NewPublicKeysFromFile(credential.Username, credential.PrivateKeyPath, "")
		if keyError != nil {
			return nil, fmt.Errorf("loading ssh key %s: %w", credential.PrivateKeyPath, keyError)
		}
		cloneOptions.Auth = publicKeys
		client.logger.Debug(
			"using ssh key authentication",
			zap.String(logFieldUsernameConstant, credential.Username),
			zap.String(logFieldPrivateKeyPathConstant, credential.PrivateKeyPath),
		)
	}

	client.logger.Debug("cloning repository", zap.String(logFieldSourceURLConstant, options.URL), zap.String(logFieldRepositoryPathConstant, options.Destination))
	repository, cloneError := git.PlainCloneContext(executionContext, options.Destination, false, cloneOptions)
	if cloneError != nil {
		return nil, cloneError
	}

	return &goGitRepository{path: options.Destination, repository: repository, logger: client.logger}, nil
}

type goGitRepository struct {
	path       string
	repository *git.Repository
	logger     *zap.Logger
}

func (repository *goGitRepository) Path() string {
	return repository.path
}

func (repository *goGitRepository) FindRemote(executionContext context.Context, remoteName string) (Remote, error) {
	remote, remoteError := repository.repository.Remote(remoteName)
	if remoteError != nil {
		if errors.Is(remoteError, git.ErrRemoteNotFound) {
			return Remote{}, fmt.Errorf("%w: %s", ErrRemoteNotFound, remoteName)
		}
		return Remote{}, remoteError
	}

	remoteConfiguration := remote.Config()
	return Remote{Name: remoteConfiguration.Name, URLs: append([]string{}, remoteConfiguration.URLs...)}, nil
}

func (repository *goGitRepository) CreateRemote(executionContext context.Context, remoteName string, remoteURL string) error {
	_, createError := repository.repository.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{remoteURL}})
	if createError != nil {
		return createError
	}

	repository.logger.Debug(
		"created remote",
		zap.String(logFieldRepositoryPathConstant, repository.path),
		zap.String(logFieldRemoteNameConstant, remoteName),
		zap.String(logFieldRemoteURLConstant, remoteURL),
	)
	return nil
}

// RenameRemote mirrors "git remote rename": the remote section, fetch refspecs, branch tracking
// configuration, and remote-tracking references all move to the new name.
func (repository *goGitRepository) RenameRemote(executionContext context.Context, currentName string, newName string) error {
	configuration, configurationError := repository.repository.Config()
	if configurationError != nil {
		return configurationError
	}

	currentRemote, currentExists := configuration.Remotes[currentName]
	if !currentExists {
		return fmt.Errorf("%w: %s", ErrRemoteNotFound, currentName)
	}
	if _, newExists := configuration.Remotes[newName]; newExists {
		return fmt.Errorf("%w: %s", git.ErrRemoteExists, newName)
	}

	renamedRemote := &gitconfig.RemoteConfig{
		Name:   newName,
		URLs:   append([]string{}, currentRemote.URLs...),
		Mirror: currentRemote.Mirror,
		Fetch:  renameRefSpecs(currentRemote.Fetch, currentName, newName),
	}
	if validationError := renamedRemote.Validate(); validationError != nil {
		return validationError
	}

	delete(configuration.Remotes, currentName)
	configuration.Remotes[newName] = renamedRemote
	for _, branch := range configuration.Branches {
		if branch.Remote == currentName {
			branch.Remote = newName
		}
	}

	if storeError := repository.repository.Storer.SetConfig(configuration); storeError != nil {
		return storeError
	}

	if moveError := repository.moveRemoteTrackingReferences(currentName, newName); moveError != nil {
		return moveError
	}

	repository.logger.Debug(
		"renamed remote",
		zap.String(logFieldRepositoryPathConstant, repository.path),
		zap.String(logFieldRemoteNameConstant, currentName),
		zap.String(logFieldNewRemoteNameConstant, newName),
	)
	return nil
}

func (repository *goGitRepository) moveRemoteTrackingReferences(currentName string, newName string) error {
	currentPrefix := remoteTrackingReferencePrefixConstant + currentName + "/"
	newPrefix := remoteTrackingReferencePrefixConstant + newName + "/"

	references, iteratorError := repository.repository.References()
	if iteratorError != nil {
		return iteratorError
	}

	var matching []*plumbing.Reference
	iterationError := references.ForEach(func(reference *plumbing.Reference) error {
		if strings.HasPrefix(reference.Name().String(), currentPrefix) {
			matching = append(matching, reference)
		}
		return nil
	})
	if iterationError != nil {
		return iterationError
	}

	for _, reference := range matching {
		movedName := plumbing.ReferenceName(newPrefix + strings.TrimPrefix(reference.Name().String(), currentPrefix))

		var moved *plumbing.Reference
		if reference.Type() == plumbing.SymbolicReference {
			target := reference.Target().String()
			if strings.HasPrefix(target, currentPrefix) {
				target = newPrefix + strings.TrimPrefix(target, currentPrefix)
			}
			moved = plumbing.NewSymbolicReference(movedName, plumbing.ReferenceName(target))
		} else {
			moved = plumbing.NewHashReference(movedName, reference.Hash())
		}

		if setError := repository.repository.Storer.SetReference(moved); setError != nil {
			return setError
		}
		if removeError := repository.repository.Storer.RemoveReference(reference.Name()); removeError != nil {
			return removeError
		}
	}

	return nil
}

func renameRefSpecs(refSpecs []gitconfig.RefSpec, currentName string, newName string) []gitconfig.RefSpec {
	currentDestination := remoteTrackingReferencePrefixConstant + currentName + "/"
	newDestination := remoteTrackingReferencePrefixConstant + newName + "/"

	renamed := make([]gitconfig.RefSpec, 0, len(refSpecs))
	for _, refSpec := range refSpecs {
		renamed = append(renamed, gitconfig.RefSpec(strings.ReplaceAll(string(refSpec), currentDestination, newDestination)))
	}
	return renamed
}
