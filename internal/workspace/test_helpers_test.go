package workspace_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/temirov/gitws/internal/vcs"
	"github.com/temirov/gitws/internal/workspace"
)

var (
	errStubClone  = errors.New("transport failure")
	errStubRemote = errors.New("config locked")
	errStubLookup = errors.New("config unreadable")
	errStubMkdir  = errors.New("permission denied")
)

type stubRepository struct {
	path         string
	remotes      map[string]string
	findError    error
	createError  error
	renameError  error
	createdNames []string
	renamed      [][2]string
}

func newStubRepository(path string, remotes map[string]string) *stubRepository {
	copied := make(map[string]string, len(remotes))
	for name, url := range remotes {
		copied[name] = url
	}
	return &stubRepository{path: path, remotes: copied}
}

func (repository *stubRepository) Path() string {
	return repository.path
}

func (repository *stubRepository) FindRemote(executionContext context.Context, remoteName string) (vcs.Remote, error) {
	if repository.findError != nil {
		return vcs.Remote{}, repository.findError
	}
	url, exists := repository.remotes[remoteName]
	if !exists {
		return vcs.Remote{}, fmt.Errorf("%w: %s", vcs.ErrRemoteNotFound, remoteName)
	}
	return vcs.Remote{Name: remoteName, URLs: []string{url}}, nil
}

func (repository *stubRepository) CreateRemote(executionContext context.Context, remoteName string, remoteURL string) error {
	if repository.createError != nil {
		return repository.createError
	}
	repository.remotes[remoteName] = remoteURL
	repository.createdNames = append(repository.createdNames, remoteName)
	return nil
}

func (repository *stubRepository) RenameRemote(executionContext context.Context, currentName string, newName string) error {
	if repository.renameError != nil {
		return repository.renameError
	}
	url, exists := repository.remotes[currentName]
	if !exists {
		return vcs.ErrRemoteNotFound
	}
	delete(repository.remotes, currentName)
	repository.remotes[newName] = url
	repository.renamed = append(repository.renamed, [2]string{currentName, newName})
	return nil
}

func (repository *stubRepository) remoteNames() []string {
	names := make([]string, 0, len(repository.remotes))
	for name := range repository.remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type stubClient struct {
	repositories       map[string]*stubRepository
	cloneErrors        map[string]error
	cloneRenameError   error
	clones             []vcs.CloneOptions
	requestedUsernames []string
	credentials        []vcs.Credential
	credentialErrors   []error
}

func newStubClient() *stubClient {
	return &stubClient{repositories: map[string]*stubRepository{}, cloneErrors: map[string]error{}}
}

func (client *stubClient) Open(executionContext context.Context, repositoryPath string) (vcs.Repository, error) {
	repository, exists := client.repositories[repositoryPath]
	if !exists {
		return nil, fmt.Errorf("%w: %s", vcs.ErrRepositoryNotFound, repositoryPath)
	}
	return repository, nil
}

func (client *stubClient) Clone(executionContext context.Context, options vcs.CloneOptions) (vcs.Repository, error) {
	client.clones = append(client.clones, options)
	if options.Credentials != nil {
		client.requestedUsernames = append(client.requestedUsernames, "git")
		credential, credentialError := options.Credentials("git")
		if credentialError != nil {
			client.credentialErrors = append(client.credentialErrors, credentialError)
			return nil, credentialError
		}
		client.credentials = append(client.credentials, credential)
	}
	if cloneError, exists := client.cloneErrors[filepath.Base(options.Destination)]; exists {
		return nil, cloneError
	}
	repository := newStubRepository(options.Destination, map[string]string{vcs.DefaultRemoteName: options.URL})
	repository.renameError = client.cloneRenameError
	client.repositories[options.Destination] = repository
	return repository, nil
}

type recordingReporter struct {
	lines []string
}

func (reporter *recordingReporter) Printf(format string, args ...any) {
	reporter.lines = append(reporter.lines, fmt.Sprintf(format, args...))
}

type failingFileSystem struct {
	workspace.OSFileSystem
	mkdirError error
}

func (fileSystem failingFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return fileSystem.mkdirError
}

type staticExpander struct {
	values map[string]string
	errors map[string]error
}

func (expander staticExpander) Expand(rawPath string) (string, error) {
	if expandError, exists := expander.errors[rawPath]; exists {
		return "", expandError
	}
	if value, exists := expander.values[rawPath]; exists {
		return value, nil
	}
	return rawPath, nil
}
