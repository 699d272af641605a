package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/temirov/gitws/internal/vcs"
)

const (
	workspaceDirectoryPermissions fs.FileMode = 0o755

	workspaceCreatedMessage  = "WORKSPACE-CREATED: %s\n"
	workspacePlanMessage     = "PLAN-CREATE-WORKSPACE: %s\n"
	clonedMessage            = "CLONED: %s from %s\n"
	clonePlanMessage         = "PLAN-CLONE: %s from %s\n"
	repositoryPresentMessage = "REPOSITORY-PRESENT: %s\n"
	remoteAddedMessage       = "REMOTE-ADDED: %s %s → %s\n"
	remotePlanMessage        = "PLAN-ADD-REMOTE: %s %s → %s\n"
	remoteSkipMessage        = "REMOTE-SKIP: %s %s (already configured: %s)\n"
	repositoryFailedMessage  = "RECONCILE-FAILED: %s (%v)\n"

	directoryStatTemplateConstant        = "%w: %s: %w"
	directoryNotDirectoryTemplate        = "%w: %s exists and is not a directory"
	directoryCreateTemplateConstant      = "%w: %s: %w"
	occupiedDestinationTemplateConstant  = "%w: %s: %s is not an empty directory and does not open as a repository: %w"
	inspectDestinationTemplateConstant   = "%w: %s: inspecting %s: %w"
	remoteLookupFailureTemplateConstant  = "%w: %s: looking up remote %s: %w"
	remoteCreateFailureTemplateConstant  = "%w: %s: creating remote %s (%s): %w"
	missingClientMessageConstant         = "vcs client not configured"
	missingFileSystemMessageConstant     = "filesystem not configured"
	logFieldWorkspaceConstant            = "workspace"
	logFieldRepositoryConstant           = "repository"
	logFieldRepositoryPathConstant       = "repository_path"
	logFieldRemoteConstant               = "remote"
	logFieldRemoteURLConstant            = "remote_url"
	logFieldDryRunConstant               = "dry_run"
	logFieldRepositoryCountConstant      = "repository_count"
	logFieldFailureCountConstant         = "failure_count"
	reconciliationStartedMessageConstant = "workspace reconciliation started"
	reconciliationDoneMessageConstant    = "workspace reconciliation finished"
)

var (
	// ErrClientNotConfigured indicates a Reconciler was requested without a vcs client.
	ErrClientNotConfigured = errors.New(missingClientMessageConstant)
	// ErrFileSystemNotConfigured indicates a Reconciler was requested without a filesystem.
	ErrFileSystemNotConfigured = errors.New(missingFileSystemMessageConstant)
)

// Options controls how a workspace is reconciled.
type Options struct {
	DryRun          bool
	ContinueOnError bool
}

// Dependencies captures collaborators required to reconcile a workspace.
type Dependencies struct {
	Client     vcs.Client
	FileSystem FileSystem
	Logger     *zap.Logger
	Reporter   Reporter
}

// RepositoryResult records what reconciliation did for one repository.
type RepositoryResult struct {
	Name           string
	Path           string
	Cloned         bool
	ClonePlanned   bool
	RemotesAdded   []string
	RemotesPlanned []string
	RemotesPresent []string
	Err            error
}

// Result records the outcome of reconciling one workspace.
type Result struct {
	WorkspacePath    string
	DirectoryCreated bool
	Repositories     []RepositoryResult
	Err              error
}

// Failures returns the repositories that could not be reconciled.
func (result Result) Failures() []RepositoryResult {
	var failures []RepositoryResult
	for _, repository := range result.Repositories {
		if repository.Err != nil {
			failures = append(failures, repository)
		}
	}
	return failures
}

// Reconciler converges a single workspace onto the filesystem.
type Reconciler struct {
	workspace    ResolvedWorkspace
	builder      *RepositoryBuilder
	dependencies Dependencies
	options      Options
}

// NewReconciler validates collaborators and constructs a Reconciler for workspace.
func NewReconciler(workspace ResolvedWorkspace, dependencies Dependencies, options Options) (*Reconciler, error) {
	if dependencies.Client == nil {
		return nil, ErrClientNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Reporter == nil {
		dependencies.Reporter = NewWriterReporter(nil)
	}

	builder := NewRepositoryBuilder(dependencies.Client, NewCredentialProvider(workspace), workspace.Origin, dependencies.Logger)
	return &Reconciler{workspace: workspace, builder: builder, dependencies: dependencies, options: options}, nil
}

// Reconcile ensures the workspace directory exists, then opens or clones each repository in declared
// order and adds missing remotes. The first failure aborts the run unless ContinueOnError is set, in
// which case every repository is attempted and the failures are combined. A directory failure always
// aborts the workspace.
func (reconciler *Reconciler) Reconcile(executionContext context.Context) (Result, error) {
	logger := reconciler.dependencies.Logger.With(zap.String(logFieldWorkspaceConstant, reconciler.workspace.Path))
	logger.Info(
		reconciliationStartedMessageConstant,
		zap.Int(logFieldRepositoryCountConstant, len(reconciler.workspace.Repositories)),
		zap.Bool(logFieldDryRunConstant, reconciler.options.DryRun),
	)

	result := Result{WorkspacePath: reconciler.workspace.Path}
	created, directoryError := reconciler.ensureDirectory()
	result.DirectoryCreated = created
	if directoryError != nil {
		logger.Error("workspace directory unavailable", zap.Error(directoryError))
		result.Err = directoryError
		return result, directoryError
	}

	var combined error
	for _, repositoryName := range reconciler.workspace.Repositories {
		repositoryResult := reconciler.reconcileRepository(executionContext, logger, repositoryName)
		result.Repositories = append(result.Repositories, repositoryResult)
		if repositoryResult.Err == nil {
			continue
		}

		logger.Warn("repository reconciliation failed", zap.String(logFieldRepositoryConstant, repositoryName), zap.Error(repositoryResult.Err))
		if !reconciler.options.ContinueOnError {
			result.Err = repositoryResult.Err
			return result, repositoryResult.Err
		}
		reconciler.dependencies.Reporter.Printf(repositoryFailedMessage, repositoryResult.Path, repositoryResult.Err)
		combined = multierr.Append(combined, repositoryResult.Err)
	}

	logger.Info(reconciliationDoneMessageConstant, zap.Int(logFieldFailureCountConstant, len(result.Failures())))
	result.Err = combined
	return result, combined
}

func (reconciler *Reconciler) ensureDirectory() (bool, error) {
	workspacePath := reconciler.workspace.Path
	information, statError := reconciler.dependencies.FileSystem.Stat(workspacePath)
	switch {
	case statError == nil:
		if !information.IsDir() {
			return false, fmt.Errorf(directoryNotDirectoryTemplate, ErrDirectoryCreate, workspacePath)
		}
		return false, nil
	case !errors.Is(statError, fs.ErrNotExist):
		return false, fmt.Errorf(directoryStatTemplateConstant, ErrDirectoryCreate, workspacePath, statError)
	}

	if reconciler.options.DryRun {
		reconciler.dependencies.Reporter.Printf(workspacePlanMessage, workspacePath)
		return false, nil
	}

	if createError := reconciler.dependencies.FileSystem.MkdirAll(workspacePath, workspaceDirectoryPermissions); createError != nil {
		return false, fmt.Errorf(directoryCreateTemplateConstant, ErrDirectoryCreate, workspacePath, createError)
	}
	reconciler.dependencies.Reporter.Printf(workspaceCreatedMessage, workspacePath)
	return true, nil
}

func (reconciler *Reconciler) reconcileRepository(executionContext context.Context, logger *zap.Logger, repositoryName string) RepositoryResult {
	repositoryPath := reconciler.workspace.RepositoryPath(repositoryName)
	result := RepositoryResult{Name: repositoryName, Path: repositoryPath}
	repositoryLogger := logger.With(zap.String(logFieldRepositoryConstant, repositoryName))

	repository, openError := reconciler.dependencies.Client.Open(executionContext, repositoryPath)
	if openError == nil {
		repositoryLogger.Debug("opened existing repository", zap.String(logFieldRepositoryPathConstant, repositoryPath))
		reconciler.dependencies.Reporter.Printf(repositoryPresentMessage, repositoryPath)
		reconciler.reconcileRemotes(executionContext, repositoryLogger, repository, &result)
		return result
	}
	repositoryLogger.Debug("repository not present", zap.String(logFieldRepositoryPathConstant, repositoryPath), zap.Error(openError))

	occupied, inspectError := reconciler.destinationOccupied(repositoryPath)
	if inspectError != nil {
		result.Err = fmt.Errorf(inspectDestinationTemplateConstant, ErrClone, repositoryName, repositoryPath, inspectError)
		return result
	}
	if occupied {
		result.Err = fmt.Errorf(occupiedDestinationTemplateConstant, ErrClone, repositoryName, repositoryPath, openError)
		return result
	}

	sourceURL := reconciler.builder.SourceURL(repositoryName)
	if reconciler.options.DryRun {
		result.ClonePlanned = true
		reconciler.dependencies.Reporter.Printf(clonePlanMessage, repositoryPath, sourceURL)
		for _, remote := range reconciler.workspace.Remotes {
			remoteURL := remote.RepositoryURL(repositoryName)
			result.RemotesPlanned = append(result.RemotesPlanned, remote.Name)
			reconciler.dependencies.Reporter.Printf(remotePlanMessage, repositoryPath, remote.Name, remoteURL)
		}
		return result
	}

	cloned, cloneError := reconciler.builder.Clone(executionContext, repositoryName, repositoryPath)
	if cloneError != nil {
		result.Err = cloneError
		return result
	}
	result.Cloned = true
	repositoryLogger.Info("cloned repository", zap.String(logFieldRemoteURLConstant, sourceURL))
	reconciler.dependencies.Reporter.Printf(clonedMessage, repositoryPath, sourceURL)

	reconciler.reconcileRemotes(executionContext, repositoryLogger, cloned, &result)
	return result
}

func (reconciler *Reconciler) reconcileRemotes(executionContext context.Context, logger *zap.Logger, repository vcs.Repository, result *RepositoryResult) {
	for _, remote := range reconciler.workspace.Remotes {
		existing, findError := repository.FindRemote(executionContext, remote.Name)
		if findError == nil {
			result.RemotesPresent = append(result.RemotesPresent, remote.Name)
			logger.Debug("remote already configured", zap.String(logFieldRemoteConstant, remote.Name), zap.String(logFieldRemoteURLConstant, existing.URL()))
			reconciler.dependencies.Reporter.Printf(remoteSkipMessage, result.Path, remote.Name, existing.URL())
			continue
		}
		if !errors.Is(findError, vcs.ErrRemoteNotFound) {
			result.Err = fmt.Errorf(remoteLookupFailureTemplateConstant, ErrRemoteCreate, result.Name, remote.Name, findError)
			return
		}

		remoteURL := remote.RepositoryURL(result.Name)
		if reconciler.options.DryRun {
			result.RemotesPlanned = append(result.RemotesPlanned, remote.Name)
			reconciler.dependencies.Reporter.Printf(remotePlanMessage, result.Path, remote.Name, remoteURL)
			continue
		}

		if createError := repository.CreateRemote(executionContext, remote.Name, remoteURL); createError != nil {
			result.Err = fmt.Errorf(remoteCreateFailureTemplateConstant, ErrRemoteCreate, result.Name, remote.Name, remoteURL, createError)
			return
		}
		result.RemotesAdded = append(result.RemotesAdded, remote.Name)
		logger.Info("created remote", zap.String(logFieldRemoteConstant, remote.Name), zap.String(logFieldRemoteURLConstant, remoteURL))
		reconciler.dependencies.Reporter.Printf(remoteAddedMessage, result.Path, remote.Name, remoteURL)
	}
}

// destinationOccupied reports whether path holds a file or a non-empty directory.
func (reconciler *Reconciler) destinationOccupied(path string) (bool, error) {
	information, statError := reconciler.dependencies.FileSystem.Stat(path)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, nil
		}
		return false, statError
	}
	if !information.IsDir() {
		return true, nil
	}
	entries, readError := reconciler.dependencies.FileSystem.ReadDir(path)
	if readError != nil {
		return false, readError
	}
	return len(entries) > 0, nil
}
