package workspace

import (
	"context"

	"go.uber.org/multierr"
)

const summaryMessage = "SUMMARY: %s cloned=%d present=%d remotes-added=%d remotes-present=%d failed=%d\n"

// Service reconciles workspaces one after another.
type Service struct {
	dependencies Dependencies
	options      Options
}

// NewService constructs a Service sharing dependencies across workspaces.
func NewService(dependencies Dependencies, options Options) *Service {
	return &Service{dependencies: dependencies, options: options}
}

// Run reconciles each workspace in order. Without ContinueOnError the first failure stops the run;
// with it every workspace is attempted and the failures are combined.
func (service *Service) Run(executionContext context.Context, workspaces []ResolvedWorkspace) ([]Result, error) {
	results := make([]Result, 0, len(workspaces))
	var combined error
	for _, workspace := range workspaces {
		reconciler, reconcilerError := NewReconciler(workspace, service.dependencies, service.options)
		if reconcilerError != nil {
			return results, reconcilerError
		}

		result, reconcileError := reconciler.Reconcile(executionContext)
		results = append(results, result)
		service.printSummary(result)
		if reconcileError == nil {
			continue
		}
		if !service.options.ContinueOnError {
			return results, reconcileError
		}
		combined = multierr.Append(combined, reconcileError)
	}
	return results, combined
}

func (service *Service) printSummary(result Result) {
	if service.dependencies.Reporter == nil || service.options.DryRun {
		return
	}

	var cloned, present, remotesAdded, remotesPresent int
	for _, repository := range result.Repositories {
		switch {
		case repository.Cloned:
			cloned++
		case repository.Err == nil:
			present++
		}
		remotesAdded += len(repository.RemotesAdded)
		remotesPresent += len(repository.RemotesPresent)
	}
	service.dependencies.Reporter.Printf(summaryMessage, result.WorkspacePath, cloned, present, remotesAdded, remotesPresent, len(result.Failures()))
}
