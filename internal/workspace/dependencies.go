package workspace

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitws/internal/execshell"
	"github.com/temirov/gitws/internal/utils"
	"github.com/temirov/gitws/internal/vcs"
)

// Backend selects the version control implementation.
type Backend string

const (
	// BackendGoGit uses the in-process go-git library.
	BackendGoGit Backend = "go-git"
	// BackendGitCLI shells out to the git executable.
	BackendGitCLI Backend = "git"

	unsupportedBackendTemplateConstant = "%w: unsupported backend %q (expected %s or %s)"
)

// ParseBackend normalizes a configured backend name. An empty value selects go-git.
func ParseBackend(raw string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(raw))) {
	case "", BackendGoGit:
		return BackendGoGit, nil
	case BackendGitCLI:
		return BackendGitCLI, nil
	default:
		return "", fmt.Errorf(unsupportedBackendTemplateConstant, utils.ErrConfigurationParse, raw, BackendGoGit, BackendGitCLI)
	}
}

// ResolveClient returns existing when provided, otherwise a client for backend.
func ResolveClient(existing vcs.Client, backend Backend, logger *zap.Logger) (vcs.Client, error) {
	if existing != nil {
		return existing, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch backend {
	case BackendGitCLI:
		shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
		if executorError != nil {
			return nil, executorError
		}
		cliClient, clientError := vcs.NewCLIClient(shellExecutor, logger)
		if clientError != nil {
			return nil, clientError
		}
		return cliClient, nil
	default:
		return vcs.NewGoGitClient(logger), nil
	}
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing FileSystem) FileSystem {
	if existing != nil {
		return existing
	}
	return OSFileSystem{}
}
