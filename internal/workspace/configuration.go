package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/temirov/gitws/internal/utils"
	"github.com/temirov/gitws/internal/vcs"
)

const (
	repositoryURLSeparatorConstant        = "/"
	workspaceIdentifierTemplateConstant   = "workspace %q"
	invalidWorkspaceTemplateConstant      = "%w: %s: %w"
	missingFieldTemplateConstant          = "%s is required"
	emptyRepositoryNameMessageConstant    = "repository names must not be empty"
	duplicateRepositoryTemplateConstant   = "repository %q is declared more than once"
	repositoryPathSeparatorTemplate       = "repository %q must not contain path separators"
	missingRemoteNameTemplateConstant     = "remote #%d has no name"
	missingRemoteAddressTemplateConstant  = "remote %q has no base_addr"
	duplicateRemoteTemplateConstant       = "remote %q is declared more than once"
	remoteShadowsOriginTemplateConstant   = "remote %q has the same name as the origin remote"
	workspacePathTemplateConstant         = "%w: workspace path %q: %w"
	sshKeyPathTemplateConstant            = "%w: ssh_key_path %q: %w"
	fieldPathConstant                     = "path"
	fieldSSHKeyPathConstant               = "ssh_key_path"
	fieldOriginBaseAddressConstant        = "origin.base_addr"
)

// PathExpander resolves environment references in configured paths.
type PathExpander interface {
	Expand(rawPath string) (string, error)
}

// RemoteDescriptor names a remote location. Repository URLs are formed by appending the repository name to BaseAddress.
type RemoteDescriptor struct {
	Name        string `mapstructure:"name" yaml:"name"`
	BaseAddress string `mapstructure:"base_addr" yaml:"base_addr"`
}

// RepositoryURL joins the base address and repository name with a single slash.
func (descriptor RemoteDescriptor) RepositoryURL(repositoryName string) string {
	return strings.TrimRight(descriptor.BaseAddress, repositoryURLSeparatorConstant) + repositoryURLSeparatorConstant + repositoryName
}

// Configuration is one entry of the workspace list.
type Configuration struct {
	Path         string             `mapstructure:"path"`
	SSHKeyPath   string             `mapstructure:"ssh_key_path"`
	Repositories []string           `mapstructure:"repos"`
	Origin       RemoteDescriptor   `mapstructure:"origin"`
	Remotes      []RemoteDescriptor `mapstructure:"remotes"`
}

// OriginName returns the configured origin remote name, or the default when unset.
func (configuration Configuration) OriginName() string {
	trimmed := strings.TrimSpace(configuration.Origin.Name)
	if len(trimmed) == 0 {
		return vcs.DefaultRemoteName
	}
	return trimmed
}

// Validate reports every problem with the entry at once, wrapped in utils.ErrConfigurationParse.
func (configuration Configuration) Validate() error {
	var problems error
	if len(strings.TrimSpace(configuration.Path)) == 0 {
		problems = multierr.Append(problems, fmt.Errorf(missingFieldTemplateConstant, fieldPathConstant))
	}
	if len(strings.TrimSpace(configuration.SSHKeyPath)) == 0 {
		problems = multierr.Append(problems, fmt.Errorf(missingFieldTemplateConstant, fieldSSHKeyPathConstant))
	}
	if len(strings.TrimSpace(configuration.Origin.BaseAddress)) == 0 {
		problems = multierr.Append(problems, fmt.Errorf(missingFieldTemplateConstant, fieldOriginBaseAddressConstant))
	}

	seenRepositories := make(map[string]struct{}, len(configuration.Repositories))
	for _, repositoryName := range configuration.Repositories {
		switch {
		case len(strings.TrimSpace(repositoryName)) == 0:
			problems = multierr.Append(problems, errors.New(emptyRepositoryNameMessageConstant))
			continue
		case strings.ContainsAny(repositoryName, `/\`):
			problems = multierr.Append(problems, fmt.Errorf(repositoryPathSeparatorTemplate, repositoryName))
		}
		if _, seen := seenRepositories[repositoryName]; seen {
			problems = multierr.Append(problems, fmt.Errorf(duplicateRepositoryTemplateConstant, repositoryName))
		}
		seenRepositories[repositoryName] = struct{}{}
	}

	originName := configuration.OriginName()
	seenRemotes := make(map[string]struct{}, len(configuration.Remotes))
	for remoteIndex, remote := range configuration.Remotes {
		remoteName := strings.TrimSpace(remote.Name)
		if len(remoteName) == 0 {
			problems = multierr.Append(problems, fmt.Errorf(missingRemoteNameTemplateConstant, remoteIndex+1))
			continue
		}
		if len(strings.TrimSpace(remote.BaseAddress)) == 0 {
			problems = multierr.Append(problems, fmt.Errorf(missingRemoteAddressTemplateConstant, remoteName))
		}
		if remoteName == originName {
			problems = multierr.Append(problems, fmt.Errorf(remoteShadowsOriginTemplateConstant, remoteName))
		}
		if _, seen := seenRemotes[remoteName]; seen {
			problems = multierr.Append(problems, fmt.Errorf(duplicateRemoteTemplateConstant, remoteName))
		}
		seenRemotes[remoteName] = struct{}{}
	}

	if problems != nil {
		return fmt.Errorf(invalidWorkspaceTemplateConstant, utils.ErrConfigurationParse, configuration.identifier(), problems)
	}
	return nil
}

// Resolve validates the entry and expands its paths into absolute filesystem paths.
// A workspace path that cannot be expanded is a parse error. An SSH key path that cannot be
// expanded is recorded and reported as ErrAuthConfig once credentials are requested, so
// workspaces that need no clone still reconcile.
func (configuration Configuration) Resolve(expander PathExpander) (ResolvedWorkspace, error) {
	if validationError := configuration.Validate(); validationError != nil {
		return ResolvedWorkspace{}, validationError
	}

	expandedPath, expandError := expander.Expand(configuration.Path)
	if expandError != nil {
		return ResolvedWorkspace{}, fmt.Errorf(workspacePathTemplateConstant, utils.ErrConfigurationParse, configuration.Path, expandError)
	}
	absolutePath, absoluteError := filepath.Abs(expandedPath)
	if absoluteError != nil {
		return ResolvedWorkspace{}, fmt.Errorf(workspacePathTemplateConstant, utils.ErrConfigurationParse, configuration.Path, absoluteError)
	}

	resolved := ResolvedWorkspace{
		Path:         absolutePath,
		Repositories: append([]string{}, configuration.Repositories...),
		Origin:       RemoteDescriptor{Name: configuration.OriginName(), BaseAddress: strings.TrimSpace(configuration.Origin.BaseAddress)},
		Remotes:      make([]RemoteDescriptor, 0, len(configuration.Remotes)),
	}
	for _, remote := range configuration.Remotes {
		resolved.Remotes = append(resolved.Remotes, RemoteDescriptor{Name: strings.TrimSpace(remote.Name), BaseAddress: strings.TrimSpace(remote.BaseAddress)})
	}

	expandedKeyPath, keyExpandError := expander.Expand(configuration.SSHKeyPath)
	if keyExpandError != nil {
		resolved.SSHKeyPathError = fmt.Errorf(sshKeyPathTemplateConstant, ErrAuthConfig, configuration.SSHKeyPath, keyExpandError)
		return resolved, nil
	}
	absoluteKeyPath, keyAbsoluteError := filepath.Abs(expandedKeyPath)
	if keyAbsoluteError != nil {
		resolved.SSHKeyPathError = fmt.Errorf(sshKeyPathTemplateConstant, ErrAuthConfig, configuration.SSHKeyPath, keyAbsoluteError)
		return resolved, nil
	}
	resolved.SSHKeyPath = absoluteKeyPath

	return resolved, nil
}

func (configuration Configuration) identifier() string {
	return fmt.Sprintf(workspaceIdentifierTemplateConstant, configuration.Path)
}

// ResolvedWorkspace is the read-only, fully expanded form of a Configuration.
type ResolvedWorkspace struct {
	Path            string             `yaml:"path"`
	SSHKeyPath      string             `yaml:"ssh_key_path"`
	SSHKeyPathError error              `yaml:"-"`
	Repositories    []string           `yaml:"repos"`
	Origin          RemoteDescriptor   `yaml:"origin"`
	Remotes         []RemoteDescriptor `yaml:"remotes"`
}

// RepositoryPath returns the working copy location for repositoryName.
func (workspace ResolvedWorkspace) RepositoryPath(repositoryName string) string {
	return filepath.Join(workspace.Path, repositoryName)
}

// ResolveAll resolves every entry, stopping at the first invalid one.
func ResolveAll(configurations []Configuration, expander PathExpander) ([]ResolvedWorkspace, error) {
	resolved := make([]ResolvedWorkspace, 0, len(configurations))
	for _, configuration := range configurations {
		workspace, resolveError := configuration.Resolve(expander)
		if resolveError != nil {
			return nil, resolveError
		}
		resolved = append(resolved, workspace)
	}
	return resolved, nil
}
