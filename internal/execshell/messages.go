package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	defaultWorkingDirectoryLabelConstant    = "current directory"
)

const (
	gitCloneSubcommandNameConstant        = "clone"
	gitRemoteSubcommandNameConstant       = "remote"
	gitRemoteAddSubcommandNameConstant    = "add"
	gitRemoteRenameSubcommandNameConstant = "rename"
	gitRemoteGetURLSubcommandNameConstant = "get-url"
	gitRevParseSubcommandNameConstant     = "rev-parse"
)

const (
	gitCloneStartTemplateConstant              = "Cloning %s into %s"
	gitCloneSuccessTemplateConstant            = "Cloned %s into %s"
	gitCloneFailureTemplateConstant            = "Failed to clone %s into %s (exit code %d%s)"
	gitRemoteAddStartTemplateConstant          = "Adding remote %s pointing to %s in %s"
	gitRemoteAddSuccessTemplateConstant        = "Added remote %s pointing to %s in %s"
	gitRemoteAddFailureTemplateConstant        = "Failed to add remote %s pointing to %s in %s (exit code %d%s)"
	gitRemoteRenameStartTemplateConstant       = "Renaming remote %s to %s in %s"
	gitRemoteRenameSuccessTemplateConstant     = "Renamed remote %s to %s in %s"
	gitRemoteRenameFailureTemplateConstant     = "Failed to rename remote %s to %s in %s (exit code %d%s)"
	gitRemoteGetURLStartTemplateConstant       = "Reading URL of remote %s in %s"
	gitRemoteGetURLSuccessTemplateConstant     = "Read URL of remote %s in %s"
	gitRemoteGetURLFailureTemplateConstant     = "Failed to read URL of remote %s in %s (exit code %d%s)"
	gitRemoteListStartTemplateConstant         = "Listing remotes in %s"
	gitRemoteListSuccessTemplateConstant       = "Listed remotes in %s"
	gitRemoteListFailureTemplateConstant       = "Failed to list remotes in %s (exit code %d%s)"
	gitRevParseStartTemplateConstant           = "Locating repository root for %s"
	gitRevParseSuccessTemplateConstant         = "Located repository root for %s"
	gitRevParseFailureTemplateConstant         = "%s is not inside a repository (exit code %d%s)"
	gitSubcommandExecutionFailureTemplateConst = "Unable to run git %s in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	arguments := positionalArguments(command.Details.Arguments)
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	workingDirectory := formatter.describeWorkingDirectory(command)
	standardErrorSuffix := formatter.formatStandardErrorSuffix(result.StandardError)

	if stage == messageStageExecutionFailure {
		return fmt.Sprintf(gitSubcommandExecutionFailureTemplateConst, arguments[0], workingDirectory, formatter.describeFailure(failure))
	}

	switch {
	case len(arguments) >= 3 && arguments[0] == gitCloneSubcommandNameConstant:
		source, destination := arguments[1], arguments[2]
		return selectMessage(stage,
			fmt.Sprintf(gitCloneStartTemplateConstant, source, destination),
			fmt.Sprintf(gitCloneSuccessTemplateConstant, source, destination),
			fmt.Sprintf(gitCloneFailureTemplateConstant, source, destination, result.ExitCode, standardErrorSuffix),
		)
	case len(arguments) >= 4 && arguments[0] == gitRemoteSubcommandNameConstant && arguments[1] == gitRemoteAddSubcommandNameConstant:
		return selectMessage(stage,
			fmt.Sprintf(gitRemoteAddStartTemplateConstant, arguments[2], arguments[3], workingDirectory),
			fmt.Sprintf(gitRemoteAddSuccessTemplateConstant, arguments[2], arguments[3], workingDirectory),
			fmt.Sprintf(gitRemoteAddFailureTemplateConstant, arguments[2], arguments[3], workingDirectory, result.ExitCode, standardErrorSuffix),
		)
	case len(arguments) >= 4 && arguments[0] == gitRemoteSubcommandNameConstant && arguments[1] == gitRemoteRenameSubcommandNameConstant:
		return selectMessage(stage,
			fmt.Sprintf(gitRemoteRenameStartTemplateConstant, arguments[2], arguments[3], workingDirectory),
			fmt.Sprintf(gitRemoteRenameSuccessTemplateConstant, arguments[2], arguments[3], workingDirectory),
			fmt.Sprintf(gitRemoteRenameFailureTemplateConstant, arguments[2], arguments[3], workingDirectory, result.ExitCode, standardErrorSuffix),
		)
	case len(arguments) >= 3 && arguments[0] == gitRemoteSubcommandNameConstant && arguments[1] == gitRemoteGetURLSubcommandNameConstant:
		return selectMessage(stage,
			fmt.Sprintf(gitRemoteGetURLStartTemplateConstant, arguments[2], workingDirectory),
			fmt.Sprintf(gitRemoteGetURLSuccessTemplateConstant, arguments[2], workingDirectory),
			fmt.Sprintf(gitRemoteGetURLFailureTemplateConstant, arguments[2], workingDirectory, result.ExitCode, standardErrorSuffix),
		)
	case len(arguments) == 1 && arguments[0] == gitRemoteSubcommandNameConstant:
		return selectMessage(stage,
			fmt.Sprintf(gitRemoteListStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitRemoteListSuccessTemplateConstant, workingDirectory),
			fmt.Sprintf(gitRemoteListFailureTemplateConstant, workingDirectory, result.ExitCode, standardErrorSuffix),
		)
	case arguments[0] == gitRevParseSubcommandNameConstant:
		return selectMessage(stage,
			fmt.Sprintf(gitRevParseStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitRevParseSuccessTemplateConstant, workingDirectory),
			fmt.Sprintf(gitRevParseFailureTemplateConstant, workingDirectory, result.ExitCode, standardErrorSuffix),
		)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	label := command.label()
	if len(strings.TrimSpace(command.Details.WorkingDirectory)) > 0 {
		label += fmt.Sprintf(workingDirectorySuffixTemplateConstant, strings.TrimSpace(command.Details.WorkingDirectory))
	}

	switch stage {
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, label)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, label, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, label, formatter.describeFailure(failure))
	default:
		return fmt.Sprintf(genericStartTemplateConstant, label)
	}
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmed := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmed) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmed := strings.TrimSpace(standardError)
	if len(trimmed) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func selectMessage(stage messageStage, started string, succeeded string, failed string) string {
	switch stage {
	case messageStageSuccess:
		return succeeded
	case messageStageFailure:
		return failed
	default:
		return started
	}
}

// positionalArguments drops flags so subcommand detection ignores options such as "--quiet".
func positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if strings.HasPrefix(trimmed, "-") {
			continue
		}
		positional = append(positional, trimmed)
	}
	return positional
}
