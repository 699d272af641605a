// Package execshell provides structured helpers for invoking the git executable.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and describes git invocations in human-readable
// form so the git command-line backend stays observable and testable.
package execshell
