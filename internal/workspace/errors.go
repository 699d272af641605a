package workspace

import "errors"

var (
	// ErrDirectoryCreate reports a workspace directory that could not be created.
	ErrDirectoryCreate = errors.New("workspace directory creation failed")
	// ErrAuthConfig reports an SSH username or key path that could not be determined.
	ErrAuthConfig = errors.New("authentication configuration invalid")
	// ErrClone reports a repository that could not be cloned.
	ErrClone = errors.New("clone failed")
	// ErrRemoteCreate reports a remote that could not be inspected or created.
	ErrRemoteCreate = errors.New("remote creation failed")
)
