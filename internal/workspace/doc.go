// Package workspace converges declared workspaces onto the filesystem.
//
// A Reconciler opens or clones every declared repository beneath the workspace
// directory and adds any declared remotes that are missing. Existing clones and
// remotes are never modified, so repeated runs are idempotent.
package workspace
