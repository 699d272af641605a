// Package vcs adapts version-control toolchains to the small surface the
// workspace reconciler needs: opening and cloning repositories and finding,
// creating, and renaming remotes. Two backends are provided: an in-process
// go-git client and a client that drives the git executable.
package vcs
