// Package cli constructs the gitws command-line interface, wiring the Cobra
// command hierarchy, configuration loader, and structured logging to the
// workspace reconciler.
package cli
