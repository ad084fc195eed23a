// Package cli constructs the gitp command-line interface. It wires the Cobra
// command hierarchy to the configuration loader and the structured logger,
// records the entry-point root in the command context, and registers the tree
// commands.
package cli
