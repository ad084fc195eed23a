// Package status reports the observed state of every node of a resolved tree
// without mutating anything or running hooks.
package status
