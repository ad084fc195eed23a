// Package tree builds the gitp commands that operate on a composition tree:
// clone, pull, status, link, unlink, add, remote, rm, and exec. Each command is assembled by a
// CommandBuilder whose collaborators default to the git executable, go-git,
// and the operating system.
package tree
