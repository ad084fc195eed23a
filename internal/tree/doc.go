// Package tree resolves the composition tree of nested repositories starting
// at the entry-point root of an invocation.
//
// The resolved tree is an immutable node table indexed by slash-separated
// path. Children are stored as ordered path lists, so cycle checks and overlay
// substitution are table lookups. Resolution failures below the root are
// collected per subtree; failures at the root abort resolution.
package tree
