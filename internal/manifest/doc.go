// Package manifest loads, validates, and persists the .gitp_manifest document
// that declares a repository's children and lifecycle hooks.
//
// Documents are decoded with yaml.v3 node trees so declaration order survives
// a load/save cycle, checked structurally against an embedded JSON Schema,
// and then checked semantically for conflicting declarations.
package manifest
