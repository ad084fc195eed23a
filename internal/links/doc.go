// Package links classifies manifest entries into repositories, ordinary links,
// overlay links, and ignored overlays, and resolves link targets on disk.
//
// Classification depends on whether the owning manifest is the entry-point
// root of the current invocation, so it is evaluated on every call and never
// cached.
package links
