// Package treesync drives clone and pull across a resolved composition tree,
// runs post_clone and post_pull hooks, applies root overlays, and declares or
// removes links and child repositories with manifest write-back.
//
// Clone is parent-before-children: a node's absent children are materialized,
// then the node's post_clone hooks run, then each child is processed. Pull is
// children-before-parent: the node is brought to its target, its children are
// pulled, its post_pull hooks run, and at the entry-point root the overlays are
// applied last. A failure aborts the failing node's subtree only.
package treesync
