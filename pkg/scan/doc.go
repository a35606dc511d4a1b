// Package scan computes exclusive prefix sums with the work-efficient
// two-phase tree algorithm, running the independent nodes of every tree level
// on concurrent workers.
//
// The input is copied into a Buffer of n+1 slots. The up-sweep combines pairs
// at strides 2, 4, ..., n, leaving partial sums at the right child of every
// tree node and the grand total at slot n-1. The total is saved and cleared,
// and the down-sweep walks the tree back from the root, handing each node's
// value to its left child and the node plus the old left child to its right
// child. After the last level, slot i holds the sum of input[:i] and the saved
// total is written to slot n.
//
// Each level is split by Partition into contiguous, disjoint per-worker ranges,
// so workers share the buffer without locks. A Barrier separates levels:
// no task of level l+1 starts before every task of level l has returned.
//
// The length of the input must be a power of two.
package scan
