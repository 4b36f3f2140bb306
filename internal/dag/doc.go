// Package dag holds the stage dependency graph of a single project. It knows
// nothing about commands or execution; it only answers structural questions:
// what depends on what, is there a cycle (and which one), and in what order
// can the nodes be visited.
//
// Iteration order is always the order in which nodes and edges were added, so
// every answer is deterministic for a given manifest.
package dag
