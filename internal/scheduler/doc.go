// Package scheduler runs the stages of one project in dependency order.
//
// # How It Works
//
// Every stage becomes a node.Node carrying an atomic count of unmet
// dependencies. Root nodes are queued on a buffered ready channel and a fixed
// pool of workers drains it:
//
//  1. A worker picks up a node and runs it (declared commands through the
//     command.Executor, or the package target through a PackageBuilder).
//  2. On success it decrements the counter of every dependent and queues the
//     ones that reach zero.
//  3. On failure it marks every transitive dependent Skipped. Skipped nodes
//     never run. Independent branches keep going.
//
// Once every node is terminal, the rollback of each failed stage runs, in
// reverse topological order. Rollback never cascades to other stages, and a
// failing rollback is recorded without changing the stage's outcome.
//
// # Variables
//
// Commands of a stage are expanded once, against the vars.Context the run was
// started with, so every command of the stage sees the same snapshot.
//
// # Cancellation
//
// Cancelling the run context stops dispatch: nodes picked up afterwards and
// all their dependents are Skipped. A stage that already started runs to
// completion. Rollbacks run on a context detached from cancellation.
package scheduler
