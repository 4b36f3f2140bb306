// Package node holds the mutable run state of one stage during a single
// scheduling run. All state transitions are safe for concurrent use.
package node

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/anda/internal/manifest"
)

// Kind distinguishes user-declared stages from the synthetic package stage.
type Kind int

const (
	// CommandStage runs the commands of a declared stage.
	CommandStage Kind = iota
	// PackageStage builds the project's package target.
	PackageStage
)

// State represents the execution state of a node.
type State int32

const (
	// Pending indicates the node is waiting for its dependencies to complete.
	Pending State = iota
	// Running indicates the node is currently being executed by a worker.
	Running
	// Succeeded indicates the node completed successfully.
	Succeeded
	// Failed indicates the node ran and failed.
	Failed
	// Skipped indicates the node never ran because a dependency did not succeed
	// or the run was cancelled.
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Node is a single vertex of a scheduling run.
type Node struct {
	name string
	Kind Kind
	// Stage is nil for the package stage.
	Stage *manifest.Stage

	// Error stores the failure or skip reason. It is written once, before the
	// node's WaitGroup slot is released.
	Error error
	// Started and Finished are zero for skipped nodes.
	Started  time.Time
	Finished time.Time

	// depCount is an atomic counter for unmet dependencies.
	depCount atomic.Int32
	state    atomic.Int32
	// doneOnce guarantees a node reaches a terminal state exactly once.
	doneOnce sync.Once
}

// New creates a node for a declared stage.
func New(stage *manifest.Stage) *Node {
	return &Node{name: stage.Name, Kind: CommandStage, Stage: stage}
}

// NewPackage creates the synthetic package stage node.
func NewPackage(name string) *Node {
	return &Node{name: name, Kind: PackageStage}
}

// ID returns the stage name.
func (n *Node) ID() string { return n.name }

// SetDepCount sets the number of unmet dependencies.
func (n *Node) SetDepCount(count int32) { n.depCount.Store(count) }

// DepCount atomically returns the current number of unmet dependencies.
func (n *Node) DepCount() int32 { return n.depCount.Load() }

// DecrementDepCount atomically decrements the dependency counter and returns
// the new value. Concurrent completions of two dependencies each observe a
// distinct value, so exactly one of them sees zero.
func (n *Node) DecrementDepCount() int32 { return n.depCount.Add(-1) }

// SetState atomically sets the node's execution state.
func (n *Node) SetState(s State) { n.state.Store(int32(s)) }

// GetState atomically retrieves the node's execution state.
func (n *Node) GetState() State { return State(n.state.Load()) }

// Duration is how long the node ran. Zero for nodes that never started.
func (n *Node) Duration() time.Duration {
	if n.Started.IsZero() || n.Finished.IsZero() {
		return 0
	}
	return n.Finished.Sub(n.Started)
}

// Finish moves the node to a terminal state and releases its WaitGroup slot.
// Only the first call has any effect; it reports whether this call won.
func (n *Node) Finish(s State, err error, wg *sync.WaitGroup) bool {
	var won bool
	n.doneOnce.Do(func() {
		n.Error = err
		n.SetState(s)
		wg.Done()
		won = true
	})
	return won
}

// Skip is Finish with the Skipped state.
func (n *Node) Skip(err error, wg *sync.WaitGroup) bool {
	return n.Finish(Skipped, err, wg)
}
