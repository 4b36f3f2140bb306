package buildgraph

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/solver/pb"
	"github.com/zeebo/blake3"
	"google.golang.org/protobuf/proto"
)

// OpKind discriminates operations.
type OpKind string

const (
	OpPullImage   OpKind = "pull_image"
	OpMountSource OpKind = "mount_source"
	OpSetWorkdir  OpKind = "set_workdir"
	OpRun         OpKind = "run"
)

// Op is one operation. Only the fields of its kind are set.
type Op struct {
	Kind OpKind
	// Input is the index of the predecessor, -1 for the root.
	Input int

	Image  string
	Repo   string
	Ref    string
	Target string
	Path   string
	Argv   []string
}

// Graph is a compiled job. Ops is the inspectable form; the wire form is the
// LLB definition it lowers to.
type Graph struct {
	JobID string
	Ops   []Op
}

// Validate checks that the graph is a single chain rooted at a PullImage.
func (g *Graph) Validate() error {
	if len(g.Ops) == 0 || g.Ops[0].Kind != OpPullImage {
		return fmt.Errorf("graph must start with %s", OpPullImage)
	}
	for i, op := range g.Ops {
		if op.Input != i-1 {
			return fmt.Errorf("operation %d (%s) has input %d, want %d", i, op.Kind, op.Input, i-1)
		}
		if i > 0 && op.Kind == OpPullImage {
			return fmt.Errorf("operation %d: %s is only valid as the root", i, OpPullImage)
		}
	}
	return nil
}

// State lowers the graph into an LLB chain. Every run gets the source mount
// left behind by the run before it, so build output under the mount carries
// through to the end.
func (g *Graph) State() (llb.State, error) {
	if err := g.Validate(); err != nil {
		return llb.State{}, err
	}

	var (
		root    llb.State
		source  llb.State
		target  string
		workdir string
	)
	for i, op := range g.Ops {
		switch op.Kind {
		case OpPullImage:
			root = llb.Image(op.Image)
		case OpMountSource:
			source = llb.Git(op.Repo, op.Ref)
			target = op.Target
		case OpSetWorkdir:
			workdir = op.Path
		case OpRun:
			st := root
			if workdir != "" {
				st = st.Dir(workdir)
			}
			es := st.Run(llb.Args(op.Argv))
			if target != "" {
				source = es.AddMount(target, source)
			}
			root = es.Root()
		default:
			return llb.State{}, fmt.Errorf("operation %d: unknown kind %q", i, op.Kind)
		}
	}
	return root, nil
}

// Definition marshals the lowered chain for linux/amd64.
func (g *Graph) Definition(ctx context.Context) (*llb.Definition, error) {
	st, err := g.State()
	if err != nil {
		return nil, err
	}
	def, err := st.Marshal(ctx, llb.LinuxAmd64)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job %q: %w", g.JobID, err)
	}
	return def, nil
}

// MarshalBinary returns the protobuf encoded LLB definition. Equal graphs
// always produce identical bytes.
func (g *Graph) MarshalBinary() ([]byte, error) {
	def, err := g.Definition(context.Background())
	if err != nil {
		return nil, err
	}
	return EncodeDefinition(def)
}

// Digest is the hex blake3 hash of the wire form.
func (g *Graph) Digest() (string, error) {
	data, err := g.MarshalBinary()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// EncodeDefinition serializes def with map entries in a stable order.
func EncodeDefinition(def *llb.Definition) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(def.ToPB())
}

// DecodeDefinition reads a wire form produced by MarshalBinary.
func DecodeDefinition(data []byte) (*llb.Definition, error) {
	def, err := llb.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return def, nil
}

// DecodeOps unmarshals every operation of def, in definition order.
func DecodeOps(def *llb.Definition) ([]*pb.Op, error) {
	ops := make([]*pb.Op, 0, len(def.Def))
	for i, dt := range def.Def {
		var op pb.Op
		if err := proto.Unmarshal(dt, &op); err != nil {
			return nil, fmt.Errorf("failed to decode operation %d: %w", i, err)
		}
		ops = append(ops, &op)
	}
	return ops, nil
}
