package buildgraph

import (
	"strings"
	"testing"

	"github.com/moby/buildkit/solver/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() JobSpec {
	return JobSpec{ID: "job-1", Repo: "https://github.com/example/pkg.git", Ref: "main", Builder: "fedora:40"}
}

func TestCompile_Shape(t *testing.T) {
	g, err := Compile(validSpec())
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	require.Len(t, g.Ops, 7)

	assert.Equal(t, Op{Kind: OpPullImage, Input: -1, Image: "index.docker.io/library/fedora:40"}, g.Ops[0])
	assert.Equal(t, Op{Kind: OpMountSource, Input: 0, Repo: "https://github.com/example/pkg.git", Ref: "main", Target: "/src"}, g.Ops[1])
	assert.Equal(t, Op{Kind: OpSetWorkdir, Input: 1, Path: "/src"}, g.Ops[2])

	assert.Equal(t, []string{"dnf", "install", "-y", "rpmdevtools", "rpm-build", "dnf-plugins-core"}, g.Ops[3].Argv)
	assert.Equal(t, []string{"dnf", "builddep", "-y", "package.spec"}, g.Ops[4].Argv)
	assert.Equal(t, []string{"rpmdev-setuptree"}, g.Ops[5].Argv)
	assert.Equal(t, []string{
		"rpmbuild", "-ba", "package.spec",
		"--define", "_rpmdir /src/anda-build/rpm",
		"--define", "_srcrpmdir /src/anda-build/rpm/src",
		"--define", "_sourcedir /src",
		"--define", "_disable_source_fetch 1",
	}, g.Ops[6].Argv)
}

func TestCompile_Idempotent(t *testing.T) {
	a, err := Compile(validSpec())
	require.NoError(t, err)
	b, err := Compile(validSpec())
	require.NoError(t, err)

	wireA, err := a.MarshalBinary()
	require.NoError(t, err)
	wireB, err := b.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, wireA, wireB)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)

	other := validSpec()
	other.Ref = "v2"
	c, err := Compile(other)
	require.NoError(t, err)
	dc, err := c.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*JobSpec)
		want   error
	}{
		{"empty id", func(s *JobSpec) { s.ID = "" }, ErrInvalidJobID},
		{"blank id", func(s *JobSpec) { s.ID = "  " }, ErrInvalidJobID},
		{"empty builder", func(s *JobSpec) { s.Builder = "" }, ErrInvalidBuilderImage},
		{"bad builder", func(s *JobSpec) { s.Builder = "Fedora:@@" }, ErrInvalidBuilderImage},
		{"relative repo", func(s *JobSpec) { s.Repo = "example/pkg" }, ErrSourceFetchSpecInvalid},
		{"no host", func(s *JobSpec) { s.Repo = "file:///tmp/pkg" }, ErrSourceFetchSpecInvalid},
		{"empty ref", func(s *JobSpec) { s.Ref = "" }, ErrSourceFetchSpecInvalid},
		{"ref with space", func(s *JobSpec) { s.Ref = "main branch" }, ErrSourceFetchSpecInvalid},
		{"ref with dots", func(s *JobSpec) { s.Ref = "a..b" }, ErrSourceFetchSpecInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			g, err := Compile(spec)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGraph_WireFormIsLLB(t *testing.T) {
	g, err := Compile(validSpec())
	require.NoError(t, err)
	wire, err := g.MarshalBinary()
	require.NoError(t, err)

	def, err := DecodeDefinition(wire)
	require.NoError(t, err)
	again, err := EncodeDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, wire, again)

	ops, err := DecodeOps(def)
	require.NoError(t, err)

	var sources []string
	var execs []*pb.ExecOp
	for _, op := range ops {
		if src := op.GetSource(); src != nil {
			sources = append(sources, src.GetIdentifier())
		}
		if ex := op.GetExec(); ex != nil {
			execs = append(execs, ex)
		}
	}

	require.Len(t, sources, 2)
	assert.Contains(t, sources, "docker-image://docker.io/library/fedora:40")
	var gitSource string
	for _, id := range sources {
		if strings.HasPrefix(id, "git://") {
			gitSource = id
		}
	}
	assert.Contains(t, gitSource, "github.com/example/pkg.git")
	assert.Contains(t, gitSource, "main")

	require.Len(t, execs, 4)
	assert.Equal(t, g.Ops[3].Argv, execs[0].GetMeta().GetArgs())
	assert.Equal(t, g.Ops[6].Argv, execs[3].GetMeta().GetArgs())
	for _, ex := range execs {
		assert.Equal(t, SourcePath, ex.GetMeta().GetCwd())
		var dests []string
		for _, m := range ex.GetMounts() {
			dests = append(dests, m.GetDest())
		}
		assert.ElementsMatch(t, []string{"/", SourcePath}, dests)
	}
}

func TestGraph_DefinitionOfRejectedGraph(t *testing.T) {
	g := &Graph{JobID: "job-1", Ops: []Op{
		{Kind: OpPullImage, Input: -1, Image: "fedora:40"},
		{Kind: OpSetWorkdir, Input: 0, Path: "/src"},
		{Kind: OpRun, Input: 0, Argv: []string{"true"}},
	}}
	_, err := g.MarshalBinary()
	assert.Error(t, err)

	_, err = DecodeDefinition([]byte("not a definition"))
	assert.Error(t, err)
}

func TestGraph_ValidateRejectsBranches(t *testing.T) {
	g := &Graph{Ops: []Op{
		{Kind: OpPullImage, Input: -1},
		{Kind: OpSetWorkdir, Input: 0},
		{Kind: OpRun, Input: 0},
	}}
	assert.Error(t, g.Validate())
	assert.Error(t, (&Graph{}).Validate())

	_, err := (&Graph{Ops: []Op{{Kind: OpPullImage, Input: -1}, {Kind: "copy", Input: 0}}}).State()
	assert.Error(t, err)
}
