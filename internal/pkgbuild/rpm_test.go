package pkgbuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/retry"
)

// fakeToolchain answers probes from a script. After the script runs out it
// keeps answering with the last entry.
type fakeToolchain struct {
	probes   []Probe
	probeErr error
	buildErr error

	probeCalls   int
	installs     []string
	removed      []string
	built        string
	buildOutputs []string
}

func (f *fakeToolchain) Probe(context.Context) (Probe, error) {
	f.probeCalls++
	if f.probeErr != nil {
		return Probe{}, f.probeErr
	}
	i := f.probeCalls - 1
	if i >= len(f.probes) {
		i = len(f.probes) - 1
	}
	return f.probes[i], nil
}

func (f *fakeToolchain) InstallBuildDeps(_ context.Context, placeholder string) error {
	f.installs = append(f.installs, placeholder)
	return nil
}

func (f *fakeToolchain) Remove(placeholder string) error {
	f.removed = append(f.removed, placeholder)
	return nil
}

func (f *fakeToolchain) Build(_ context.Context, srpm string) ([]string, error) {
	f.built = srpm
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return f.buildOutputs, nil
}

func testCtx() context.Context { return ctxlog.Discard(context.Background()) }

var placeholder = ProbeOf("/w/anda-build/rpm/src/foo-1.0-1." + PlaceholderMarker)

func TestProbeOf(t *testing.T) {
	assert.True(t, ProbeOf("/x/foo-1-1.fc40.buildreqs.nosrc.rpm").Unresolved)
	assert.False(t, ProbeOf("/x/foo-1-1.fc40.src.rpm").Unresolved)
	assert.False(t, ProbeOf("/buildreqs.nosrc.rpm.d/foo.src.rpm").Unresolved)
}

func TestRPMDriver_ExhaustsAfterTenProbes(t *testing.T) {
	tool := &fakeToolchain{probes: []Probe{placeholder}}
	d := &RPMDriver{Tool: tool}

	files, err := d.Run(testCtx())
	require.Error(t, err)
	assert.Nil(t, files)

	var ex *DependencyResolutionExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 10, ex.Attempts)
	assert.True(t, IsResolutionExhausted(err))

	assert.Equal(t, 10, tool.probeCalls)
	assert.Len(t, tool.installs, 9)
	// Nine cleanups between attempts plus the final placeholder.
	assert.Len(t, tool.removed, 10)
	assert.Empty(t, tool.built)
}

func TestRPMDriver_ResolvesAfterRetries(t *testing.T) {
	srpm := ProbeOf("/w/anda-build/rpm/src/foo-1.0-1.src.rpm")
	tool := &fakeToolchain{
		probes:       []Probe{placeholder, placeholder, srpm},
		buildOutputs: []string{srpm.CandidatePath, "/w/anda-build/rpm/x86_64/foo-1.0-1.x86_64.rpm"},
	}
	d := &RPMDriver{Tool: tool}

	files, err := d.Run(testCtx())
	require.NoError(t, err)
	assert.Equal(t, 3, tool.probeCalls)
	assert.Len(t, tool.installs, 2)
	assert.Equal(t, []string{placeholder.CandidatePath, placeholder.CandidatePath}, tool.removed)
	assert.Equal(t, srpm.CandidatePath, tool.built)
	assert.Len(t, files, 2)
}

func TestRPMDriver_FatalErrorsAreNotRetried(t *testing.T) {
	t.Run("probe", func(t *testing.T) {
		tool := &fakeToolchain{probeErr: errors.New("spec parse error")}
		_, err := (&RPMDriver{Tool: tool}).Run(testCtx())
		require.Error(t, err)
		assert.False(t, IsResolutionExhausted(err))
		assert.Equal(t, 1, tool.probeCalls)
	})
	t.Run("build", func(t *testing.T) {
		tool := &fakeToolchain{probes: []Probe{ProbeOf("/x/a.src.rpm")}, buildErr: errors.New("compile error")}
		_, err := (&RPMDriver{Tool: tool}).Run(testCtx())
		require.ErrorContains(t, err, "compile error")
		assert.Equal(t, 1, tool.probeCalls)
	})
}

func TestRPMDriver_CustomBound(t *testing.T) {
	tool := &fakeToolchain{probes: []Probe{placeholder}}
	d := &RPMDriver{Tool: tool, Policy: retry.Policy{MaxAttempts: 3}}
	_, err := d.Run(testCtx())
	var ex *DependencyResolutionExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
	assert.Equal(t, 3, tool.probeCalls)
}

func TestCache_Store(t *testing.T) {
	src := t.TempDir()
	a := filepath.Join(src, "a.rpm")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))

	cache := &Cache{Dir: filepath.Join(t.TempDir(), "cache")}
	stored := cache.Store(testCtx(), []string{a, filepath.Join(src, "missing.rpm")})

	require.Len(t, stored, 1)
	data, err := os.ReadFile(stored[0])
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	var nilCache *Cache
	assert.Nil(t, nilCache.Store(testCtx(), []string{a}))
}

func TestLayout(t *testing.T) {
	l := Layout{Workdir: "/w"}
	assert.Equal(t, "/w/anda-build/rpm", l.Dir("rpm"))
	assert.Equal(t, "/w/anda-build/rpm/src", l.SourceDir())
	assert.Equal(t, "/out/oci", Layout{Workdir: "/w", Root: "/out"}.Dir("oci"))
}

func TestLayout_Clean(t *testing.T) {
	dir := t.TempDir()
	l := Layout{Workdir: dir}
	require.NoError(t, os.MkdirAll(l.SourceDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(l.SourceDir(), "foo.src.rpm"), []byte("x"), 0o644))

	removed, err := l.Clean()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultOutputRoot), removed)
	assert.NoDirExists(t, removed)
	assert.DirExists(t, dir)

	_, err = l.Clean()
	assert.NoError(t, err, "cleaning twice is fine")

	_, err = Layout{Workdir: dir, Root: "."}.Clean()
	assert.Error(t, err)
	assert.DirExists(t, dir)
	_, err = Layout{Workdir: dir, Root: "/"}.Clean()
	assert.Error(t, err)
}
