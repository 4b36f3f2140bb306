package pkgbuild

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/anda/internal/command"
	"github.com/vk/anda/internal/manifest"
)

// exitMissingBuildReqs is how rpmbuild -br reports that it wrote a
// placeholder instead of a source package.
const exitMissingBuildReqs = 11

// RPMBuild is the Toolchain backed by rpmbuild and dnf.
type RPMBuild struct {
	Exec   command.Executor
	Target *manifest.RPMTarget
	Layout Layout
	// Env is passed to every invocation.
	Env []string
}

var _ Toolchain = (*RPMBuild)(nil)

func (r *RPMBuild) specPath() string {
	if filepath.IsAbs(r.Target.SpecPath) {
		return r.Target.SpecPath
	}
	return filepath.Join(r.Layout.Workdir, r.Target.SpecPath)
}

// defines returns the macro and conditional flags shared by every rpmbuild call.
func (r *RPMBuild) defines() []string {
	args := []string{
		"--define", "_rpmdir " + r.Layout.Dir(manifest.KindRPM),
		"--define", "_srcrpmdir " + r.Layout.SourceDir(),
		"--define", "_sourcedir " + filepath.Dir(r.specPath()),
	}
	keys := make([]string, 0, len(r.Target.Macros))
	for k := range r.Target.Macros {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--define", k+" "+r.Target.Macros[k])
	}
	for _, w := range r.Target.With {
		args = append(args, "--with", w)
	}
	for _, w := range r.Target.Without {
		args = append(args, "--without", w)
	}
	return args
}

func (r *RPMBuild) request(argv ...string) command.Request {
	return command.Request{Argv: argv, Dir: r.Layout.Workdir, Env: r.Env}
}

func (r *RPMBuild) Probe(ctx context.Context) (Probe, error) {
	argv := append([]string{"rpmbuild", "-br", r.specPath()}, r.defines()...)
	req := r.request(argv...)
	res, err := r.Exec.Run(ctx, req)
	if err != nil {
		return Probe{}, fmt.Errorf("failed to run %q: %w", req.String(), err)
	}
	if res.ExitCode != 0 && res.ExitCode != exitMissingBuildReqs {
		return Probe{}, &command.ExitError{Command: req.String(), Code: res.ExitCode, Output: string(res.Output)}
	}
	written := wroteFiles(res.Output)
	if len(written) == 0 {
		return Probe{}, fmt.Errorf("%q reported no source package", req.String())
	}
	return ProbeOf(written[len(written)-1]), nil
}

func (r *RPMBuild) InstallBuildDeps(ctx context.Context, placeholder string) error {
	_, err := command.Check(ctx, r.Exec, r.request("dnf", "builddep", "-y", placeholder))
	return err
}

func (r *RPMBuild) Remove(placeholder string) error {
	if placeholder == "" {
		return nil
	}
	return os.Remove(placeholder)
}

func (r *RPMBuild) Build(ctx context.Context, srpm string) ([]string, error) {
	argv := append([]string{"rpmbuild", "--rebuild", srpm}, r.defines()...)
	res, err := command.Check(ctx, r.Exec, r.request(argv...))
	if err != nil {
		return nil, err
	}
	files := []string{srpm}
	for _, f := range wroteFiles(res.Output) {
		if strings.HasSuffix(f, ".rpm") && f != srpm {
			files = append(files, f)
		}
	}
	return files, nil
}

// InstallDeclared installs the target's declared build dependencies up front.
func (r *RPMBuild) InstallDeclared(ctx context.Context) error {
	if len(r.Target.BuildDeps) == 0 {
		return nil
	}
	argv := append([]string{"dnf", "install", "-y"}, r.Target.BuildDeps...)
	_, err := command.Check(ctx, r.Exec, r.request(argv...))
	return err
}

// wroteFiles extracts the paths rpmbuild announces with "Wrote: <path>".
func wroteFiles(output []byte) []string {
	var files []string
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if path, ok := strings.CutPrefix(line, "Wrote:"); ok {
			if path = strings.TrimSpace(path); path != "" {
				files = append(files, path)
			}
		}
	}
	return files
}
