package pkgbuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vk/anda/internal/command"
	"github.com/vk/anda/internal/manifest"
)

// FlatpakRunner builds a sandboxed application into a local repository and
// exports it as a single-file bundle.
type FlatpakRunner struct {
	Exec   command.Executor
	Layout Layout
	Env    []string
}

type flatpakManifest struct {
	AppID string `yaml:"app-id"`
	ID    string `yaml:"id"`
}

// AppID reads the application id from a YAML or JSON flatpak manifest.
func AppID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var m flatpakManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("failed to parse flatpak manifest %s: %w", path, err)
	}
	switch {
	case m.AppID != "":
		return m.AppID, nil
	case m.ID != "":
		return m.ID, nil
	default:
		return "", errors.New("flatpak manifest has no app-id")
	}
}

// Build returns the path of the produced bundle.
func (f *FlatpakRunner) Build(ctx context.Context, t *manifest.SandboxedAppTarget) ([]string, error) {
	manifestPath := t.ManifestPath
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(f.Layout.Workdir, manifestPath)
	}
	appID, err := AppID(manifestPath)
	if err != nil {
		return nil, err
	}

	out := f.Layout.Dir(manifest.KindSandboxedApp)
	buildDir := filepath.Join(out, "build", appID)
	repo := filepath.Join(out, "repo")
	bundle := filepath.Join(out, "bundles", appID+".flatpak")
	for _, dir := range []string{buildDir, repo, filepath.Dir(bundle)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	steps := [][]string{
		{"flatpak-builder", "--force-clean", "--repo", repo, buildDir, manifestPath},
		{"flatpak", "build-bundle", repo, bundle, appID},
	}
	for _, argv := range steps {
		if _, err := command.Check(ctx, f.Exec, command.Request{Argv: argv, Dir: f.Layout.Workdir, Env: f.Env}); err != nil {
			return nil, err
		}
	}
	return []string{bundle}, nil
}
