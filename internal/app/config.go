package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/anda/internal/manifest"
)

// Mode selects the workflow App.Run performs.
type Mode string

const (
	ModeBuild    Mode = "build"
	ModeValidate Mode = "validate"
	ModeList     Mode = "list"
	ModeClean    Mode = "clean"
	ModeServe    Mode = "serve"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Mode Mode

	ManifestPath string // hcl file or directory
	DotenvPath   string
	Workdir      string
	// Targets select projects by name or alias. "project::stage" runs one
	// stage and its dependencies. Empty means every project.
	Targets []string

	// Package limits a build to projects with this target kind. Empty means
	// every project.
	Package manifest.TargetKind

	OutputRoot  string
	CacheDir    string // empty disables the artifact cache
	WorkerCount int
	MaxAttempts int
	NotifyURL   string
	// OCILabels and OCIBuildArgs are added to every container image build.
	OCILabels    map[string]string
	OCIBuildArgs map[string]string

	ListenAddr      string
	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Mode {
	case ModeBuild, ModeValidate, ModeList:
		if cfg.ManifestPath == "" {
			return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
		}
	case ModeClean:
	case ModeServe:
		if cfg.ListenAddr == "" {
			return nil, errors.New("ListenAddr is required in serve mode")
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.Package != "" && !slices.Contains(manifest.TargetKinds, cfg.Package) {
		return nil, fmt.Errorf("unknown package kind %q", cfg.Package)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf("max attempts must not be negative, got %d", cfg.MaxAttempts)
	}
	if cfg.Workdir == "" {
		cfg.Workdir = "."
	}
	return &cfg, nil
}
