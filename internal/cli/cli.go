package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/vk/anda/internal/app"
	anderr "github.com/vk/anda/internal/errors"
	"github.com/vk/anda/internal/manifest"
	"github.com/vk/anda/internal/pkgbuild"
	"github.com/vk/anda/internal/retry"
	"github.com/vk/anda/internal/scheduler"
)

// Version is set at build time.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type Globals struct {
	LogFormat       string           `help:"Log output format." enum:"text,json" default:"text" env:"ANDA_LOG_FORMAT"`
	LogLevel        string           `help:"Logging level." enum:"debug,info,warn,error" default:"info" env:"ANDA_LOG_LEVEL"`
	HealthcheckPort int              `help:"Port for the /health and /metrics server during builds. 0 disables it." default:"0" env:"ANDA_HEALTHCHECK_PORT"`
	Version         kong.VersionFlag `help:"Print version and exit."`
}

type ManifestFlags struct {
	Manifest string   `short:"f" help:"Manifest file or directory of .hcl files." default:"anda.hcl" env:"ANDA_MANIFEST"`
	Dotenv   string   `help:"Dotenv file exposed to the manifest through env." default:".env"`
	Workdir  string   `short:"C" help:"Working directory for stages and package output." default:"." env:"ANDA_WORKDIR"`
	Targets  []string `arg:"" optional:"" help:"Projects to run, by name or alias. project::stage runs one stage and its dependencies."`
}

type buildCmd struct {
	Source ManifestFlags `embed:""`

	Workers     int    `short:"j" help:"Stages of one project run at the same time." default:"${workers}" env:"ANDA_WORKERS"`
	OutputRoot  string `help:"Package output directory, relative to the working directory." default:"${output_root}"`
	CacheDir    string `help:"Shared artifact cache directory." default:"${cache_dir}" env:"ANDA_CACHE_DIR"`
	NoCache     bool   `help:"Do not copy artifacts into the cache."`
	MaxAttempts int    `help:"Dependency resolution attempts for RPM builds." default:"${max_attempts}"`
	NotifyURL   string `help:"socket.io server receiving progress events." env:"ANDA_NOTIFY_URL"`

	Package  string            `short:"p" help:"Only build projects with this package kind." enum:"all,rpm,oci,flatpak" default:"all"`
	Label    map[string]string `help:"Label added to every container image." placeholder:"KEY=VALUE"`
	BuildArg map[string]string `help:"Build argument passed to every container image build." placeholder:"KEY=VALUE"`
}

type validateCmd struct {
	Source ManifestFlags `embed:""`
}

type listCmd struct {
	Source  ManifestFlags `embed:""`
	Package string        `short:"p" help:"Only list projects with this package kind." enum:"all,rpm,oci,flatpak" default:"all"`
}

type cleanCmd struct {
	Workdir    string `short:"C" help:"Working directory holding the package output." default:"." env:"ANDA_WORKDIR"`
	OutputRoot string `help:"Package output directory, relative to the working directory." default:"${output_root}"`
}

type serveCmd struct {
	Listen string `help:"Address the compile server listens on." default:":8080" env:"ANDA_LISTEN"`
}

type root struct {
	Globals `embed:""`

	Build    buildCmd    `cmd:"" default:"withargs" help:"Run the stages and package builds of projects (default)."`
	Validate validateCmd `cmd:"" help:"Load and validate the manifest without running anything."`
	List     listCmd     `cmd:"" help:"List projects with their aliases and package kind."`
	Clean    cleanCmd    `cmd:"" help:"Remove the package output directory."`
	Serve    serveCmd    `cmd:"" help:"Serve build graph compilation over JSON-RPC."`
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	var cli root
	exited := false
	parser, err := kong.New(&cli,
		kong.Name("anda"),
		kong.Description("Build orchestrator for RPM, container image and flatpak projects."),
		kong.Writers(output, output),
		kong.Exit(func(int) { exited = true }),
		kong.UsageOnError(),
		kong.Vars{
			"version":      Version,
			"workers":      strconv.Itoa(scheduler.DefaultWorkers),
			"max_attempts": strconv.Itoa(retry.DefaultMaxAttempts),
			"output_root":  pkgbuild.DefaultOutputRoot,
			"cache_dir":    pkgbuild.DefaultCacheDir(),
		},
	)
	if err != nil {
		return nil, false, err
	}

	kctx, err := parser.Parse(args)
	if exited {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, &ExitError{Code: anderr.ExitUsage, Message: err.Error()}
	}

	cfg := app.Config{
		LogFormat:       strings.ToLower(cli.LogFormat),
		LogLevel:        strings.ToLower(cli.LogLevel),
		HealthcheckPort: cli.HealthcheckPort,
	}
	switch command := strings.Fields(kctx.Command())[0]; command {
	case "build":
		b := cli.Build
		cfg.Mode = app.ModeBuild
		applyManifestFlags(&cfg, b.Source)
		cfg.WorkerCount = b.Workers
		cfg.OutputRoot = b.OutputRoot
		cfg.MaxAttempts = b.MaxAttempts
		cfg.NotifyURL = b.NotifyURL
		cfg.Package = packageKind(b.Package)
		cfg.OCILabels = b.Label
		cfg.OCIBuildArgs = b.BuildArg
		if !b.NoCache {
			cfg.CacheDir = b.CacheDir
		}
	case "validate":
		cfg.Mode = app.ModeValidate
		applyManifestFlags(&cfg, cli.Validate.Source)
	case "list":
		cfg.Mode = app.ModeList
		applyManifestFlags(&cfg, cli.List.Source)
		cfg.Package = packageKind(cli.List.Package)
	case "clean":
		cfg.Mode = app.ModeClean
		cfg.Workdir = cli.Clean.Workdir
		cfg.OutputRoot = cli.Clean.OutputRoot
	case "serve":
		cfg.Mode = app.ModeServe
		cfg.ListenAddr = cli.Serve.Listen
	default:
		return nil, false, &ExitError{Code: anderr.ExitUsage, Message: "unknown command " + command}
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: anderr.ExitUsage, Message: err.Error()}
	}
	return config, false, nil
}

func applyManifestFlags(cfg *app.Config, f ManifestFlags) {
	cfg.ManifestPath = f.Manifest
	cfg.DotenvPath = f.Dotenv
	cfg.Workdir = f.Workdir
	cfg.Targets = f.Targets
}


// packageKind maps the --package value onto a target kind; "all" means no filter.
func packageKind(v string) manifest.TargetKind {
	if v == "all" {
		return ""
	}
	return manifest.TargetKind(v)
}
