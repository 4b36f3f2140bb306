package buildgraph

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/mattn/go-shellwords"
)

// SourcePath is where the source checkout is mounted and built.
const SourcePath = "/src"

var (
	ErrInvalidJobID           = errors.New("invalid job id")
	ErrInvalidBuilderImage    = errors.New("invalid builder image")
	ErrSourceFetchSpecInvalid = errors.New("invalid source fetch spec")
)

// JobSpec is the externally supplied description of a build job.
type JobSpec struct {
	ID      string `json:"id"`
	Repo    string `json:"repo"`
	Ref     string `json:"ref"`
	Builder string `json:"builder"`
}

// buildCommands provision the builder and build package.spec with every
// output under the source mount and source downloads disabled.
var buildCommands = []string{
	"dnf install -y rpmdevtools rpm-build dnf-plugins-core",
	"dnf builddep -y package.spec",
	"rpmdev-setuptree",
	`rpmbuild -ba package.spec` +
		` --define "_rpmdir ` + SourcePath + `/anda-build/rpm"` +
		` --define "_srcrpmdir ` + SourcePath + `/anda-build/rpm/src"` +
		` --define "_sourcedir ` + SourcePath + `"` +
		` --define "_disable_source_fetch 1"`,
}

// Compile lowers a job into its operation graph. It is pure: the same spec
// always yields the same graph.
func Compile(spec JobSpec) (*Graph, error) {
	if strings.TrimSpace(spec.ID) == "" {
		return nil, fmt.Errorf("%w: id must not be empty", ErrInvalidJobID)
	}
	ref, err := name.ParseReference(spec.Builder)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidBuilderImage, spec.Builder, err)
	}
	if err := validateSource(spec.Repo, spec.Ref); err != nil {
		return nil, err
	}

	ops := []Op{
		{Kind: OpPullImage, Image: ref.Name()},
		{Kind: OpMountSource, Repo: spec.Repo, Ref: spec.Ref, Target: SourcePath},
		{Kind: OpSetWorkdir, Path: SourcePath},
	}
	for _, c := range buildCommands {
		argv, err := shellwords.Parse(c)
		if err != nil {
			return nil, fmt.Errorf("failed to split command %q: %w", c, err)
		}
		ops = append(ops, Op{Kind: OpRun, Argv: argv})
	}
	for i := range ops {
		ops[i].Input = i - 1
	}
	return &Graph{JobID: spec.ID, Ops: ops}, nil
}

func validateSource(repo, ref string) error {
	u, err := url.Parse(repo)
	if err != nil {
		return fmt.Errorf("%w: repo %q: %w", ErrSourceFetchSpecInvalid, repo, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: repo %q must be an absolute URL", ErrSourceFetchSpecInvalid, repo)
	}
	switch {
	case ref == "":
		return fmt.Errorf("%w: empty ref", ErrSourceFetchSpecInvalid)
	case strings.IndexFunc(ref, unicode.IsSpace) >= 0, strings.Contains(ref, ".."):
		return fmt.Errorf("%w: malformed ref %q", ErrSourceFetchSpecInvalid, ref)
	}
	return nil
}
