package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top-level blocks of any manifest file.
type fileRoot struct {
	Projects []*projectBlock `hcl:"project,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type projectBlock struct {
	Name    string            `hcl:"name,label"`
	Image   string            `hcl:"image,optional"`
	Env     map[string]string `hcl:"env,optional"`
	Labels  map[string]string `hcl:"labels,optional"`
	Arches  []string          `hcl:"arches,optional"`
	Aliases []string          `hcl:"aliases,optional"`

	Stages    []*stageBlock    `hcl:"stage,block"`
	Rollbacks []*rollbackBlock `hcl:"rollback,block"`
	RPM       []*rpmBlock      `hcl:"rpm,block"`
	Docker    []*dockerBlock   `hcl:"docker,block"`
	Flatpak   []*flatpakBlock  `hcl:"flatpak,block"`
}

type stageBlock struct {
	Name     string   `hcl:"name,label"`
	Commands []string `hcl:"commands"`
	Depends  []string `hcl:"depends,optional"`
	Image    string   `hcl:"image,optional"`
}

type rollbackBlock struct {
	Stage    string   `hcl:"stage,label"`
	Commands []string `hcl:"commands"`
}

type rpmBlock struct {
	Spec       string            `hcl:"spec"`
	BuildDeps  []string          `hcl:"build_deps,optional"`
	PreScript  []string          `hcl:"pre_script,optional"`
	PostScript []string          `hcl:"post_script,optional"`
	Macros     map[string]string `hcl:"macros,optional"`
	With       []string          `hcl:"with,optional"`
	Without    []string          `hcl:"without,optional"`
}

type dockerBlock struct {
	Dockerfile string            `hcl:"dockerfile"`
	Images     []string          `hcl:"images"`
	Context    string            `hcl:"context,optional"`
	Labels     map[string]string `hcl:"labels,optional"`
	BuildArgs  map[string]string `hcl:"build_args,optional"`
}

type flatpakBlock struct {
	Manifest string `hcl:"manifest"`
}
