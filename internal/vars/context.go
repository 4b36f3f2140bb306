// Package vars holds the immutable per-run variable snapshot and the
// substitution of $NAME and ${NAME} references into command strings.
package vars

import (
	"maps"
	"sort"
)

// Implicit variable names available to every stage.
const (
	ProjectName = "PROJECT_NAME"
	CommitID    = "COMMIT_ID"
	Branch      = "BRANCH"
)

// Context is an immutable variable snapshot. The zero value is empty and usable.
type Context struct {
	values map[string]string
}

// NewContext builds a snapshot from the implicit variables and a project's
// declared env. Declared entries take precedence over implicit ones. Empty
// implicit values are left out so their references stay verbatim.
func NewContext(project, revision, branch string, env map[string]string) Context {
	values := make(map[string]string, len(env)+3)
	for k, v := range map[string]string{ProjectName: project, CommitID: revision, Branch: branch} {
		if v != "" {
			values[k] = v
		}
	}
	maps.Copy(values, env)
	return Context{values: values}
}

// Lookup returns the value bound to name.
func (c Context) Lookup(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// With returns a new snapshot with extra bindings layered on top.
func (c Context) With(extra map[string]string) Context {
	values := make(map[string]string, len(c.values)+len(extra))
	maps.Copy(values, c.values)
	maps.Copy(values, extra)
	return Context{values: values}
}

// Environ returns the snapshot as sorted KEY=VALUE pairs.
func (c Context) Environ() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+c.values[k])
	}
	return out
}

// Map returns a copy of the bindings.
func (c Context) Map() map[string]string {
	return maps.Clone(c.values)
}
