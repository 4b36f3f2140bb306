package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	ctx := NewContext("andaman", "abc123", "main", map[string]string{
		"NAME":    "andaman",
		"VERSION": "1.2",
		"EMPTY":   "",
	})

	tests := []struct {
		in   string
		want string
	}{
		{"echo $NAME", "echo andaman"},
		{"echo ${NAME}", "echo andaman"},
		{"echo $MISSING", "echo $MISSING"},
		{"echo ${MISSING}", "echo ${MISSING}"},
		{"echo ${NAME}-${VERSION}.tar.gz", "echo andaman-1.2.tar.gz"},
		{"echo $NAME_SUFFIX", "echo $NAME_SUFFIX"},
		{"echo [$EMPTY]", "echo []"},
		{"git checkout $COMMIT_ID on $BRANCH for $PROJECT_NAME", "git checkout abc123 on main for andaman"},
		{"cost: $5 and $", "cost: $5 and $"},
		{"echo $$ ${", "echo $$ ${"},
		{"echo ${not-a-name}", "echo ${not-a-name}"},
		{"no references", "no references"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Expand(tc.in, ctx))
		})
	}
}

func TestNewContext(t *testing.T) {
	t.Run("declared env overrides implicit variables", func(t *testing.T) {
		ctx := NewContext("p", "rev", "", map[string]string{ProjectName: "override"})
		v, _ := ctx.Lookup(ProjectName)
		assert.Equal(t, "override", v)
	})

	t.Run("empty implicit values stay unbound", func(t *testing.T) {
		ctx := NewContext("p", "", "", nil)
		_, ok := ctx.Lookup(CommitID)
		assert.False(t, ok)
		assert.Equal(t, "echo $COMMIT_ID", Expand("echo $COMMIT_ID", ctx))
	})

	t.Run("snapshot is not affected by later changes to the source map", func(t *testing.T) {
		env := map[string]string{"NAME": "before"}
		ctx := NewContext("p", "", "", env)
		env["NAME"] = "after"
		assert.Equal(t, "before", Expand("$NAME", ctx))
	})

	t.Run("With layers without mutating the original", func(t *testing.T) {
		base := NewContext("p", "", "", map[string]string{"A": "1"})
		derived := base.With(map[string]string{"A": "2", "B": "3"})
		assert.Equal(t, "1 $B", Expand("$A $B", base))
		assert.Equal(t, "2 3", Expand("$A $B", derived))
	})
}

func TestEnvironAndExpandAll(t *testing.T) {
	ctx := NewContext("p", "", "", map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"A=1", "B=2", "PROJECT_NAME=p"}, ctx.Environ())
	assert.Equal(t, []string{"echo 1", "echo 2"}, ExpandAll([]string{"echo $A", "echo $B"}, ctx))

	var zero Context
	assert.Empty(t, zero.Environ())
	assert.Equal(t, "$A", Expand("$A", zero))
}
