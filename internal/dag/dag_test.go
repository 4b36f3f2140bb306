package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds a graph from "dependency -> dependent" pairs.
func chain(t *testing.T, nodes []string, edges ...[2]string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
	assert.Zero(t, g.Len())
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)

	g.AddNode("a") // Test idempotency
	assert.Len(t, g.nodes, 1)

	g.AddNode("b")
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
	assert.True(t, g.Has("b"))
	assert.False(t, g.Has("c"))
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := chain(t, []string{"a", "b"}, [2]string{"a", "b"})

		deps, err := g.Dependencies("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, deps)

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, dependents)
	})

	t.Run("duplicate edge is ignored", func(t *testing.T) {
		g := chain(t, []string{"a", "b"}, [2]string{"a", "b"}, [2]string{"a", "b"})
		deps, _ := g.Dependencies("b")
		assert.Len(t, deps, 1)
	})

	t.Run("error cases", func(t *testing.T) {
		g := chain(t, []string{"a", "b"})

		assert.ErrorContains(t, g.AddEdge("dne", "a"), "source node not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne"), "destination node not found")
		assert.ErrorContains(t, g.AddEdge("a", "a"), "self-referential edge")

		_, err := g.Dependencies("dne")
		assert.Error(t, err)
		_, err = g.Dependents("dne")
		assert.Error(t, err)
	})
}

func TestFindCycle(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.Nil(t, New().FindCycle())
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := chain(t, []string{"a", "b", "c", "d"},
			[2]string{"a", "b"},
			[2]string{"b", "c"},
			[2]string{"a", "c"}, // Transitive edge
			[2]string{"c", "d"},
		)
		assert.Nil(t, g.FindCycle())
	})

	t.Run("simple direct cycle names both nodes", func(t *testing.T) {
		// a depends on b, b depends on a.
		g := chain(t, []string{"a", "b"}, [2]string{"b", "a"}, [2]string{"a", "b"})
		assert.Equal(t, []string{"a", "b", "a"}, g.FindCycle())
		assert.ErrorContains(t, g.DetectCycles(), "cycle detected: a -> b -> a")
	})

	t.Run("longer cycle is reported in full", func(t *testing.T) {
		// a -> b -> c -> a in "depends on" direction.
		g := chain(t, []string{"a", "b", "c"},
			[2]string{"b", "a"},
			[2]string{"c", "b"},
			[2]string{"a", "c"},
		)
		assert.Equal(t, []string{"a", "b", "c", "a"}, g.FindCycle())
	})

	t.Run("cycle behind an acyclic prefix excludes the prefix", func(t *testing.T) {
		// root depends on x; x and y depend on each other.
		g := chain(t, []string{"root", "x", "y"},
			[2]string{"x", "root"},
			[2]string{"y", "x"},
			[2]string{"x", "y"},
		)
		assert.Equal(t, []string{"x", "y", "x"}, g.FindCycle())
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := chain(t, []string{"a", "b", "x", "y", "z"},
			[2]string{"a", "b"},
			[2]string{"x", "y"},
			[2]string{"y", "z"},
			[2]string{"z", "y"},
		)
		cycle := g.FindCycle()
		require.NotNil(t, cycle)
		assert.ElementsMatch(t, []string{"y", "z"}, cycle[:len(cycle)-1])
		assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("dependencies come first, ties by insertion", func(t *testing.T) {
		g := chain(t, []string{"z", "x", "y"},
			[2]string{"x", "z"},
			[2]string{"y", "z"},
		)
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "z"}, order)
	})

	t.Run("cycle is an error", func(t *testing.T) {
		g := chain(t, []string{"a", "b"}, [2]string{"a", "b"}, [2]string{"b", "a"})
		_, err := g.TopologicalOrder()
		assert.ErrorContains(t, err, "cycle detected")
	})
}

func TestSinksAndAncestors(t *testing.T) {
	g := chain(t, []string{"a", "b", "c", "d"},
		[2]string{"a", "b"},
		[2]string{"b", "c"},
	)
	assert.Equal(t, []string{"c", "d"}, g.Sinks())

	anc, err := g.Ancestors("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, anc)

	anc, err = g.Ancestors("a")
	require.NoError(t, err)
	assert.Empty(t, anc)

	_, err = g.Ancestors("nope")
	assert.Error(t, err)
}
