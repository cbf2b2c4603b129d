package coordinator

import (
	"testing"

	"github.com/Mathih13/botfarm/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(specs ...model.SuiteTestEntry) []model.SuiteTestEntry {
	return specs
}

func TestBuildDepGraph(t *testing.T) {
	t.Run("Valid graph", func(t *testing.T) {
		g, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "a", Route: "a.yaml"},
			model.SuiteTestEntry{ID: "b", Route: "b.yaml", DependsOn: []string{"a"}},
			model.SuiteTestEntry{ID: "c", Route: "c.yaml", DependsOn: []string{"a", "b"}},
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, g.order)
		assert.Equal(t, []string{"a", "b"}, g.Deps("c"))
		assert.Empty(t, g.Deps("a"))
	})

	t.Run("Unknown dependency", func(t *testing.T) {
		_, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "a", Route: "a.yaml", DependsOn: []string{"ghost"}},
		))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown test 'ghost'")
	})

	t.Run("Self-dependency", func(t *testing.T) {
		_, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "a", Route: "a.yaml", DependsOn: []string{"a"}},
		))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "depends on itself")
	})

	t.Run("Two-node cycle", func(t *testing.T) {
		_, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "a", Route: "a.yaml", DependsOn: []string{"b"}},
			model.SuiteTestEntry{ID: "b", Route: "b.yaml", DependsOn: []string{"a"}},
		))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dependency cycle")
	})

	t.Run("Longer cycle through a clean prefix", func(t *testing.T) {
		_, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "a", Route: "a.yaml"},
			model.SuiteTestEntry{ID: "b", Route: "b.yaml", DependsOn: []string{"a", "d"}},
			model.SuiteTestEntry{ID: "c", Route: "c.yaml", DependsOn: []string{"b"}},
			model.SuiteTestEntry{ID: "d", Route: "d.yaml", DependsOn: []string{"c"}},
		))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dependency cycle")
	})

	t.Run("Keys default to route paths", func(t *testing.T) {
		g, err := buildDepGraph(entries(
			model.SuiteTestEntry{Route: "a.yaml"},
			model.SuiteTestEntry{Route: "b.yaml", DependsOn: []string{"a.yaml"}},
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"a.yaml"}, g.Deps("b.yaml"))
	})
}

func TestTopoOrder(t *testing.T) {
	t.Run("Respects dependencies", func(t *testing.T) {
		g, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "c", Route: "c.yaml", DependsOn: []string{"a", "b"}},
			model.SuiteTestEntry{ID: "a", Route: "a.yaml"},
			model.SuiteTestEntry{ID: "b", Route: "b.yaml", DependsOn: []string{"a"}},
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, g.TopoOrder())
	})

	t.Run("Stable for independent entries", func(t *testing.T) {
		g, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "z", Route: "z.yaml"},
			model.SuiteTestEntry{ID: "m", Route: "m.yaml"},
			model.SuiteTestEntry{ID: "a", Route: "a.yaml"},
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "m", "a"}, g.TopoOrder())
	})
}

func TestCheckSequentialOrder(t *testing.T) {
	t.Run("In-order dependencies pass", func(t *testing.T) {
		g, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "a", Route: "a.yaml"},
			model.SuiteTestEntry{ID: "b", Route: "b.yaml", DependsOn: []string{"a"}},
		))
		require.NoError(t, err)
		assert.NoError(t, checkSequentialOrder(g))
	})

	t.Run("Forward dependency is a configuration error", func(t *testing.T) {
		g, err := buildDepGraph(entries(
			model.SuiteTestEntry{ID: "a", Route: "a.yaml", DependsOn: []string{"b"}},
			model.SuiteTestEntry{ID: "b", Route: "b.yaml"},
		))
		require.NoError(t, err)
		require.Error(t, checkSequentialOrder(g))
		assert.Contains(t, checkSequentialOrder(g).Error(), "appears later")
	})
}
