package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapEdges is an in-memory EdgeReader that counts lookups.
type mapEdges struct {
	edges map[string][]string
	calls map[string]int
	err   error
}

func newMapEdges(edges map[string][]string) *mapEdges {
	return &mapEdges{edges: edges, calls: make(map[string]int)}
}

func (m *mapEdges) ChildrenOf(_ context.Context, id string) ([]string, error) {
	m.calls[id]++
	if m.err != nil {
		return nil, m.err
	}
	return m.edges[id], nil
}

func TestWouldCreateCycle(t *testing.T) {
	// A embeds B, B embeds C.
	edges := newMapEdges(map[string][]string{"A": {"B"}, "B": {"C"}})
	ctx := context.Background()

	tests := []struct {
		name          string
		parent, child string
		want          bool
	}{
		{"C embedding A closes the loop", "C", "A", true},
		{"B embedding A closes the loop", "B", "A", true},
		{"self embedding", "A", "A", true},
		{"leaf embedding leaf", "C", "D", false},
		{"A embedding C again", "A", "C", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WouldCreateCycle(ctx, edges, tt.parent, tt.child)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWouldCreateCycleDiamondVisitsOnce(t *testing.T) {
	// A -> B, A -> C, B -> D, C -> D
	edges := newMapEdges(map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
	})

	got, err := WouldCreateCycle(context.Background(), edges, "X", "A")
	require.NoError(t, err)
	assert.False(t, got, "a diamond is not a cycle")
	assert.Equal(t, 1, edges.calls["D"], "shared sub-assembly expanded once")
}

func TestWouldCreateCycleTerminatesOnStoredCycle(t *testing.T) {
	edges := newMapEdges(map[string][]string{"A": {"B"}, "B": {"A"}})

	got, err := WouldCreateCycle(context.Background(), edges, "X", "A")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestWouldCreateCycleErrors(t *testing.T) {
	boom := errors.New("boom")
	edges := newMapEdges(nil)
	edges.err = boom

	_, err := WouldCreateCycle(context.Background(), edges, "X", "A")
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = WouldCreateCycle(ctx, newMapEdges(nil), "X", "A")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeCycles_DAG(t *testing.T) {
	reports := AnalyzeCycles(map[string][]string{"A": {"B", "C"}, "B": {"C"}})
	assert.Empty(t, reports)
	assert.NotNil(t, reports)
}

func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	reports := AnalyzeCycles(map[string][]string{"A": {"A"}})
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"A", "A"}, reports[0].Path)
}

func TestAnalyzeCycles_MultiNode(t *testing.T) {
	reports := AnalyzeCycles(map[string][]string{
		"c": {"a"},
		"a": {"b"},
		"b": {"c"},
		"x": {"y"},
		"y": {"x"},
		"z": {"a"},
	})
	require.Len(t, reports, 2)
	assert.Equal(t, []string{"a", "b", "c", "a"}, reports[0].Path)
	assert.Equal(t, "embedding cycle: a -> b -> c -> a", reports[0].Message)
	assert.Equal(t, []string{"x", "y", "x"}, reports[1].Path)
}
