package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	c := NewCollector()

	require.NoError(t, c.WriteNode(&record.NodeRecord{
		ID: "HGNC:1",
		Properties: map[string]any{
			graph.PropCategory:   []string{"biolink:Gene", "biolink:Protein"},
			graph.PropProvidedBy: []string{"hgnc"},
		},
	}))
	require.NoError(t, c.WriteNode(&record.NodeRecord{ID: "X:1", Properties: map[string]any{}}))
	require.NoError(t, c.WriteEdge(&record.EdgeRecord{
		Subject: "HGNC:1",
		Object:  "X:1",
		Properties: map[string]any{
			graph.PropPredicate:  "biolink:related_to",
			graph.PropProvidedBy: []string{"hgnc"},
		},
	}))
	require.NoError(t, c.Finalize())

	s := c.Summary()
	assert.Equal(t, 2, s.Nodes.Total)
	assert.Equal(t, 1, s.Nodes.ByCategory["biolink:Gene"])
	assert.Equal(t, 1, s.Nodes.ByCategory["biolink:Protein"])
	assert.Equal(t, 1, s.Nodes.ByCategory[graph.DefaultCategory],
		"uncategorized nodes count under the default")
	assert.Equal(t, 1, s.Nodes.BySource["hgnc"])

	assert.Equal(t, 1, s.Edges.Total)
	assert.Equal(t, 1, s.Edges.ByPredicate["biolink:related_to"])
	assert.Equal(t, 1, s.Edges.BySource["hgnc"])
}

func TestCollector_MissingPredicate(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	require.NoError(t, c.WriteEdge(&record.EdgeRecord{
		Subject: "A", Object: "B", Properties: map[string]any{},
	}))

	s := c.Summary()
	assert.Equal(t, 1, s.Edges.ByPredicate[graph.DefaultPredicate])
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	g := graph.NewKnowledgeGraph()
	g.AddNode(&graph.Node{ID: "HGNC:1", Category: []string{"biolink:Gene"}})
	g.AddNode(&graph.Node{ID: "MONDO:1", Category: []string{"biolink:Disease"}})
	g.AddEdge(graph.NewEdge("HGNC:1", "biolink:related_to", "MONDO:1"))

	s := Summarize(g)

	assert.Equal(t, 2, s.Nodes.Total)
	assert.Equal(t, 1, s.Edges.Total)
	assert.Equal(t, []string{"biolink:Disease", "biolink:Gene"}, s.Categories())
	assert.Equal(t, []string{"biolink:related_to"}, s.Predicates())
}

func TestInternTable_InstanceOwned(t *testing.T) {
	t.Parallel()

	// Two collectors intern independently: ids assigned by one never leak
	// into the other.
	a := NewCollector()
	b := NewCollector()

	require.NoError(t, a.WriteNode(&record.NodeRecord{
		ID:         "X:1",
		Properties: map[string]any{graph.PropCategory: []string{"biolink:Gene"}},
	}))
	require.NoError(t, b.WriteNode(&record.NodeRecord{
		ID:         "X:2",
		Properties: map[string]any{graph.PropCategory: []string{"biolink:Disease"}},
	}))

	assert.Equal(t, 1, a.Summary().Nodes.ByCategory["biolink:Gene"])
	assert.NotContains(t, a.Summary().Nodes.ByCategory, "biolink:Disease")
	assert.Equal(t, 1, b.Summary().Nodes.ByCategory["biolink:Disease"])
}
