package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKnowledgeGraph(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()

	assert.NotNil(t, g)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestKnowledgeGraph_AddNode(t *testing.T) {
	t.Parallel()

	t.Run("AddSingle", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()
		node := NewNode("HGNC:11603")
		node.Properties[PropName] = "TBX4"

		g.AddNode(node)

		assert.Equal(t, 1, g.NodeCount())
		assert.Equal(t, node, g.GetNode("HGNC:11603"))
	})

	t.Run("DefaultsCategory", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.AddNode(&Node{ID: "MONDO:0005002"})

		got := g.GetNode("MONDO:0005002")
		assert.Equal(t, []string{DefaultCategory}, got.Category)
	})

	t.Run("CategoryIndex", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.AddNode(&Node{ID: "HGNC:1", Category: []string{"biolink:Gene"}})
		g.AddNode(&Node{ID: "HGNC:2", Category: []string{"biolink:Gene"}})
		g.AddNode(&Node{ID: "MONDO:1", Category: []string{"biolink:Disease"}})

		genes := g.GetNodesByCategory("biolink:Gene")
		assert.Len(t, genes, 2)
		assert.Len(t, g.GetNodesByCategory("biolink:Disease"), 1)
	})

	t.Run("ReplaceReindexes", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.AddNode(&Node{ID: "HGNC:1", Category: []string{"biolink:Gene"}})
		g.AddNode(&Node{ID: "HGNC:1", Category: []string{"biolink:Protein"}})

		assert.Equal(t, 1, g.NodeCount())
		assert.Empty(t, g.GetNodesByCategory("biolink:Gene"))
		assert.Len(t, g.GetNodesByCategory("biolink:Protein"), 1)
	})
}

func TestKnowledgeGraph_AddEdge(t *testing.T) {
	t.Parallel()

	t.Run("GeneratesMissingKey", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()
		edge := &Edge{Subject: "HGNC:1", Object: "MONDO:1", Predicate: "biolink:related_to"}

		g.AddEdge(edge)

		assert.NotEmpty(t, edge.Key)
		assert.Equal(t, edge, g.GetEdge("HGNC:1", "MONDO:1", edge.Key))
	})

	t.Run("ParallelEdges", func(t *testing.T) {
		t.Parallel()
		g := NewKnowledgeGraph()

		g.AddEdge(NewEdge("HGNC:1", "biolink:interacts_with", "HGNC:2"))
		g.AddEdge(NewEdge("HGNC:1", "biolink:regulates", "HGNC:2"))

		assert.Equal(t, 2, g.EdgeCount())
		assert.Len(t, g.GetOutgoing("HGNC:1"), 2)
		assert.Len(t, g.GetIncoming("HGNC:2"), 2)
	})
}

func TestKnowledgeGraph_RemoveNode(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.AddNode(&Node{ID: "HGNC:1", Category: []string{"biolink:Gene"}})
	g.AddNode(&Node{ID: "HGNC:2", Category: []string{"biolink:Gene"}})
	g.AddEdge(NewEdge("HGNC:1", "biolink:interacts_with", "HGNC:2"))
	g.AddEdge(NewEdge("HGNC:2", "biolink:interacts_with", "HGNC:1"))

	removed := g.RemoveNode("HGNC:1")

	assert.True(t, removed)
	assert.False(t, g.HasNode("HGNC:1"))
	assert.Equal(t, 0, g.EdgeCount(), "incident edges cascade")
	assert.Empty(t, g.GetIncoming("HGNC:2"))
	assert.False(t, g.RemoveNode("HGNC:1"), "second removal is a no-op")
}

func TestKnowledgeGraph_Degree(t *testing.T) {
	t.Parallel()

	g := NewKnowledgeGraph()
	g.AddEdge(NewEdge("A", "biolink:related_to", "B"))
	g.AddEdge(NewEdge("C", "biolink:related_to", "B"))

	assert.Equal(t, 1, g.Degree("A"))
	assert.Equal(t, 2, g.Degree("B"))
	assert.Equal(t, 0, g.Degree("X"))
}

func TestGenerateEdgeKey(t *testing.T) {
	t.Parallel()

	k1 := GenerateEdgeKey("HGNC:1", "biolink:related_to", "MONDO:1")
	k2 := GenerateEdgeKey("HGNC:1", "biolink:related_to", "MONDO:1")
	k3 := GenerateEdgeKey("MONDO:1", "biolink:related_to", "HGNC:1")

	assert.Equal(t, k1, k2, "deterministic")
	assert.NotEqual(t, k1, k3, "direction-sensitive")
	assert.Len(t, k1, 16)
}

func TestNode_AddSameAs(t *testing.T) {
	t.Parallel()

	node := NewNode("HGNC:1")
	node.AddSameAs("NCBIGene:1", "HGNC:1", "NCBIGene:1", "ENSEMBL:1")

	assert.Equal(t, []string{"NCBIGene:1", "ENSEMBL:1"}, node.SameAs())
}

func TestEdge_IsSameAs(t *testing.T) {
	t.Parallel()

	assert.True(t, NewEdge("A", SameAsPredicate, "B").IsSameAs())
	assert.True(t, NewEdge("A", "same_as", "B").IsSameAs())
	assert.False(t, NewEdge("A", "biolink:related_to", "B").IsSameAs())
}

func TestCloneProperties(t *testing.T) {
	t.Parallel()

	props := map[string]any{
		"category": []string{"biolink:Gene"},
		"xrefs":    []any{"a", "b"},
		"nested":   map[string]any{"k": "v"},
	}
	clone := CloneProperties(props)

	clone["category"].([]string)[0] = "changed"
	clone["nested"].(map[string]any)["k"] = "changed"

	assert.Equal(t, "biolink:Gene", props["category"].([]string)[0])
	assert.Equal(t, "v", props["nested"].(map[string]any)["k"])
}

func TestStringList(t *testing.T) {
	t.Parallel()

	assert.Nil(t, StringList(nil))
	assert.Equal(t, []string{"a"}, StringList("a"))
	assert.Equal(t, []string{"a", "b"}, StringList([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "1"}, StringList([]any{"a", 1}))
	assert.Equal(t, []string{"42"}, StringList(42))
}
