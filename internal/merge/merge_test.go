package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgraph-dev/biograph/internal/graph"
)

func geneGraph(id, name, source string) *graph.KnowledgeGraph {
	g := graph.NewKnowledgeGraph()
	g.AddNode(&graph.Node{
		ID:       id,
		Category: []string{"biolink:Gene"},
		Properties: map[string]any{
			graph.PropName:       name,
			graph.PropProvidedBy: []string{source},
		},
	})
	return g
}

func TestAll_DisjointUnion(t *testing.T) {
	t.Parallel()

	a := geneGraph("HGNC:1", "A1BG", "hgnc")
	b := geneGraph("HGNC:2", "A2M", "hgnc")
	b.AddEdge(graph.NewEdge("HGNC:2", "biolink:related_to", "HGNC:1"))

	result := All([]*graph.KnowledgeGraph{a, b}, Options{})

	assert.Equal(t, 2, result.NodeCount())
	assert.Equal(t, 1, result.EdgeCount())
}

func TestAll_Empty(t *testing.T) {
	t.Parallel()

	result := All(nil, Options{})

	require.NotNil(t, result)
	assert.Equal(t, 0, result.NodeCount())
}

func TestAll_LargestGraphIsTarget(t *testing.T) {
	t.Parallel()

	small := geneGraph("HGNC:1", "A1BG", "hgnc")
	big := graph.NewKnowledgeGraph()
	big.AddEdge(graph.NewEdge("X:1", "biolink:related_to", "X:2"))
	big.AddEdge(graph.NewEdge("X:2", "biolink:related_to", "X:3"))

	result := All([]*graph.KnowledgeGraph{small, big}, Options{})

	assert.Same(t, big, result, "graph with the most edges is mutated in place")
	assert.True(t, result.HasNode("HGNC:1"))
}

func TestInto_NodeConflicts(t *testing.T) {
	t.Parallel()

	t.Run("CategoriesUnion", func(t *testing.T) {
		t.Parallel()
		dst := geneGraph("HGNC:1", "A1BG", "hgnc")
		src := graph.NewKnowledgeGraph()
		src.AddNode(&graph.Node{ID: "HGNC:1", Category: []string{"biolink:Protein"}})

		Into(dst, src, Options{})

		node := dst.GetNode("HGNC:1")
		assert.Equal(t, []string{"biolink:Gene", "biolink:Protein"}, node.Category)
		assert.Len(t, dst.GetNodesByCategory("biolink:Protein"), 1, "index updated")
	})

	t.Run("NameIsProtected", func(t *testing.T) {
		t.Parallel()
		dst := geneGraph("HGNC:1", "A1BG", "hgnc")
		src := geneGraph("HGNC:1", "alpha-1-B glycoprotein", "ensembl")

		Into(dst, src, Options{})

		assert.Equal(t, "A1BG", dst.GetNode("HGNC:1").Properties[graph.PropName],
			"core properties keep their first value")
	})

	t.Run("ListsUnion", func(t *testing.T) {
		t.Parallel()
		dst := geneGraph("HGNC:1", "A1BG", "hgnc")
		src := geneGraph("HGNC:1", "A1BG", "ensembl")

		Into(dst, src, Options{})

		assert.Equal(t, []string{"hgnc", "ensembl"},
			dst.GetNode("HGNC:1").Properties[graph.PropProvidedBy])
	})

	t.Run("ScalarOverwrite", func(t *testing.T) {
		t.Parallel()
		dst := geneGraph("HGNC:1", "A1BG", "hgnc")
		dst.GetNode("HGNC:1").Properties["taxon"] = "NCBITaxon:9606"
		src := geneGraph("HGNC:1", "A1BG", "hgnc")
		src.GetNode("HGNC:1").Properties["taxon"] = "NCBITaxon:10090"

		Into(dst, src, Options{Preserve: false})

		assert.Equal(t, "NCBITaxon:10090", dst.GetNode("HGNC:1").Properties["taxon"])
	})

	t.Run("ScalarPreservePromotes", func(t *testing.T) {
		t.Parallel()
		dst := geneGraph("HGNC:1", "A1BG", "hgnc")
		dst.GetNode("HGNC:1").Properties["taxon"] = "NCBITaxon:9606"
		src := geneGraph("HGNC:1", "A1BG", "hgnc")
		src.GetNode("HGNC:1").Properties["taxon"] = "NCBITaxon:10090"

		Into(dst, src, Options{Preserve: true})

		assert.Equal(t, []any{"NCBITaxon:9606", "NCBITaxon:10090"},
			dst.GetNode("HGNC:1").Properties["taxon"])
	})
}

func TestInto_EdgeConflicts(t *testing.T) {
	t.Parallel()

	mkGraph := func(pubs []string) *graph.KnowledgeGraph {
		g := graph.NewKnowledgeGraph()
		e := graph.NewEdge("HGNC:1", "biolink:interacts_with", "HGNC:2")
		e.Properties["publications"] = pubs
		g.AddEdge(e)
		return g
	}

	t.Run("SameKeyMerges", func(t *testing.T) {
		t.Parallel()
		dst := mkGraph([]string{"PMID:1"})
		src := mkGraph([]string{"PMID:1", "PMID:2"})

		Into(dst, src, Options{})

		require.Equal(t, 1, dst.EdgeCount())
		edge := dst.Edges()[0]
		assert.Equal(t, []string{"PMID:1", "PMID:2"}, edge.Properties["publications"])
	})

	t.Run("RelationFilledWhenMissing", func(t *testing.T) {
		t.Parallel()
		dst := mkGraph(nil)
		src := mkGraph(nil)
		src.Edges()[0].Relation = "RO:0002434"

		Into(dst, src, Options{})

		assert.Equal(t, "RO:0002434", dst.Edges()[0].Relation)
	})

	t.Run("DifferentKeysCoexist", func(t *testing.T) {
		t.Parallel()
		dst := mkGraph(nil)
		src := graph.NewKnowledgeGraph()
		src.AddEdge(graph.NewEdge("HGNC:1", "biolink:regulates", "HGNC:2"))

		Into(dst, src, Options{})

		assert.Equal(t, 2, dst.EdgeCount())
	})
}
