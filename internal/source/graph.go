package source

import (
	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// GraphSource streams an in-memory knowledge graph as records: all nodes
// first, then all edges. The transformer uses it for Save and for the
// second pass of buffered transforms.
type GraphSource struct {
	Graph *graph.KnowledgeGraph
}

// NewGraphSource creates a source over the given graph.
func NewGraphSource(g *graph.KnowledgeGraph) *GraphSource {
	return &GraphSource{Graph: g}
}

// Parse implements Source. The path is unused; the backing graph was bound
// at construction.
func (s *GraphSource) Parse(path string, opts Options) (RecordReader, error) {
	nodes := s.Graph.Nodes()
	edges := s.Graph.Edges()

	records := make([]record.Record, 0, len(nodes)+len(edges))
	for _, n := range nodes {
		records = append(records, record.FromNode(n))
	}
	for _, e := range edges {
		records = append(records, record.FromEdge(e))
	}

	if opts.Lookup == nil {
		opts.Lookup = s.Graph
	}
	return Wrap(&sliceReader{records: records}, "graph", opts), nil
}
