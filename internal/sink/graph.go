package sink

import (
	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// GraphSink materializes the record stream into an in-memory knowledge
// graph. The transformer uses it for the first pass of buffered
// transforms.
type GraphSink struct {
	Graph *graph.KnowledgeGraph
}

// NewGraphSink creates a sink over the given graph; a nil graph gets a
// fresh one.
func NewGraphSink(g *graph.KnowledgeGraph) *GraphSink {
	if g == nil {
		g = graph.NewKnowledgeGraph()
	}
	return &GraphSink{Graph: g}
}

// WriteNode implements Sink.
func (s *GraphSink) WriteNode(rec *record.NodeRecord) error {
	s.Graph.AddNode(rec.ToNode())
	return nil
}

// WriteEdge implements Sink.
func (s *GraphSink) WriteEdge(rec *record.EdgeRecord) error {
	s.Graph.AddEdge(rec.ToEdge())
	return nil
}

// Finalize implements Sink; the graph stays available afterward.
func (s *GraphSink) Finalize() error {
	return nil
}
