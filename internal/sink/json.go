package sink

import (
	"encoding/json"
	"io"

	"go.uber.org/multierr"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// JSONSink writes a single {"nodes": [...], "edges": [...]} document.
// Nodes stream straight to the file; edges buffer until Finalize so the
// two arrays come out in order even when the stream interleaves them.
type JSONSink struct {
	w      io.Writer
	closer io.Closer

	wroteNode bool
	edges     []map[string]any
	finalized bool
	werr      error
}

// NewJSONSink creates a JSON sink writing to the given path.
func NewJSONSink(path string) (*JSONSink, error) {
	w, closer, err := createFile(path)
	if err != nil {
		return nil, err
	}
	s := &JSONSink{w: w, closer: closer}
	s.writeString(`{"nodes": [`)
	return s, nil
}

// WriteNode implements Sink.
func (s *JSONSink) WriteNode(rec *record.NodeRecord) error {
	obj := graph.CloneProperties(rec.Properties)
	if obj == nil {
		obj = make(map[string]any)
	}
	obj[graph.PropID] = rec.ID

	if s.wroteNode {
		s.writeString(",\n")
	} else {
		s.writeString("\n")
	}
	s.wroteNode = true
	s.writeJSON(obj)
	return s.werr
}

// WriteEdge implements Sink.
func (s *JSONSink) WriteEdge(rec *record.EdgeRecord) error {
	obj := graph.CloneProperties(rec.Properties)
	if obj == nil {
		obj = make(map[string]any)
	}
	obj[graph.PropSubject] = rec.Subject
	obj[graph.PropObject] = rec.Object
	obj["key"] = rec.Key
	s.edges = append(s.edges, obj)
	return s.werr
}

// Finalize writes the buffered edges and closes the document.
func (s *JSONSink) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	s.writeString("\n], \"edges\": [")
	for i, obj := range s.edges {
		if i > 0 {
			s.writeString(",")
		}
		s.writeString("\n")
		s.writeJSON(obj)
	}
	s.writeString("\n]}\n")
	s.edges = nil

	return multierr.Combine(s.werr, s.closer.Close())
}

func (s *JSONSink) writeString(text string) {
	if s.werr != nil {
		return
	}
	_, s.werr = io.WriteString(s.w, text)
}

func (s *JSONSink) writeJSON(obj map[string]any) {
	if s.werr != nil {
		return
	}
	data, err := json.Marshal(obj)
	if err != nil {
		s.werr = err
		return
	}
	_, s.werr = s.w.Write(data)
}
