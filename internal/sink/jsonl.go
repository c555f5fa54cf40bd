package sink

import (
	"bufio"
	"encoding/json"
	"io"

	"go.uber.org/multierr"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// JSONLSink writes one record object per line. Fully streaming: no
// buffering, no ordering requirement between nodes and edges.
type JSONLSink struct {
	bw        *bufio.Writer
	closer    io.Closer
	enc       *json.Encoder
	finalized bool
}

// NewJSONLSink creates a JSON Lines sink writing to the given path.
func NewJSONLSink(path string) (*JSONLSink, error) {
	w, closer, err := createFile(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(w)
	return &JSONLSink{bw: bw, closer: closer, enc: json.NewEncoder(bw)}, nil
}

// WriteNode implements Sink.
func (s *JSONLSink) WriteNode(rec *record.NodeRecord) error {
	obj := graph.CloneProperties(rec.Properties)
	if obj == nil {
		obj = make(map[string]any)
	}
	obj[graph.PropID] = rec.ID
	return s.enc.Encode(obj)
}

// WriteEdge implements Sink.
func (s *JSONLSink) WriteEdge(rec *record.EdgeRecord) error {
	obj := graph.CloneProperties(rec.Properties)
	if obj == nil {
		obj = make(map[string]any)
	}
	obj[graph.PropSubject] = rec.Subject
	obj[graph.PropObject] = rec.Object
	obj["key"] = rec.Key
	return s.enc.Encode(obj)
}

// Finalize flushes and closes the file.
func (s *JSONLSink) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	return multierr.Combine(s.bw.Flush(), s.closer.Close())
}
