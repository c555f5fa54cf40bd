package source

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// JSONSource reads a single JSON document of the shape
// {"nodes": [...], "edges": [...]}. The arrays are decoded incrementally
// with a token decoder, so memory stays bounded by one record at a time.
type JSONSource struct{}

// NewJSONSource creates a JSON source.
func NewJSONSource() *JSONSource { return &JSONSource{} }

// Parse implements Source.
func (s *JSONSource) Parse(path string, opts Options) (RecordReader, error) {
	r, closer, err := openFile(path)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		_ = closer.Close()
		return nil, fmt.Errorf("%s: expected top-level object", path)
	}

	raw := &jsonReader{dec: dec, closer: closer, path: path}
	return Wrap(raw, path, opts), nil
}

type jsonReader struct {
	dec    *json.Decoder
	closer io.Closer
	path   string

	inArray bool
	edges   bool
	done    bool
}

func (j *jsonReader) Next() (record.Record, error) {
	for {
		if j.done {
			return nil, io.EOF
		}

		if j.inArray {
			if j.dec.More() {
				var obj map[string]any
				if err := j.dec.Decode(&obj); err != nil {
					return nil, fmt.Errorf("%s: %w", j.path, err)
				}
				return objectToRecord(obj, j.edges), nil
			}
			// Consume closing ']'.
			if _, err := j.dec.Token(); err != nil {
				return nil, err
			}
			j.inArray = false
			continue
		}

		tok, err := j.dec.Token()
		if err != nil {
			if err == io.EOF {
				j.done = true
				return nil, io.EOF
			}
			return nil, err
		}

		switch t := tok.(type) {
		case string:
			switch t {
			case "nodes", "edges":
				open, err := j.dec.Token()
				if err != nil {
					return nil, err
				}
				if d, ok := open.(json.Delim); !ok || d != '[' {
					return nil, fmt.Errorf("%s: %q is not an array", j.path, t)
				}
				j.inArray = true
				j.edges = t == "edges"
			default:
				// Skip the value of an unrecognized top-level key.
				var skip any
				if err := j.dec.Decode(&skip); err != nil {
					return nil, err
				}
			}
		case json.Delim:
			if t == '}' {
				j.done = true
				return nil, io.EOF
			}
		}
	}
}

func (j *jsonReader) Close() error {
	return j.closer.Close()
}

// objectToRecord converts a decoded JSON object into a record. Edge objects
// are recognized by the caller's position in the document (or, for JSONL,
// by the presence of a subject field).
func objectToRecord(obj map[string]any, edge bool) record.Record {
	if edge {
		subject, _ := obj[graph.PropSubject].(string)
		object, _ := obj[graph.PropObject].(string)
		key, _ := obj["key"].(string)
		delete(obj, graph.PropSubject)
		delete(obj, graph.PropObject)
		delete(obj, "key")
		return &record.EdgeRecord{
			Subject:    subject,
			Object:     object,
			Key:        key,
			Properties: obj,
		}
	}
	id, _ := obj[graph.PropID].(string)
	delete(obj, graph.PropID)
	return &record.NodeRecord{ID: id, Properties: obj}
}
