package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// JSONLSource reads JSON Lines: one record object per line. A line whose
// object carries a "subject" field is an edge record; everything else is a
// node record.
type JSONLSource struct{}

// NewJSONLSource creates a JSON Lines source.
func NewJSONLSource() *JSONLSource { return &JSONLSource{} }

// Parse implements Source.
func (s *JSONLSource) Parse(path string, opts Options) (RecordReader, error) {
	r, closer, err := openFile(path)
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	raw := &jsonlReader{sc: sc, closer: closer, path: path}
	return Wrap(raw, path, opts), nil
}

type jsonlReader struct {
	sc     *bufio.Scanner
	closer io.Closer
	path   string
	line   int
}

func (j *jsonlReader) Next() (record.Record, error) {
	for j.sc.Scan() {
		j.line++
		data := j.sc.Bytes()
		if len(data) == 0 {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", j.path, j.line, err)
		}

		_, isEdge := obj[graph.PropSubject]
		return objectToRecord(obj, isEdge), nil
	}
	if err := j.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (j *jsonlReader) Close() error {
	return j.closer.Close()
}
