package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// listSeparator joins multi-valued cells in tabular files.
const listSeparator = "|"

// Columns that are always list-valued in tabular files, even when a cell
// holds a single member.
var listColumns = map[string]bool{
	graph.PropCategory:   true,
	graph.PropSameAs:     true,
	graph.PropProvidedBy: true,
}

// TabularSource reads node or edge files in delimited form. Whether a file
// holds nodes or edges is decided from the header: a header carrying both
// "subject" and "object" is an edge file, a header carrying "id" is a node
// file.
type TabularSource struct {
	// Comma is the field delimiter; '\t' for TSV, ',' for CSV.
	Comma rune
}

// NewTSVSource creates a tab-delimited source.
func NewTSVSource() *TabularSource { return &TabularSource{Comma: '\t'} }

// NewCSVSource creates a comma-delimited source.
func NewCSVSource() *TabularSource { return &TabularSource{Comma: ','} }

// Parse implements Source.
func (s *TabularSource) Parse(path string, opts Options) (RecordReader, error) {
	r, closer, err := openFile(path)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.Comma = s.Comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		_ = closer.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("%s: reading header: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}

	_, hasSubject := cols[graph.PropSubject]
	_, hasObject := cols[graph.PropObject]
	_, hasID := cols[graph.PropID]

	isEdges := hasSubject && hasObject
	if !isEdges && !hasID {
		_ = closer.Close()
		return nil, fmt.Errorf("%s: header has neither id nor subject/object columns", path)
	}

	raw := &tabularReader{
		cr:      cr,
		closer:  closer,
		header:  header,
		isEdges: isEdges,
	}
	return Wrap(raw, path, opts), nil
}

type tabularReader struct {
	cr      *csv.Reader
	closer  io.Closer
	header  []string
	isEdges bool
}

func (t *tabularReader) Next() (record.Record, error) {
	row, err := t.cr.Read()
	if err != nil {
		return nil, err
	}

	props := make(map[string]any, len(t.header))
	for i, col := range t.header {
		if i >= len(row) {
			break
		}
		cell := row[i]
		if cell == "" {
			continue
		}
		props[col] = parseCell(col, cell)
	}

	if t.isEdges {
		subject, _ := props[graph.PropSubject].(string)
		object, _ := props[graph.PropObject].(string)
		key, _ := props["key"].(string)
		delete(props, graph.PropSubject)
		delete(props, graph.PropObject)
		delete(props, "key")
		return &record.EdgeRecord{
			Subject:    subject,
			Object:     object,
			Key:        key,
			Properties: props,
		}, nil
	}

	id, _ := props[graph.PropID].(string)
	delete(props, graph.PropID)
	return &record.NodeRecord{ID: id, Properties: props}, nil
}

func (t *tabularReader) Close() error {
	return t.closer.Close()
}

// parseCell interprets one cell: designated list columns and cells with the
// list separator become string slices, everything else stays scalar.
func parseCell(col, cell string) any {
	if listColumns[col] || strings.Contains(cell, listSeparator) {
		parts := strings.Split(cell, listSeparator)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return cell
}
