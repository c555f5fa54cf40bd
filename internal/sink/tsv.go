package sink

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

const listSeparator = "|"

// Leading columns for node and edge files; remaining columns follow in
// sorted order.
var (
	nodeCoreColumns = []string{graph.PropID, graph.PropCategory, graph.PropName}
	edgeCoreColumns = []string{graph.PropSubject, graph.PropPredicate, graph.PropObject, graph.PropRelation, "key"}
)

// TabularSink writes delimited node and edge files. The full column set is
// only known once every record has been seen, so records buffer in memory
// and both files are written in Finalize: <base>_nodes.tsv and
// <base>_edges.tsv (or .csv), with .gz appended when compression is on.
type TabularSink struct {
	base     string
	comma    rune
	ext      string
	compress bool

	nodes []map[string]any
	edges []map[string]any

	finalized bool
}

// NewTSVSink creates a tab-delimited sink writing <base>_nodes.tsv and
// <base>_edges.tsv.
func NewTSVSink(base string, compress bool) *TabularSink {
	return &TabularSink{base: base, comma: '\t', ext: ".tsv", compress: compress}
}

// NewCSVSink creates a comma-delimited sink.
func NewCSVSink(base string, compress bool) *TabularSink {
	return &TabularSink{base: base, comma: ',', ext: ".csv", compress: compress}
}

// WriteNode implements Sink.
func (s *TabularSink) WriteNode(rec *record.NodeRecord) error {
	row := graph.CloneProperties(rec.Properties)
	if row == nil {
		row = make(map[string]any)
	}
	row[graph.PropID] = rec.ID
	s.nodes = append(s.nodes, row)
	return nil
}

// WriteEdge implements Sink.
func (s *TabularSink) WriteEdge(rec *record.EdgeRecord) error {
	row := graph.CloneProperties(rec.Properties)
	if row == nil {
		row = make(map[string]any)
	}
	row[graph.PropSubject] = rec.Subject
	row[graph.PropObject] = rec.Object
	row["key"] = rec.Key
	s.edges = append(s.edges, row)
	return nil
}

// Finalize writes both files.
func (s *TabularSink) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	err := s.writeFile(s.base+"_nodes"+s.ext, nodeCoreColumns, s.nodes)
	err = multierr.Append(err, s.writeFile(s.base+"_edges"+s.ext, edgeCoreColumns, s.edges))
	s.nodes, s.edges = nil, nil
	return err
}

func (s *TabularSink) writeFile(path string, core []string, rows []map[string]any) error {
	if s.compress {
		path += ".gz"
	}

	w, closer, err := createFile(path)
	if err != nil {
		return err
	}

	header := collectColumns(core, rows)
	cw := csv.NewWriter(w)
	cw.Comma = s.comma

	werr := cw.Write(header)
	for _, row := range rows {
		if werr != nil {
			break
		}
		cells := make([]string, len(header))
		for i, col := range header {
			cells[i] = formatCell(row[col])
		}
		werr = cw.Write(cells)
	}
	cw.Flush()
	werr = multierr.Combine(werr, cw.Error(), closer.Close())
	return werr
}

// collectColumns returns the core columns that occur in the data followed
// by every other observed column in sorted order.
func collectColumns(core []string, rows []map[string]any) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			seen[col] = true
		}
	}

	var header []string
	for _, col := range core {
		if seen[col] {
			header = append(header, col)
			delete(seen, col)
		}
	}

	rest := make([]string, 0, len(seen))
	for col := range seen {
		rest = append(rest, col)
	}
	sort.Strings(rest)
	return append(header, rest...)
}

// formatCell serializes one property value; lists join with the list
// separator.
func formatCell(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case []string:
		return strings.Join(tv, listSeparator)
	case []any:
		parts := make([]string, len(tv))
		for i, m := range tv {
			parts[i] = fmt.Sprint(m)
		}
		return strings.Join(parts, listSeparator)
	default:
		return fmt.Sprint(tv)
	}
}
