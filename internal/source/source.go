// Package source provides the format adapters that read serialized
// knowledge graphs into the record stream.
//
// Every source honors the same contract: records flow out lazily through a
// pull-based RecordReader; edges without a key get a deterministic one;
// records missing provenance are tagged with the input name; node and edge
// filters are applied before a record is yielded (rejected records are
// simply not yielded); malformed records are dropped into the error report
// rather than aborting the stream.
package source

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
	"github.com/kgraph-dev/biograph/internal/validate"
)

// RecordReader is a pull-based lazy record sequence. Next returns io.EOF
// when the stream is exhausted; each call may perform blocking I/O.
type RecordReader interface {
	Next() (record.Record, error)
	Close() error
}

// Source parses one input location into a record stream.
type Source interface {
	Parse(path string, opts Options) (RecordReader, error)
}

// Options carries the shared per-input knobs every source honors.
type Options struct {
	// Name is the provenance tag for this input. Empty derives it from the
	// input file name.
	Name string

	// Filters are applied before records are yielded.
	Filters *record.FilterSet

	// Lookup is the graph built so far, needed by category edge filters.
	// Nil in pure streaming mode, where such filters are rejected.
	Lookup record.NodeLookup

	// Report receives record-local errors. Nil drops them silently.
	Report *validate.Report
}

// provenanceName derives the provided_by tag from the options or the input
// path.
func (o Options) provenanceName(path string) string {
	if o.Name != "" {
		return o.Name
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// openFile opens a possibly gzip-compressed input file. The returned
// closer releases both layers.
func openFile(path string) (io.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return zr, multiCloser{zr, f}, nil
	}
	return f, f, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Wrap layers the shared contract over a raw format reader: mandatory-field
// validation with drop-and-report, provenance tagging, and filter
// application. Format adapters produce raw records; callers always consume
// the wrapped stream.
func Wrap(raw RecordReader, path string, opts Options) RecordReader {
	return &contractReader{raw: raw, provenance: opts.provenanceName(path), opts: opts}
}

type contractReader struct {
	raw        RecordReader
	provenance string
	opts       Options
}

func (r *contractReader) Next() (record.Record, error) {
	for {
		rec, err := r.raw.Next()
		if err != nil {
			return nil, err
		}

		switch tr := rec.(type) {
		case *record.NodeRecord:
			if err := tr.Validate(); err != nil {
				if r.opts.Report != nil {
					r.opts.Report.AddNodeError(tr.ID, err.Error())
				}
				continue
			}
			r.tagProvenance(tr.Properties)
			if r.opts.Filters != nil && !record.EvaluateNodeFilters(tr.Properties, r.opts.Filters.Node) {
				continue
			}
		case *record.EdgeRecord:
			if err := tr.Validate(); err != nil {
				if r.opts.Report != nil {
					r.opts.Report.AddEdgeError(tr.Subject, tr.Object, err.Error())
				}
				continue
			}
			if tr.Key == "" {
				tr.Key = graph.GenerateEdgeKey(tr.Subject, tr.Predicate(), tr.Object)
			}
			r.tagProvenance(tr.Properties)
			if r.opts.Filters != nil {
				ok, err := record.EvaluateEdgeFilters(tr, r.opts.Filters.Edge, r.opts.Lookup)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
		}
		return rec, nil
	}
}

func (r *contractReader) tagProvenance(props map[string]any) {
	if _, ok := props[graph.PropProvidedBy]; !ok {
		props[graph.PropProvidedBy] = []string{r.provenance}
	}
}

func (r *contractReader) Close() error {
	return r.raw.Close()
}

// sliceReader replays an in-memory record slice; used by adapters whose
// backing format has to be decoded wholesale.
type sliceReader struct {
	records []record.Record
	pos     int
}

func (s *sliceReader) Next() (record.Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func (s *sliceReader) Close() error { return nil }
