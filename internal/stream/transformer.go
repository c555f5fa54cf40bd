package stream

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
	"github.com/kgraph-dev/biograph/internal/sink"
	"github.com/kgraph-dev/biograph/internal/source"
	"github.com/kgraph-dev/biograph/internal/validate"
)

// InputSpec describes one logical input: a set of same-format files (or a
// store directory) read under one provenance name and one filter set.
type InputSpec struct {
	// Format selects the source adapter. Empty means infer from Paths.
	Format Format

	// Paths are the input locations, read in order.
	Paths []string

	// Name is the provenance tag; empty derives per-file names.
	Name string

	// Filters restrict which records are admitted.
	Filters *record.FilterSet

	// PageSize bounds per-read memory for the store format; ignored by
	// file formats.
	PageSize int
}

// OutputSpec describes one output destination.
type OutputSpec struct {
	Format   Format
	Path     string
	Compress bool
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger routes transformer diagnostics to log.
func WithLogger(log logr.Logger) Option {
	return func(t *Transformer) { t.log = log }
}

// WithReport collects record-local errors into report instead of the
// transformer's own.
func WithReport(report *validate.Report) Option {
	return func(t *Transformer) { t.report = report }
}

// WithGraph starts the transformer over an existing graph instead of an
// empty one.
func WithGraph(g *graph.KnowledgeGraph) Option {
	return func(t *Transformer) {
		if g != nil {
			t.graph = g
		}
	}
}

// Transformer moves records between serializations. Process materializes
// inputs into an owned in-memory graph for inspection, merging, and later
// Save calls; Stream pipes a single input straight to an output in
// constant memory, never touching the graph.
type Transformer struct {
	graph  *graph.KnowledgeGraph
	report *validate.Report
	log    logr.Logger
}

// NewTransformer creates a transformer with an empty graph.
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{
		graph:  graph.NewKnowledgeGraph(),
		report: validate.NewReport(),
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Graph returns the materialized graph. Mutating it between Process and
// Save calls is allowed; that is how the merge engines plug in.
func (t *Transformer) Graph() *graph.KnowledgeGraph { return t.graph }

// Report returns the accumulated record-error report.
func (t *Transformer) Report() *validate.Report { return t.report }

// Process reads every file in the input into the transformer's graph.
// Category edge filters see the graph as built so far, so input order
// matters to them.
func (t *Transformer) Process(input InputSpec) error {
	input, err := t.resolveInput(input)
	if err != nil {
		return err
	}

	src, err := resolveSource(input)
	if err != nil {
		return err
	}
	dst := sink.NewGraphSink(t.graph)

	for _, path := range input.Paths {
		reader, err := src.Parse(path, source.Options{
			Name:    input.Name,
			Filters: input.Filters,
			Lookup:  t.graph,
			Report:  t.report,
		})
		if err != nil {
			return err
		}
		nodes, edges, err := pump(reader, dst)
		cerr := reader.Close()
		if err := multierr.Append(err, cerr); err != nil {
			return err
		}
		t.log.V(1).Info("processed input",
			"path", path, "format", input.Format, "nodes", nodes, "edges", edges)
	}
	return nil
}

// Save writes the materialized graph to the output.
func (t *Transformer) Save(output OutputSpec) error {
	dst, err := resolveSink(output)
	if err != nil {
		return err
	}

	reader, err := source.NewGraphSource(t.graph).Parse("", source.Options{})
	if err != nil {
		return err
	}
	nodes, edges, perr := pump(reader, dst)
	err = multierr.Combine(perr, reader.Close(), dst.Finalize())
	if err != nil {
		return err
	}
	t.log.V(1).Info("saved graph",
		"path", output.Path, "format", output.Format, "nodes", nodes, "edges", edges)
	return nil
}

// Transform is the buffered Process-then-Save convenience.
func (t *Transformer) Transform(input InputSpec, output OutputSpec) error {
	if err := t.Process(input); err != nil {
		return err
	}
	return t.Save(output)
}

// Stream pipes the input straight to the output without materializing a
// graph. Filters that need the graph (subject_category and
// object_category edge filters) cannot be honored here and fail before
// any file is opened.
func (t *Transformer) Stream(input InputSpec, output OutputSpec) error {
	input, err := t.resolveInput(input)
	if err != nil {
		return err
	}
	if input.Filters != nil && input.Filters.HasCategoryEdgeFilters() {
		return fmt.Errorf("subject_category/object_category edge filters need a materialized graph; use a buffered transform")
	}

	src, err := resolveSource(input)
	if err != nil {
		return err
	}
	dst, err := resolveSink(output)
	if err != nil {
		return err
	}

	var total [2]int
	for _, path := range input.Paths {
		reader, err := src.Parse(path, source.Options{
			Name:    input.Name,
			Filters: input.Filters,
			Report:  t.report,
		})
		if err != nil {
			err = multierr.Append(err, dst.Finalize())
			return err
		}
		nodes, edges, perr := pump(reader, dst)
		if err := multierr.Append(perr, reader.Close()); err != nil {
			return multierr.Append(err, dst.Finalize())
		}
		total[0] += nodes
		total[1] += edges
	}
	if err := dst.Finalize(); err != nil {
		return err
	}
	t.log.V(1).Info("streamed",
		"format", input.Format, "output", output.Path,
		"nodes", total[0], "edges", total[1])
	return nil
}

// resolveInput fills in an inferred format when the input leaves it empty.
func (t *Transformer) resolveInput(input InputSpec) (InputSpec, error) {
	if len(input.Paths) == 0 {
		return input, fmt.Errorf("input has no paths")
	}
	if input.Format == "" {
		f, err := InferInputFormat(input.Paths)
		if err != nil {
			return input, err
		}
		input.Format = f
	}
	return input, nil
}

// pump drains reader into dst, returning node and edge counts.
func pump(reader source.RecordReader, dst sink.Sink) (nodes, edges int, err error) {
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			return nodes, edges, nil
		}
		if err != nil {
			return nodes, edges, err
		}
		switch tr := rec.(type) {
		case *record.NodeRecord:
			if err := dst.WriteNode(tr); err != nil {
				return nodes, edges, err
			}
			nodes++
		case *record.EdgeRecord:
			if err := dst.WriteEdge(tr); err != nil {
				return nodes, edges, err
			}
			edges++
		}
	}
}
