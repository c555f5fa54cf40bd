// Package stream wires one source's record stream to one sink, either
// directly (streaming) or through a materialized in-memory graph
// (buffered), and owns the authoritative format registry.
package stream

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kgraph-dev/biograph/internal/sink"
	"github.com/kgraph-dev/biograph/internal/source"
	"github.com/kgraph-dev/biograph/internal/store"
)

// Format is the closed set of supported serializations. Registry lookups
// go through ParseFormat so a typo fails at pipeline construction, never
// mid-stream.
type Format string

const (
	FormatTSV      Format = "tsv"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatNTriples Format = "nt"
	FormatTRAPI    Format = "trapi"
	FormatStore    Format = "store"
)

// registryEntry pairs the source and sink factories for one format. This
// table is the single authority on format dispatch.
type registryEntry struct {
	newSource func(spec InputSpec) (source.Source, error)
	newSink   func(spec OutputSpec) (sink.Sink, error)
}

var registry = map[Format]registryEntry{
	FormatTSV: {
		newSource: func(InputSpec) (source.Source, error) { return source.NewTSVSource(), nil },
		newSink: func(spec OutputSpec) (sink.Sink, error) {
			return sink.NewTSVSink(spec.Path, spec.Compress), nil
		},
	},
	FormatCSV: {
		newSource: func(InputSpec) (source.Source, error) { return source.NewCSVSource(), nil },
		newSink: func(spec OutputSpec) (sink.Sink, error) {
			return sink.NewCSVSink(spec.Path, spec.Compress), nil
		},
	},
	FormatJSON: {
		newSource: func(InputSpec) (source.Source, error) { return source.NewJSONSource(), nil },
		newSink: func(spec OutputSpec) (sink.Sink, error) {
			return sink.NewJSONSink(compressedPath(spec))
		},
	},
	FormatJSONL: {
		newSource: func(InputSpec) (source.Source, error) { return source.NewJSONLSource(), nil },
		newSink: func(spec OutputSpec) (sink.Sink, error) {
			return sink.NewJSONLSink(compressedPath(spec))
		},
	},
	FormatNTriples: {
		newSource: func(InputSpec) (source.Source, error) { return source.NewNTriplesSource(), nil },
		newSink: func(spec OutputSpec) (sink.Sink, error) {
			return sink.NewNTriplesSink(compressedPath(spec))
		},
	},
	FormatTRAPI: {
		newSource: func(InputSpec) (source.Source, error) { return source.NewTRAPISource(), nil },
		// TRAPI is a query-response format; there is no sink for it.
	},
	FormatStore: {
		newSource: func(spec InputSpec) (source.Source, error) {
			return store.NewSource(store.Options{PageSize: spec.PageSize}), nil
		},
		newSink: func(spec OutputSpec) (sink.Sink, error) {
			return store.NewSink(spec.Path)
		},
	},
}

func compressedPath(spec OutputSpec) string {
	if spec.Compress && !strings.HasSuffix(spec.Path, ".gz") {
		return spec.Path + ".gz"
	}
	return spec.Path
}

// ParseFormat resolves a format tag. Unknown tags are a construction-time
// error.
func ParseFormat(tag string) (Format, error) {
	f := Format(strings.ToLower(tag))
	if _, ok := registry[f]; !ok {
		return "", fmt.Errorf("unrecognized format %q", tag)
	}
	return f, nil
}

// InferFormat guesses a file's format from its extension (ignoring a
// trailing .gz).
func InferFormat(path string) (Format, error) {
	name := strings.TrimSuffix(path, ".gz")
	switch filepath.Ext(name) {
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".nt":
		return FormatNTriples, nil
	default:
		return "", fmt.Errorf("cannot infer format of %q", path)
	}
}

// InferInputFormat infers one format for a set of input files. Mixing
// formats in one logical load without an explicit override is fatal
// before any I/O begins.
func InferInputFormat(paths []string) (Format, error) {
	var inferred Format
	for _, p := range paths {
		f, err := InferFormat(p)
		if err != nil {
			return "", err
		}
		if inferred == "" {
			inferred = f
			continue
		}
		if f != inferred {
			return "", fmt.Errorf("mixed input formats: %s and %s (pass an explicit format)", inferred, f)
		}
	}
	if inferred == "" {
		return "", fmt.Errorf("no input files")
	}
	return inferred, nil
}

// Extensions returns the file extensions (without .gz) associated with
// formats that can be discovered in input directories.
func Extensions() []string {
	return []string{".tsv", ".tab", ".csv", ".json", ".jsonl", ".ndjson", ".nt"}
}

func resolveSource(spec InputSpec) (source.Source, error) {
	entry, ok := registry[spec.Format]
	if !ok || entry.newSource == nil {
		return nil, fmt.Errorf("no source registered for format %q", spec.Format)
	}
	return entry.newSource(spec)
}

func resolveSink(spec OutputSpec) (sink.Sink, error) {
	entry, ok := registry[spec.Format]
	if !ok || entry.newSink == nil {
		return nil, fmt.Errorf("no sink registered for format %q", spec.Format)
	}
	return entry.newSink(spec)
}
