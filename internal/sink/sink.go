// Package sink provides the format adapters that persist the record
// stream back into serialized knowledge graphs.
//
// A sink consumes node and edge records and releases its resources in
// Finalize, which callers invoke exactly once. Sinks whose backing format
// needs all nodes before all edges buffer internally rather than imposing
// an ordering on the stream; each such sink documents the requirement.
package sink

import (
	"compress/gzip"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/kgraph-dev/biograph/internal/record"
)

// Sink consumes a record stream and persists it.
type Sink interface {
	WriteNode(rec *record.NodeRecord) error
	WriteEdge(rec *record.EdgeRecord) error

	// Finalize flushes buffers and releases resources. Callers invoke it
	// exactly once; abandoning a sink without finalizing may leave
	// half-written output behind.
	Finalize() error
}

// createFile creates an output file, layering gzip compression when the
// path ends in .gz. The returned closer flushes and closes both layers.
func createFile(path string) (io.Writer, io.Closer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		return zw, writeCloser{zw, f}, nil
	}
	return f, f, nil
}

type writeCloser []io.Closer

func (w writeCloser) Close() error {
	var err error
	for _, c := range w {
		err = multierr.Append(err, c.Close())
	}
	return err
}
