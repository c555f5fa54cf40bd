// Package store persists knowledge graphs in a BadgerDB-backed property
// store and exposes it as just another source/sink pair.
//
// Unlike the file-backed formats there are no byte offsets to resume from,
// so the source pages through the keyspace: each page decodes at most
// PageSize records inside one read transaction, and the next page seeks
// past the last key seen. Memory per read stays bounded by the page size.
package store

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/kgraph-dev/biograph/internal/record"
	"github.com/kgraph-dev/biograph/internal/sink"
	"github.com/kgraph-dev/biograph/internal/source"
)

// Key prefixes. Edges are indexed twice: forward by subject for outgoing
// scans, reverse by object for incoming scans. The reverse entry's value
// is the forward key.
const (
	prefixNode    = "n:"
	prefixEdge    = "e:"
	prefixReverse = "i:"
)

// DefaultPageSize bounds records decoded per read transaction.
const DefaultPageSize = 10000

type nodeValue struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
}

type edgeValue struct {
	Subject    string         `json:"subject"`
	Object     string         `json:"object"`
	Key        string         `json:"key"`
	Properties map[string]any `json:"properties"`
}

// Options configures a store source.
type Options struct {
	// PageSize bounds records decoded per page; zero means
	// DefaultPageSize.
	PageSize int
}

// Source reads a badger store as a record stream: all nodes, then all
// edges.
type Source struct {
	opts Options
}

// NewSource creates a store source.
func NewSource(opts Options) *Source {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Source{opts: opts}
}

// Parse implements source.Source; path is the badger directory.
func (s *Source) Parse(path string, opts source.Options) (source.RecordReader, error) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, errors.Wrapf(err, "opening store %s", path)
	}

	raw := &pagedReader{db: db, pageSize: s.opts.PageSize, prefix: prefixNode}
	return source.Wrap(raw, path, opts), nil
}

// pagedReader iterates the node keyspace and then the edge keyspace one
// page at a time.
type pagedReader struct {
	db       *badger.DB
	pageSize int
	prefix   string

	page    []record.Record
	pos     int
	lastKey []byte
	done    bool
}

func (r *pagedReader) Next() (record.Record, error) {
	for {
		if r.pos < len(r.page) {
			rec := r.page[r.pos]
			r.pos++
			return rec, nil
		}
		if r.done {
			if r.prefix == prefixNode {
				// Nodes exhausted; start over on the edge keyspace.
				r.prefix = prefixEdge
				r.lastKey = nil
				r.done = false
				continue
			}
			return nil, io.EOF
		}
		if err := r.fetchPage(); err != nil {
			return nil, err
		}
	}
}

func (r *pagedReader) fetchPage() error {
	r.page = r.page[:0]
	r.pos = 0

	return r.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = []byte(r.prefix)
		it := txn.NewIterator(iopts)
		defer it.Close()

		if r.lastKey == nil {
			it.Rewind()
		} else {
			it.Seek(r.lastKey)
			if it.Valid() && bytes.Equal(it.Item().Key(), r.lastKey) {
				it.Next()
			}
		}

		for ; it.Valid() && len(r.page) < r.pageSize; it.Next() {
			item := it.Item()
			r.lastKey = item.KeyCopy(r.lastKey[:0])
			err := item.Value(func(val []byte) error {
				rec, derr := decodeValue(r.prefix, val)
				if derr != nil {
					return derr
				}
				r.page = append(r.page, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		if len(r.page) < r.pageSize {
			r.done = true
		}
		return nil
	})
}

func decodeValue(prefix string, val []byte) (record.Record, error) {
	if prefix == prefixNode {
		var nv nodeValue
		if err := json.Unmarshal(val, &nv); err != nil {
			return nil, errors.Wrap(err, "decoding node")
		}
		if nv.Properties == nil {
			nv.Properties = make(map[string]any)
		}
		return &record.NodeRecord{ID: nv.ID, Properties: nv.Properties}, nil
	}
	var ev edgeValue
	if err := json.Unmarshal(val, &ev); err != nil {
		return nil, errors.Wrap(err, "decoding edge")
	}
	if ev.Properties == nil {
		ev.Properties = make(map[string]any)
	}
	return &record.EdgeRecord{
		Subject:    ev.Subject,
		Object:     ev.Object,
		Key:        ev.Key,
		Properties: ev.Properties,
	}, nil
}

func (r *pagedReader) Close() error {
	return r.db.Close()
}

// Sink writes the record stream into a badger store through a write
// batch.
type Sink struct {
	db        *badger.DB
	wb        *badger.WriteBatch
	finalized bool
}

var _ sink.Sink = (*Sink)(nil)

// NewSink opens (or creates) the badger store at path for writing.
func NewSink(path string) (*Sink, error) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, errors.Wrapf(err, "opening store %s", path)
	}
	return &Sink{db: db, wb: db.NewWriteBatch()}, nil
}

// WriteNode implements sink.Sink.
func (s *Sink) WriteNode(rec *record.NodeRecord) error {
	data, err := json.Marshal(nodeValue{ID: rec.ID, Properties: rec.Properties})
	if err != nil {
		return errors.Wrap(err, "marshaling node")
	}
	return s.wb.Set([]byte(prefixNode+rec.ID), data)
}

// WriteEdge implements sink.Sink.
func (s *Sink) WriteEdge(rec *record.EdgeRecord) error {
	data, err := json.Marshal(edgeValue{
		Subject:    rec.Subject,
		Object:     rec.Object,
		Key:        rec.Key,
		Properties: rec.Properties,
	})
	if err != nil {
		return errors.Wrap(err, "marshaling edge")
	}
	key := prefixEdge + rec.Subject + "\x00" + rec.Object + "\x00" + rec.Key
	if err := s.wb.Set([]byte(key), data); err != nil {
		return err
	}
	reverse := prefixReverse + rec.Object + "\x00" + rec.Subject + "\x00" + rec.Key
	return s.wb.Set([]byte(reverse), []byte(key))
}

// Finalize flushes the write batch and closes the store.
func (s *Sink) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	ferr := s.wb.Flush()
	cerr := s.db.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}
