package store

import (
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
	"github.com/kgraph-dev/biograph/internal/stats"
)

// Store is a read-only random-access handle over a persisted graph. It
// serves point lookups and neighborhood scans, which the streaming Source
// cannot.
type Store struct {
	db *badger.DB
}

// Open opens the store at path read-only.
func Open(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, errors.Wrapf(err, "opening store %s", path)
	}
	return &Store{db: db}, nil
}

// Close releases the handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetNode returns the node with the given id, or nil if absent.
func (s *Store) GetNode(id string) (*record.NodeRecord, error) {
	var rec *record.NodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixNode + id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, derr := decodeValue(prefixNode, val)
			if derr != nil {
				return derr
			}
			rec = r.(*record.NodeRecord)
			return nil
		})
	})
	return rec, err
}

// Outgoing returns the edges whose subject is id.
func (s *Store) Outgoing(id string) ([]*record.EdgeRecord, error) {
	return s.scanEdges([]byte(prefixEdge + id + "\x00"), false)
}

// Incoming returns the edges whose object is id, resolved through the
// reverse index.
func (s *Store) Incoming(id string) ([]*record.EdgeRecord, error) {
	return s.scanEdges([]byte(prefixReverse+id+"\x00"), true)
}

func (s *Store) scanEdges(prefix []byte, reverse bool) ([]*record.EdgeRecord, error) {
	var out []*record.EdgeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = prefix
		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var data []byte
			err := item.Value(func(val []byte) error {
				if !reverse {
					data = append([]byte(nil), val...)
					return nil
				}
				// Reverse entries store the forward key; follow it.
				fwd, err := txn.Get(val)
				if err != nil {
					return err
				}
				return fwd.Value(func(fval []byte) error {
					data = append([]byte(nil), fval...)
					return nil
				})
			})
			if err != nil {
				return err
			}
			rec, err := decodeValue(prefixEdge, data)
			if err != nil {
				return err
			}
			out = append(out, rec.(*record.EdgeRecord))
		}
		return nil
	})
	return out, err
}

// Search scans for nodes whose id or name contains the query,
// case-insensitively, returning up to limit matches in key order.
func (s *Store) Search(query string, limit int) ([]*record.NodeRecord, error) {
	needle := strings.ToLower(query)
	var out []*record.NodeRecord

	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = []byte(prefixNode)
		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(out) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, derr := decodeValue(prefixNode, val)
				if derr != nil {
					return derr
				}
				node := rec.(*record.NodeRecord)
				name, _ := node.Properties[graph.PropName].(string)
				if strings.Contains(strings.ToLower(node.ID), needle) ||
					strings.Contains(strings.ToLower(name), needle) {
					out = append(out, node)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Summary computes the summary of the persisted graph in one pass.
func (s *Store) Summary() (*stats.Summary, error) {
	collector := stats.NewCollector()

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			var prefix string
			switch {
			case strings.HasPrefix(string(key), prefixNode):
				prefix = prefixNode
			case strings.HasPrefix(string(key), prefixEdge):
				prefix = prefixEdge
			default:
				continue
			}
			err := it.Item().Value(func(val []byte) error {
				rec, derr := decodeValue(prefix, val)
				if derr != nil {
					return derr
				}
				switch tr := rec.(type) {
				case *record.NodeRecord:
					return collector.WriteNode(tr)
				case *record.EdgeRecord:
					return collector.WriteEdge(tr)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return collector.Summary(), nil
}
