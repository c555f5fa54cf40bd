package sink

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/multierr"

	"github.com/kgraph-dev/biograph/internal/curie"
	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// NTriplesSink writes RDF N-Triples. Each node emits one rdf:type triple
// per category plus one literal triple per scalar property (list members
// emit one triple each); each edge emits a single triple with its
// predicate IRI. Edge keys, relations, and edge properties have no
// faithful N-Triples form without reification and are not serialized.
// Fully streaming.
type NTriplesSink struct {
	bw        *bufio.Writer
	closer    io.Closer
	finalized bool
	werr      error
}

// NewNTriplesSink creates an N-Triples sink writing to the given path.
func NewNTriplesSink(path string) (*NTriplesSink, error) {
	w, closer, err := createFile(path)
	if err != nil {
		return nil, err
	}
	return &NTriplesSink{bw: bufio.NewWriter(w), closer: closer}, nil
}

// WriteNode implements Sink.
func (s *NTriplesSink) WriteNode(rec *record.NodeRecord) error {
	subject := curie.ToIRI(rec.ID)

	for _, cat := range graph.StringList(rec.Properties[graph.PropCategory]) {
		s.triple(subject, curie.RDFType, "<"+curie.ToIRI(cat)+">")
	}

	for key, value := range rec.Properties {
		if key == graph.PropCategory || key == graph.PropID {
			continue
		}
		pred := curie.PropertyIRI(key)
		switch tv := value.(type) {
		case string:
			s.triple(subject, pred, strconv.Quote(tv))
		case []string:
			for _, m := range tv {
				s.triple(subject, pred, strconv.Quote(m))
			}
		case []any:
			for _, m := range tv {
				s.triple(subject, pred, strconv.Quote(fmt.Sprint(m)))
			}
		default:
			s.triple(subject, pred, strconv.Quote(fmt.Sprint(tv)))
		}
	}
	return s.werr
}

// WriteEdge implements Sink.
func (s *NTriplesSink) WriteEdge(rec *record.EdgeRecord) error {
	s.triple(curie.ToIRI(rec.Subject), curie.ToIRI(rec.Predicate()), "<"+curie.ToIRI(rec.Object)+">")
	return s.werr
}

// Finalize flushes and closes the file.
func (s *NTriplesSink) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	return multierr.Combine(s.werr, s.bw.Flush(), s.closer.Close())
}

func (s *NTriplesSink) triple(subjectIRI, predicateIRI, objectTerm string) {
	if s.werr != nil {
		return
	}
	_, s.werr = fmt.Fprintf(s.bw, "<%s> <%s> %s .\n", subjectIRI, predicateIRI, objectTerm)
}
