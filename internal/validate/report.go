package validate

import (
	"fmt"
	"sync"

	"github.com/kgraph-dev/biograph/internal/graph"
)

// RecordError describes one record-local problem. Record-local errors are
// recovered and reported; they never abort the stream.
type RecordError struct {
	// Kind is "node" or "edge".
	Kind string

	// Entity identifies the offending record (node id, or subject->object).
	Entity string

	// Message explains what was wrong.
	Message string
}

func (e RecordError) String() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Entity, e.Message)
}

// Report accumulates record-local errors across a transform so that one
// malformed record does not abort an entire large transfer.
type Report struct {
	mu     sync.Mutex
	errors []RecordError
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{}
}

// AddNodeError records a problem with a node record.
func (r *Report) AddNodeError(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, RecordError{Kind: "node", Entity: id, Message: message})
}

// AddEdgeError records a problem with an edge record.
func (r *Report) AddEdgeError(subject, object, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, RecordError{
		Kind:    "edge",
		Entity:  subject + "->" + object,
		Message: message,
	})
}

// Errors returns a copy of the recorded errors.
func (r *Report) Errors() []RecordError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordError(nil), r.errors...)
}

// Len returns the number of recorded errors.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// ValidateGraph checks every node and edge of a materialized graph against
// the ontology validator and referential integrity, returning the findings
// as a report.
func ValidateGraph(g *graph.KnowledgeGraph, v Validator) *Report {
	report := NewReport()

	for _, node := range g.Nodes() {
		if node.ID == "" {
			report.AddNodeError("", "missing id")
			continue
		}
		for _, c := range node.Category {
			if !v.IsValidCategory(c) {
				report.AddNodeError(node.ID, fmt.Sprintf("invalid category %q", c))
			}
		}
	}

	for _, edge := range g.Edges() {
		if !v.IsValidPredicate(edge.Predicate) {
			report.AddEdgeError(edge.Subject, edge.Object,
				fmt.Sprintf("invalid predicate %q", edge.Predicate))
		}
		if !g.HasNode(edge.Subject) {
			report.AddEdgeError(edge.Subject, edge.Object, "dangling subject")
		}
		if !g.HasNode(edge.Object) {
			report.AddEdgeError(edge.Subject, edge.Object, "dangling object")
		}
	}

	return report
}
