// Package record defines the wire-level records moved through the
// source/sink pipeline and the filter evaluation shared by every source.
//
// A record is either a node record or an edge record. The two shapes are an
// explicit tagged union: consumers dispatch on Kind (or type-switch on the
// concrete type) rather than inferring the shape from field arity.
package record

import (
	"fmt"

	"github.com/kgraph-dev/biograph/internal/graph"
)

// Kind tags the two record shapes.
type Kind string

const (
	KindNode Kind = "node"
	KindEdge Kind = "edge"
)

// Record is the unit of data moved through the pipeline. Records are
// immutable in transit: no pipeline stage may mutate a record after it has
// been yielded by a source.
type Record interface {
	Kind() Kind
}

// NodeRecord is the wire form of a node: an identifier plus its property
// map. The category, when present, lives in Properties under "category".
type NodeRecord struct {
	ID         string
	Properties map[string]any
}

// Kind implements Record.
func (r *NodeRecord) Kind() Kind { return KindNode }

// EdgeRecord is the wire form of an edge: subject, object, the edge key,
// and the property map carrying predicate, relation, and the rest.
type EdgeRecord struct {
	Subject    string
	Object     string
	Key        string
	Properties map[string]any
}

// Kind implements Record.
func (r *EdgeRecord) Kind() Kind { return KindEdge }

// Predicate returns the edge predicate from the property map, or "".
func (r *EdgeRecord) Predicate() string {
	if s, ok := r.Properties[graph.PropPredicate].(string); ok {
		return s
	}
	return ""
}

// Validate checks the mandatory node fields. A failing record is dropped
// with a recorded error, never raised as a hard failure.
func (r *NodeRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("node record missing id")
	}
	return nil
}

// Validate checks the mandatory edge fields.
func (r *EdgeRecord) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("edge record missing subject")
	}
	if r.Object == "" {
		return fmt.Errorf("edge record missing object")
	}
	if r.Predicate() == "" {
		return fmt.Errorf("edge record %s->%s missing predicate", r.Subject, r.Object)
	}
	return nil
}

// FromNode converts a graph node into its wire record. The node is cloned
// so downstream consumers cannot mutate graph state through the record.
func FromNode(n *graph.Node) *NodeRecord {
	props := graph.CloneProperties(n.Properties)
	if props == nil {
		props = make(map[string]any)
	}
	props[graph.PropCategory] = append([]string(nil), n.Category...)
	return &NodeRecord{ID: n.ID, Properties: props}
}

// FromEdge converts a graph edge into its wire record.
func FromEdge(e *graph.Edge) *EdgeRecord {
	props := graph.CloneProperties(e.Properties)
	if props == nil {
		props = make(map[string]any)
	}
	props[graph.PropPredicate] = e.Predicate
	if e.Relation != "" {
		props[graph.PropRelation] = e.Relation
	}
	return &EdgeRecord{
		Subject:    e.Subject,
		Object:     e.Object,
		Key:        e.Key,
		Properties: props,
	}
}

// ToNode materializes a node record into a graph node. The record's
// category property becomes the node category, defaulting when absent.
func (r *NodeRecord) ToNode() *graph.Node {
	props := graph.CloneProperties(r.Properties)
	if props == nil {
		props = make(map[string]any)
	}
	category := graph.StringList(props[graph.PropCategory])
	delete(props, graph.PropCategory)
	delete(props, graph.PropID)
	if len(category) == 0 {
		category = []string{graph.DefaultCategory}
	}
	return &graph.Node{ID: r.ID, Category: category, Properties: props}
}

// ToEdge materializes an edge record into a graph edge. A missing edge key
// is generated from the (subject, predicate, object) triple.
func (r *EdgeRecord) ToEdge() *graph.Edge {
	props := graph.CloneProperties(r.Properties)
	if props == nil {
		props = make(map[string]any)
	}
	predicate, _ := props[graph.PropPredicate].(string)
	relation, _ := props[graph.PropRelation].(string)
	delete(props, graph.PropPredicate)
	delete(props, graph.PropRelation)
	delete(props, graph.PropSubject)
	delete(props, graph.PropObject)

	key := r.Key
	if key == "" {
		key = graph.GenerateEdgeKey(r.Subject, predicate, r.Object)
	}
	return &graph.Edge{
		Subject:    r.Subject,
		Object:     r.Object,
		Predicate:  predicate,
		Relation:   relation,
		Key:        key,
		Properties: props,
	}
}
