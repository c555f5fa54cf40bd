package record

import (
	"fmt"

	"github.com/kgraph-dev/biograph/internal/graph"
)

// Edge filter keys evaluated against the referenced subject/object node
// rather than the edge's own properties. They require a materialized graph.
const (
	FilterSubjectCategory = "subject_category"
	FilterObjectCategory  = "object_category"
)

// Filters maps a property name to its accepted value set. A single accepted
// value is a one-element set.
type Filters map[string][]string

// Clone returns an independent copy.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// NodeLookup is the read-only graph access category edge filters need.
// *graph.KnowledgeGraph satisfies it.
type NodeLookup interface {
	GetNode(id string) *graph.Node
}

// FilterSet holds the node and edge filters for one source or transform.
//
// The two maps are independent, except that constraining node categories
// implicitly constrains edge endpoints (and vice versa) so that subgraph
// filtering stays node/edge-consistent.
type FilterSet struct {
	Node Filters
	Edge Filters
}

// NewFilterSet creates an empty filter set.
func NewFilterSet() *FilterSet {
	return &FilterSet{Node: make(Filters), Edge: make(Filters)}
}

// SetNodeFilter adds a node filter clause. A "category" clause also
// constrains edge subject_category/object_category.
func (f *FilterSet) SetNodeFilter(key string, values ...string) {
	if f.Node == nil {
		f.Node = make(Filters)
	}
	f.Node[key] = union(f.Node[key], values)
	if key == graph.PropCategory {
		if f.Edge == nil {
			f.Edge = make(Filters)
		}
		f.Edge[FilterSubjectCategory] = union(f.Edge[FilterSubjectCategory], values)
		f.Edge[FilterObjectCategory] = union(f.Edge[FilterObjectCategory], values)
	}
}

// SetEdgeFilter adds an edge filter clause. A subject_category or
// object_category clause also constrains the node category filter.
func (f *FilterSet) SetEdgeFilter(key string, values ...string) {
	if f.Edge == nil {
		f.Edge = make(Filters)
	}
	f.Edge[key] = union(f.Edge[key], values)
	if key == FilterSubjectCategory || key == FilterObjectCategory {
		if f.Node == nil {
			f.Node = make(Filters)
		}
		f.Node[graph.PropCategory] = union(f.Node[graph.PropCategory], values)
	}
}

// HasCategoryEdgeFilters reports whether any edge filter needs graph
// lookups, which pure streaming mode cannot provide.
func (f *FilterSet) HasCategoryEdgeFilters() bool {
	if f == nil {
		return false
	}
	_, s := f.Edge[FilterSubjectCategory]
	_, o := f.Edge[FilterObjectCategory]
	return s || o
}

// Empty reports whether no filter clause is set.
func (f *FilterSet) Empty() bool {
	return f == nil || (len(f.Node) == 0 && len(f.Edge) == 0)
}

// EvaluateNodeFilters reports whether a node's property map passes every
// filter clause. A property absent from the map rejects the record; a
// present property must intersect the accepted set. An empty filter map
// passes everything.
func EvaluateNodeFilters(props map[string]any, filters Filters) bool {
	for key, accepted := range filters {
		value, ok := props[key]
		if !ok {
			return false
		}
		if !intersects(graph.StringList(value), accepted) {
			return false
		}
	}
	return true
}

// EvaluateEdgeFilters reports whether an edge record passes every edge
// filter clause. subject_category/object_category clauses are evaluated
// against the referenced node's category in the graph built so far; with a
// nil lookup (pure streaming mode) such a clause is an error, never a
// silent skip.
func EvaluateEdgeFilters(rec *EdgeRecord, filters Filters, lookup NodeLookup) (bool, error) {
	for key, accepted := range filters {
		switch key {
		case FilterSubjectCategory, FilterObjectCategory:
			if lookup == nil {
				return false, fmt.Errorf("edge filter %q requires a materialized graph", key)
			}
			id := rec.Subject
			if key == FilterObjectCategory {
				id = rec.Object
			}
			node := lookup.GetNode(id)
			if node == nil || !intersects(node.Category, accepted) {
				return false, nil
			}
		default:
			value, ok := rec.Properties[key]
			if !ok {
				return false, nil
			}
			if !intersects(graph.StringList(value), accepted) {
				return false, nil
			}
		}
	}
	return true, nil
}

// intersects reports whether the two sets share at least one member.
func intersects(values, accepted []string) bool {
	for _, v := range values {
		for _, a := range accepted {
			if v == a {
				return true
			}
		}
	}
	return false
}

func union(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range incoming {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
