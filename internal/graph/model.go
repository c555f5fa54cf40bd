// Package graph provides the in-memory knowledge graph for BioGraph.
//
// It defines the node and edge types exchanged between sources and sinks:
// nodes carry a unique identifier, an ordered category set, and an open
// string-keyed property map; edges are (subject, predicate, object) triples
// distinguished by a deterministic edge key so that parallel edges between
// the same node pair can coexist.
package graph

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Well-known property keys. Unrecognized keys pass through unchanged.
const (
	PropID               = "id"
	PropName             = "name"
	PropCategory         = "category"
	PropSubject          = "subject"
	PropObject           = "object"
	PropPredicate        = "predicate"
	PropRelation         = "relation"
	PropSameAs           = "same_as"
	PropProvidedBy       = "provided_by"
	PropCliqueLeader     = "clique_leader"
	PropElectionStrategy = "election_strategy"

	// Audit keys written by clique edge consolidation.
	PropOriginalSubject = "_original_subject"
	PropOriginalObject  = "_original_object"
)

// Fallback ontology terms used when a category or predicate fails validation
// or is absent.
const (
	DefaultCategory  = "biolink:NamedThing"
	DefaultPredicate = "biolink:related_to"
)

// SameAsPredicate is the predicate that asserts identifier equivalence.
// Edges with this predicate feed the clique-merge engine.
const SameAsPredicate = "biolink:same_as"

// Node represents a single entity in the knowledge graph.
type Node struct {
	// ID is the unique CURIE-style identifier, e.g. "HGNC:11603".
	ID string

	// Category is the ordered set of ontology classes for this node.
	// Never empty once the node is in a graph; defaults to DefaultCategory.
	Category []string

	// Properties holds all remaining node properties (name, description,
	// same_as, provided_by, ...). May be nil for a bare node.
	Properties map[string]any
}

// NewNode creates a node with the default category.
func NewNode(id string) *Node {
	return &Node{
		ID:         id,
		Category:   []string{DefaultCategory},
		Properties: make(map[string]any),
	}
}

// Name returns the node's name property, or "" if unset.
func (n *Node) Name() string {
	if s, ok := n.Properties[PropName].(string); ok {
		return s
	}
	return ""
}

// SameAs returns the node-level same_as equivalence list.
func (n *Node) SameAs() []string {
	return StringList(n.Properties[PropSameAs])
}

// AddSameAs appends ids to the node's same_as list, skipping duplicates
// and the node's own identifier.
func (n *Node) AddSameAs(ids ...string) {
	existing := n.SameAs()
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range ids {
		if id == "" || id == n.ID || seen[id] {
			continue
		}
		existing = append(existing, id)
		seen[id] = true
	}
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[PropSameAs] = existing
}

// HasCategory reports whether the node carries the given category.
func (n *Node) HasCategory(category string) bool {
	for _, c := range n.Category {
		if c == category {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the node. Record streams treat nodes as
// immutable in transit, so consumers that need to mutate must clone first.
func (n *Node) Clone() *Node {
	return &Node{
		ID:         n.ID,
		Category:   append([]string(nil), n.Category...),
		Properties: CloneProperties(n.Properties),
	}
}

// Edge represents a directed edge in the knowledge graph.
type Edge struct {
	// Subject is the source node identifier.
	Subject string

	// Object is the target node identifier.
	Object string

	// Predicate is the ontology relation label, e.g. "biolink:interacts_with".
	Predicate string

	// Relation is the finer-grained ontology relation term, e.g. "RO:0002434".
	Relation string

	// Key distinguishes parallel edges between the same node pair.
	// Deterministically derived from (subject, predicate, object) when the
	// backing format does not supply one.
	Key string

	// Properties holds all remaining edge properties.
	Properties map[string]any
}

// NewEdge creates an edge with a generated key.
func NewEdge(subject, predicate, object string) *Edge {
	return &Edge{
		Subject:    subject,
		Object:     object,
		Predicate:  predicate,
		Key:        GenerateEdgeKey(subject, predicate, object),
		Properties: make(map[string]any),
	}
}

// IsSameAs reports whether this edge asserts identifier equivalence.
func (e *Edge) IsSameAs() bool {
	return e.Predicate == SameAsPredicate || e.Predicate == "same_as"
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	return &Edge{
		Subject:    e.Subject,
		Object:     e.Object,
		Predicate:  e.Predicate,
		Relation:   e.Relation,
		Key:        e.Key,
		Properties: CloneProperties(e.Properties),
	}
}

// GenerateEdgeKey derives a deterministic edge key from the edge triple.
// Repeated calls with the same arguments always return the same key, which
// keeps re-insertion after clique edge consolidation idempotent.
func GenerateEdgeKey(subject, predicate, object string) string {
	h := xxhash.New()
	_, _ = h.WriteString(subject)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(predicate)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(object)
	return fmt.Sprintf("%016x", h.Sum64())
}

// CloneProperties deep-copies a property map. List values are copied;
// nested maps are copied one level deep, which covers every shape the
// supported serializations produce.
func CloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch tv := v.(type) {
		case []string:
			out[k] = append([]string(nil), tv...)
		case []any:
			out[k] = append([]any(nil), tv...)
		case map[string]any:
			inner := make(map[string]any, len(tv))
			for ik, iv := range tv {
				inner[ik] = iv
			}
			out[k] = inner
		default:
			out[k] = v
		}
	}
	return out
}

// StringList coerces a property value into a string slice. Scalars become
// one-element slices; non-string members are formatted. Nil stays nil.
func StringList(v any) []string {
	switch tv := v.(type) {
	case nil:
		return nil
	case []string:
		return tv
	case string:
		return []string{tv}
	case []any:
		out := make([]string, 0, len(tv))
		for _, m := range tv {
			if s, ok := m.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(m))
			}
		}
		return out
	default:
		return []string{fmt.Sprint(tv)}
	}
}
