// Package merge implements multi-graph union with declared conflict
// resolution.
//
// The graph with the most edges becomes the in-place mutation target and
// every other graph is folded into it. All inputs are consumed by the
// operation: callers must treat every input as invalid afterward and use
// only the returned graph.
package merge

import (
	"github.com/go-logr/logr"

	"github.com/kgraph-dev/biograph/internal/graph"
)

// Core node properties never overwritten once set.
var protectedNodeProps = map[string]bool{
	graph.PropID:   true,
	graph.PropName: true,
}

// Core edge properties never overwritten once set. Subject, predicate,
// object, and relation are struct fields on Edge and are protected by
// construction; "id" may travel in the open property map.
var protectedEdgeProps = map[string]bool{
	graph.PropID: true,
}

// Options configures a merge.
type Options struct {
	// Preserve keeps conflicting scalar values by promoting them to
	// multi-valued lists. When false, the incoming value overwrites.
	Preserve bool

	// Logger receives merge diagnostics. Defaults to logr.Discard.
	Logger logr.Logger
}

// All unions the given graphs under the conflict policy and returns the
// surviving graph. The inputs are consumed: the largest one is mutated
// into the result and must not be reused, and the others' nodes and edges
// are shared with it.
func All(graphs []*graph.KnowledgeGraph, opts Options) *graph.KnowledgeGraph {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	if len(graphs) == 0 {
		return graph.NewKnowledgeGraph()
	}

	// The largest input is mutated in place to avoid copying its entire
	// edge set.
	target := 0
	for i, g := range graphs {
		if g.EdgeCount() > graphs[target].EdgeCount() {
			target = i
		}
	}

	result := graphs[target]
	for i, g := range graphs {
		if i == target {
			continue
		}
		foldInto(result, g, opts.Preserve)
		log.V(1).Info("folded graph",
			"nodes", g.NodeCount(), "edges", g.EdgeCount())
	}
	return result
}

// Into folds src into dst under the conflict policy. Both graphs are
// consumed; only dst remains valid.
func Into(dst, src *graph.KnowledgeGraph, opts Options) *graph.KnowledgeGraph {
	foldInto(dst, src, opts.Preserve)
	return dst
}

func foldInto(dst, src *graph.KnowledgeGraph, preserve bool) {
	for _, node := range src.Nodes() {
		if existing := dst.GetNode(node.ID); existing != nil {
			mergeNode(existing, node, preserve)
			// Re-add so category indexes pick up the widened set.
			dst.AddNode(existing)
		} else {
			dst.AddNode(node)
		}
	}

	for _, edge := range src.Edges() {
		if existing := dst.GetEdge(edge.Subject, edge.Object, edge.Key); existing != nil {
			mergeEdge(existing, edge, preserve)
		} else {
			dst.AddEdge(edge)
		}
	}
}

// mergeNode folds incoming into existing: categories union, core
// properties keep their first value, everything else follows the
// preserve/overwrite policy.
func mergeNode(existing, incoming *graph.Node, preserve bool) {
	existing.Category = unionStrings(existing.Category, incoming.Category)
	if existing.Properties == nil {
		existing.Properties = make(map[string]any)
	}
	for key, value := range incoming.Properties {
		mergeProperty(existing.Properties, key, value, protectedNodeProps, preserve)
	}
}

// mergeEdge folds incoming into existing for the same (subject, object,
// key) triple.
func mergeEdge(existing, incoming *graph.Edge, preserve bool) {
	if existing.Relation == "" {
		existing.Relation = incoming.Relation
	}
	if existing.Properties == nil {
		existing.Properties = make(map[string]any)
	}
	for key, value := range incoming.Properties {
		mergeProperty(existing.Properties, key, value, protectedEdgeProps, preserve)
	}
}

func mergeProperty(props map[string]any, key string, incoming any, protected map[string]bool, preserve bool) {
	existing, ok := props[key]
	if !ok {
		props[key] = incoming
		return
	}
	if protected[key] {
		return
	}

	switch tv := existing.(type) {
	case []string:
		props[key] = unionStrings(tv, graph.StringList(incoming))
	case []any:
		props[key] = unionAny(tv, incoming)
	default:
		if !preserve {
			props[key] = incoming
			return
		}
		// Promote the scalar so the conflict survives as a multi-value.
		promoted := []any{existing}
		props[key] = unionAny(promoted, incoming)
	}
}

func unionStrings(existing, incoming []string) []string {
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

func unionAny(existing []any, incoming any) []any {
	var members []any
	switch tv := incoming.(type) {
	case []any:
		members = tv
	case []string:
		for _, m := range tv {
			members = append(members, m)
		}
	default:
		members = []any{incoming}
	}

	out := existing
	for _, m := range members {
		dup := false
		for _, e := range out {
			if e == m {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}
