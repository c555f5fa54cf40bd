// Package stats computes graph summaries: node and edge totals broken down
// by category, predicate, and provenance.
package stats

import (
	"sort"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// Summary is the serializable result of a collection run.
type Summary struct {
	Nodes NodeStats `json:"nodes" yaml:"nodes"`
	Edges EdgeStats `json:"edges" yaml:"edges"`
}

// NodeStats breaks node counts down by category and provenance.
type NodeStats struct {
	Total      int            `json:"total" yaml:"total"`
	ByCategory map[string]int `json:"count_by_category" yaml:"count_by_category"`
	BySource   map[string]int `json:"count_by_source" yaml:"count_by_source"`
}

// EdgeStats breaks edge counts down by predicate and provenance.
type EdgeStats struct {
	Total       int            `json:"total" yaml:"total"`
	ByPredicate map[string]int `json:"count_by_predicate" yaml:"count_by_predicate"`
	BySource    map[string]int `json:"count_by_source" yaml:"count_by_source"`
}

// internTable maps category strings to small integer ids. Each Collector
// owns its table; concurrent collectors never share or contend on one.
type internTable struct {
	ids   map[string]int
	names []string
}

func newInternTable() *internTable {
	return &internTable{ids: make(map[string]int)}
}

func (t *internTable) intern(name string) int {
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := len(t.names)
	t.ids[name] = id
	t.names = append(t.names, name)
	return id
}

// Collector accumulates summary counts from a record stream. It implements
// sink.Sink, so it can terminate a streaming transform directly.
type Collector struct {
	categories *internTable

	nodeTotal      int
	nodeByCategory map[int]int
	nodeBySource   map[string]int

	edgeTotal       int
	edgeByPredicate map[string]int
	edgeBySource    map[string]int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		categories:      newInternTable(),
		nodeByCategory:  make(map[int]int),
		nodeBySource:    make(map[string]int),
		edgeByPredicate: make(map[string]int),
		edgeBySource:    make(map[string]int),
	}
}

// WriteNode implements sink.Sink.
func (c *Collector) WriteNode(rec *record.NodeRecord) error {
	c.nodeTotal++
	categories := graph.StringList(rec.Properties[graph.PropCategory])
	if len(categories) == 0 {
		categories = []string{graph.DefaultCategory}
	}
	for _, cat := range categories {
		c.nodeByCategory[c.categories.intern(cat)]++
	}
	for _, src := range graph.StringList(rec.Properties[graph.PropProvidedBy]) {
		c.nodeBySource[src]++
	}
	return nil
}

// WriteEdge implements sink.Sink.
func (c *Collector) WriteEdge(rec *record.EdgeRecord) error {
	c.edgeTotal++
	predicate := rec.Predicate()
	if predicate == "" {
		predicate = graph.DefaultPredicate
	}
	c.edgeByPredicate[predicate]++
	for _, src := range graph.StringList(rec.Properties[graph.PropProvidedBy]) {
		c.edgeBySource[src]++
	}
	return nil
}

// Finalize implements sink.Sink.
func (c *Collector) Finalize() error { return nil }

// Summary resolves the interned counts into a serializable summary.
func (c *Collector) Summary() *Summary {
	byCategory := make(map[string]int, len(c.nodeByCategory))
	for id, n := range c.nodeByCategory {
		byCategory[c.categories.names[id]] = n
	}
	return &Summary{
		Nodes: NodeStats{
			Total:      c.nodeTotal,
			ByCategory: byCategory,
			BySource:   copyCounts(c.nodeBySource),
		},
		Edges: EdgeStats{
			Total:       c.edgeTotal,
			ByPredicate: copyCounts(c.edgeByPredicate),
			BySource:    copyCounts(c.edgeBySource),
		},
	}
}

// Summarize computes the summary of a materialized graph.
func Summarize(g *graph.KnowledgeGraph) *Summary {
	c := NewCollector()
	for _, node := range g.Nodes() {
		_ = c.WriteNode(record.FromNode(node))
	}
	for _, edge := range g.Edges() {
		_ = c.WriteEdge(record.FromEdge(edge))
	}
	return c.Summary()
}

// Categories returns the distinct node categories in sorted order.
func (s *Summary) Categories() []string {
	out := make([]string, 0, len(s.Nodes.ByCategory))
	for cat := range s.Nodes.ByCategory {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Predicates returns the distinct edge predicates in sorted order.
func (s *Summary) Predicates() []string {
	out := make([]string, 0, len(s.Edges.ByPredicate))
	for p := range s.Edges.ByPredicate {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
