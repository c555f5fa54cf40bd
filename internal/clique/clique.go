// Package clique implements identity resolution over same_as assertions.
//
// Nodes joined by same_as edges (or same_as node properties) form cliques:
// groups of identifiers that all refer to one real-world entity. Each
// clique elects a single leader; every other member's edges are re-pointed
// to the leader and its identifier is absorbed into the leader's same_as
// list. Cliques are rebuilt from the graph snapshot on every run; they
// are never persisted.
package clique

import (
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/kgraph-dev/biograph/internal/graph"
)

// Strategy tags record which election strategy chose a clique leader.
const (
	StrategyLeaderAnnotation     = "LEADER_ANNOTATION"
	StrategyPrefixPrioritization = "PREFIX_PRIORITIZATION"
	StrategyAlphabeticalSort     = "ALPHABETICAL_SORT"
)

// Options configures a merge run.
type Options struct {
	// PrefixPriorities maps a category to its ordered identifier-prefix
	// preference, highest priority first, e.g.
	// "biolink:Gene" -> ["HGNC", "NCBIGene", "ENSEMBL", "OMIM"].
	PrefixPriorities map[string][]string

	// PruneNonLeaders removes non-leader clique members from the graph
	// after their edges have been consolidated. Off by default: leaving
	// the orphaned members for a separate pruning pass is a caller
	// decision, never an implicit side effect.
	PruneNonLeaders bool

	// Logger receives per-clique diagnostics. Defaults to logr.Discard.
	Logger logr.Logger
}

// Result summarizes a merge run.
type Result struct {
	// Cliques is the number of connected components found.
	Cliques int

	// Leaders maps each clique leader to its sorted non-leader members.
	Leaders map[string][]string

	// ConsolidatedEdges counts edges re-pointed to a leader.
	ConsolidatedEdges int

	// PrunedNodes counts non-leader nodes removed (zero unless
	// PruneNonLeaders is set).
	PrunedNodes int
}

// Merge collapses every same_as clique in the graph. Mutates g in place.
func Merge(g *graph.KnowledgeGraph, opts Options) *Result {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	cliques := findCliques(g)
	result := &Result{
		Cliques: len(cliques),
		Leaders: make(map[string][]string, len(cliques)),
	}

	for _, members := range cliques {
		leader, strategy := electLeader(g, members, opts.PrefixPriorities)
		if leader == "" {
			log.Info("no leader elected, skipping clique", "members", members)
			continue
		}

		leaderNode := g.GetNode(leader)
		if leaderNode == nil {
			// The leader was only ever referenced through same_as
			// properties; materialize it so edges have a target.
			leaderNode = graph.NewNode(leader)
			g.AddNode(leaderNode)
		}
		if leaderNode.Properties == nil {
			leaderNode.Properties = make(map[string]any)
		}
		leaderNode.Properties[graph.PropCliqueLeader] = true
		leaderNode.Properties[graph.PropElectionStrategy] = strategy

		var others []string
		for _, id := range members {
			if id != leader {
				others = append(others, id)
			}
		}
		sort.Strings(others)
		leaderNode.AddSameAs(others...)
		result.Leaders[leader] = others

		result.ConsolidatedEdges += consolidateEdges(g, leader, others)

		if opts.PruneNonLeaders {
			for _, id := range others {
				if g.RemoveNode(id) {
					result.PrunedNodes++
				}
			}
		}

		log.V(1).Info("clique merged",
			"leader", leader, "strategy", strategy, "size", len(members))
	}

	return result
}

// findCliques builds the undirected clique graph from same_as edges and
// same_as node properties, then returns its connected components with more
// than one member. Components are sorted by smallest member, members
// sorted ascending, for deterministic processing order.
func findCliques(g *graph.KnowledgeGraph) [][]string {
	adjacency := make(map[string]map[string]bool)
	link := func(a, b string) {
		if a == "" || b == "" || a == b {
			return
		}
		if adjacency[a] == nil {
			adjacency[a] = make(map[string]bool)
		}
		if adjacency[b] == nil {
			adjacency[b] = make(map[string]bool)
		}
		adjacency[a][b] = true
		adjacency[b][a] = true
	}

	for _, edge := range g.Edges() {
		if edge.IsSameAs() {
			link(edge.Subject, edge.Object)
		}
	}
	for _, node := range g.Nodes() {
		for _, other := range node.SameAs() {
			link(node.ID, other)
		}
	}

	visited := make(map[string]bool, len(adjacency))
	ids := make([]string, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var cliques [][]string
	for _, start := range ids {
		if visited[start] {
			continue
		}
		var members []string
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			members = append(members, id)
			neighbors := make([]string, 0, len(adjacency[id]))
			for n := range adjacency[id] {
				neighbors = append(neighbors, n)
			}
			sort.Strings(neighbors)
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
		if len(members) > 1 {
			sort.Strings(members)
			cliques = append(cliques, members)
		}
	}
	return cliques
}

// electLeader tries the three strategies in order: explicit annotation,
// prefix prioritization, alphabetical fallback.
func electLeader(g *graph.KnowledgeGraph, members []string, priorities map[string][]string) (string, string) {
	if len(members) == 0 {
		return "", ""
	}

	// Explicit annotation wins immediately.
	for _, id := range members {
		if node := g.GetNode(id); node != nil {
			if flag, ok := node.Properties[graph.PropCliqueLeader].(bool); ok && flag {
				return id, StrategyLeaderAnnotation
			}
		}
	}

	// Prefix prioritization, keyed by the clique's (assumed-homogeneous)
	// category.
	if prefixes := priorities[cliqueCategory(g, members)]; len(prefixes) > 0 {
		for _, prefix := range prefixes {
			for _, id := range members {
				if strings.HasPrefix(id, prefix+":") || strings.HasPrefix(id, prefix) {
					return id, StrategyPrefixPrioritization
				}
			}
		}
	}

	// Members are sorted, so the first is the lexicographic minimum.
	return members[0], StrategyAlphabeticalSort
}

// cliqueCategory picks the first non-default category carried by any
// member, scanning members in sorted order.
func cliqueCategory(g *graph.KnowledgeGraph, members []string) string {
	for _, id := range members {
		node := g.GetNode(id)
		if node == nil {
			continue
		}
		for _, c := range node.Category {
			if c != graph.DefaultCategory {
				return c
			}
		}
	}
	return graph.DefaultCategory
}

// consolidateEdges re-points every non-same_as edge of the non-leader
// members to the leader, keeping the original endpoints under audit
// properties, and discards same_as edges; that information now lives in
// the leader's same_as list. Returns the number of re-pointed edges.
func consolidateEdges(g *graph.KnowledgeGraph, leader string, others []string) int {
	count := 0
	for _, id := range others {
		// Self-loops show up in both adjacency lists; visit each edge once.
		seen := make(map[string]bool)
		for _, edge := range append(g.GetOutgoing(id), g.GetIncoming(id)...) {
			eid := edge.Subject + "\x00" + edge.Object + "\x00" + edge.Key
			if seen[eid] {
				continue
			}
			seen[eid] = true
			if edge.IsSameAs() {
				g.RemoveEdge(edge.Subject, edge.Object, edge.Key)
				continue
			}

			moved := edge.Clone()
			if moved.Properties == nil {
				moved.Properties = make(map[string]any)
			}
			if moved.Subject == id {
				moved.Properties[graph.PropOriginalSubject] = moved.Subject
				moved.Subject = leader
			}
			if moved.Object == id {
				moved.Properties[graph.PropOriginalObject] = moved.Object
				moved.Object = leader
			}
			moved.Key = graph.GenerateEdgeKey(moved.Subject, moved.Predicate, moved.Object)

			g.RemoveEdge(edge.Subject, edge.Object, edge.Key)
			g.AddEdge(moved)
			count++
		}
	}

	// same_as edges incident only to the leader are implicit now too.
	for _, edge := range append(g.GetOutgoing(leader), g.GetIncoming(leader)...) {
		if edge.IsSameAs() {
			g.RemoveEdge(edge.Subject, edge.Object, edge.Key)
		}
	}
	return count
}
