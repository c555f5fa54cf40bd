package graph

import (
	"sync"
)

// KnowledgeGraph is an in-memory directed multi-graph of biomedical
// entities.
//
// Nodes are keyed by identifier; edges by the (subject, object, key)
// triple, so parallel edges between the same pair of nodes coexist as long
// as their keys differ. Removing a node cascades to every edge where the
// node appears as subject or object.
//
// Adjacency and category indexes are kept in sync by the add/remove
// helpers so lookups cost O(result) rather than O(graph).
type KnowledgeGraph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string]*Edge // keyed by edgeID(subject, object, key)

	byCategory map[string]map[string]*Node
	outgoing   map[string]map[string]*Edge
	incoming   map[string]map[string]*Edge
}

// NewKnowledgeGraph creates a new empty knowledge graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		nodes:      make(map[string]*Node),
		edges:      make(map[string]*Edge),
		byCategory: make(map[string]map[string]*Node),
		outgoing:   make(map[string]map[string]*Edge),
		incoming:   make(map[string]map[string]*Edge),
	}
}

func edgeID(subject, object, key string) string {
	return subject + "\x00" + object + "\x00" + key
}

// NodeCount returns the number of nodes without list materialization.
func (g *KnowledgeGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges without list materialization.
func (g *KnowledgeGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// AddNode adds a node, replacing any existing node with the same ID.
// An empty category set falls back to DefaultCategory.
func (g *KnowledgeGraph) AddNode(node *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(node.Category) == 0 {
		node.Category = []string{DefaultCategory}
	}

	if old, ok := g.nodes[node.ID]; ok {
		for _, c := range old.Category {
			delete(g.byCategory[c], old.ID)
		}
	}

	g.nodes[node.ID] = node
	for _, c := range node.Category {
		if g.byCategory[c] == nil {
			g.byCategory[c] = make(map[string]*Node)
		}
		g.byCategory[c][node.ID] = node
	}
}

// GetNode returns the node with the given ID, or nil if it does not exist.
func (g *KnowledgeGraph) GetNode(nodeID string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[nodeID]
}

// HasNode reports whether a node with the given ID exists.
func (g *KnowledgeGraph) HasNode(nodeID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[nodeID]
	return ok
}

// RemoveNode removes a node and cascade-deletes all edges that reference it.
// Returns true if the node existed and was removed.
func (g *KnowledgeGraph) RemoveNode(nodeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[nodeID]
	if !ok {
		return false
	}

	delete(g.nodes, nodeID)
	for _, c := range node.Category {
		delete(g.byCategory[c], nodeID)
	}

	g.cascadeEdgesForNode(nodeID)
	return true
}

// AddEdge adds an edge, replacing any existing edge with the same
// (subject, object, key) triple. An empty key is generated from the triple.
func (g *KnowledgeGraph) AddEdge(edge *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if edge.Key == "" {
		edge.Key = GenerateEdgeKey(edge.Subject, edge.Predicate, edge.Object)
	}

	id := edgeID(edge.Subject, edge.Object, edge.Key)
	if old, ok := g.edges[id]; ok {
		delete(g.outgoing[old.Subject], id)
		delete(g.incoming[old.Object], id)
	}

	g.edges[id] = edge

	if g.outgoing[edge.Subject] == nil {
		g.outgoing[edge.Subject] = make(map[string]*Edge)
	}
	g.outgoing[edge.Subject][id] = edge

	if g.incoming[edge.Object] == nil {
		g.incoming[edge.Object] = make(map[string]*Edge)
	}
	g.incoming[edge.Object][id] = edge
}

// GetEdge returns the edge with the given triple, or nil if it does not exist.
func (g *KnowledgeGraph) GetEdge(subject, object, key string) *Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[edgeID(subject, object, key)]
}

// RemoveEdge removes the edge with the given triple.
// Returns true if the edge existed and was removed.
func (g *KnowledgeGraph) RemoveEdge(subject, object, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := edgeID(subject, object, key)
	edge, ok := g.edges[id]
	if !ok {
		return false
	}

	delete(g.edges, id)
	delete(g.outgoing[edge.Subject], id)
	delete(g.incoming[edge.Object], id)
	return true
}

// Nodes returns all nodes. The slice is freshly allocated; the nodes are not.
func (g *KnowledgeGraph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		result = append(result, node)
	}
	return result
}

// Edges returns all edges. The slice is freshly allocated; the edges are not.
func (g *KnowledgeGraph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]*Edge, 0, len(g.edges))
	for _, edge := range g.edges {
		result = append(result, edge)
	}
	return result
}

// GetNodesByCategory returns all nodes carrying the given category.
func (g *KnowledgeGraph) GetNodesByCategory(category string) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes, ok := g.byCategory[category]
	if !ok {
		return nil
	}

	result := make([]*Node, 0, len(nodes))
	for _, node := range nodes {
		result = append(result, node)
	}
	return result
}

// GetOutgoing returns edges whose subject is the given node ID.
func (g *KnowledgeGraph) GetOutgoing(nodeID string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges, ok := g.outgoing[nodeID]
	if !ok {
		return nil
	}

	result := make([]*Edge, 0, len(edges))
	for _, edge := range edges {
		result = append(result, edge)
	}
	return result
}

// GetIncoming returns edges whose object is the given node ID.
func (g *KnowledgeGraph) GetIncoming(nodeID string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges, ok := g.incoming[nodeID]
	if !ok {
		return nil
	}

	result := make([]*Edge, 0, len(edges))
	for _, edge := range edges {
		result = append(result, edge)
	}
	return result
}

// Degree returns the number of incident edges (incoming plus outgoing).
func (g *KnowledgeGraph) Degree(nodeID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.outgoing[nodeID]) + len(g.incoming[nodeID])
}

// cascadeEdgesForNode removes all edges where the node is subject or object.
// Must be called with the write lock held.
func (g *KnowledgeGraph) cascadeEdgesForNode(nodeID string) {
	if out, ok := g.outgoing[nodeID]; ok {
		for id, edge := range out {
			delete(g.edges, id)
			delete(g.incoming[edge.Object], id)
		}
		delete(g.outgoing, nodeID)
	}

	if in, ok := g.incoming[nodeID]; ok {
		for id, edge := range in {
			delete(g.edges, id)
			delete(g.outgoing[edge.Subject], id)
		}
		delete(g.incoming, nodeID)
	}
}
