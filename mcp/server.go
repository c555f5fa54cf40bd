// Package mcp exposes a persisted knowledge graph over the Model Context
// Protocol, so agents can look up entities and neighborhoods without
// loading the graph themselves.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
	"github.com/kgraph-dev/biograph/internal/stats"
)

// GraphStore is the read-only access the server needs. *store.Store
// satisfies it.
type GraphStore interface {
	GetNode(id string) (*record.NodeRecord, error)
	Outgoing(id string) ([]*record.EdgeRecord, error)
	Incoming(id string) ([]*record.EdgeRecord, error)
	Search(query string, limit int) ([]*record.NodeRecord, error)
	Summary() (*stats.Summary, error)
}

// Server serves graph lookups over stdio JSON-RPC.
type Server struct {
	store  GraphStore
	server *mcp.Server
}

// Tool describes one MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource describes one MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a server over the given store.
func NewServer(store GraphStore) *Server {
	s := &Server{store: store}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "biograph",
		Version: "0.1.0",
	}, nil)
	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "kg_node",
			Description: "Look up a node by its CURIE identifier. Returns its categories and properties.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id": {Type: "string", Description: "Node CURIE, e.g. HGNC:11603"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "kg_neighbors",
			Description: "List the edges incident to a node: outgoing, incoming, or both.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id":        {Type: "string", Description: "Node CURIE"},
					"direction": {Type: "string", Description: "outgoing, incoming, or both (default both)"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "kg_search",
			Description: "Search nodes by identifier or name substring.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "kg_summary",
			Description: "Graph totals broken down by category, predicate, and source.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "biograph://overview",
			Name:        "Graph Overview",
			Description: "High-level statistics about the knowledge graph",
			MimeType:    "text/plain",
		},
		{
			URI:         "biograph://schema",
			Name:        "Record Schema",
			Description: "Description of the node and edge record shapes",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "kg_node":
		id, _ := args["id"].(string)
		return s.handleNode(id)
	case "kg_neighbors":
		id, _ := args["id"].(string)
		direction, _ := args["direction"].(string)
		return s.handleNeighbors(id, direction)
	case "kg_search":
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 20
		}
		return s.handleSearch(query, int(limit))
	case "kg_summary":
		return s.handleSummary()
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "biograph://overview":
		return s.handleSummary()
	case "biograph://schema":
		return schemaText(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

func (s *Server) handleNode(id string) (string, error) {
	if id == "" {
		return "No id provided", nil
	}
	node, err := s.store.GetNode(id)
	if err != nil {
		return "", err
	}
	if node == nil {
		return fmt.Sprintf("Node '%s' not found", id), nil
	}
	return formatNode(node), nil
}

func (s *Server) handleNeighbors(id, direction string) (string, error) {
	if id == "" {
		return "No id provided", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Neighbors of %s:\n", id))

	if direction == "" || direction == "both" || direction == "outgoing" {
		edges, err := s.store.Outgoing(id)
		if err != nil {
			return "", err
		}
		sb.WriteString(fmt.Sprintf("\nOutgoing (%d):\n", len(edges)))
		for _, e := range edges {
			sb.WriteString(fmt.Sprintf("- %s -[%s]-> %s\n", e.Subject, e.Predicate(), e.Object))
		}
	}
	if direction == "" || direction == "both" || direction == "incoming" {
		edges, err := s.store.Incoming(id)
		if err != nil {
			return "", err
		}
		sb.WriteString(fmt.Sprintf("\nIncoming (%d):\n", len(edges)))
		for _, e := range edges {
			sb.WriteString(fmt.Sprintf("- %s -[%s]-> %s\n", e.Subject, e.Predicate(), e.Object))
		}
	}
	return sb.String(), nil
}

func (s *Server) handleSearch(query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}
	results, err := s.store.Search(query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d results for '%s':\n\n", len(results), query))
	for i, node := range results {
		name, _ := node.Properties[graph.PropName].(string)
		categories := graph.StringList(node.Properties[graph.PropCategory])
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, node.ID))
		if name != "" {
			sb.WriteString(" (" + name + ")")
		}
		if len(categories) > 0 {
			sb.WriteString(" [" + strings.Join(categories, ", ") + "]")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nNext: use `kg_node` or `kg_neighbors` on a specific identifier.")
	return sb.String(), nil
}

func (s *Server) handleSummary() (string, error) {
	summary, err := s.store.Summary()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Nodes: %d\n", summary.Nodes.Total))
	for _, cat := range summary.Categories() {
		sb.WriteString(fmt.Sprintf("  %s: %d\n", cat, summary.Nodes.ByCategory[cat]))
	}
	sb.WriteString(fmt.Sprintf("Edges: %d\n", summary.Edges.Total))
	for _, p := range summary.Predicates() {
		sb.WriteString(fmt.Sprintf("  %s: %d\n", p, summary.Edges.ByPredicate[p]))
	}
	return sb.String(), nil
}

func formatNode(node *record.NodeRecord) string {
	var sb strings.Builder
	sb.WriteString("## " + node.ID + "\n")
	if name, _ := node.Properties[graph.PropName].(string); name != "" {
		sb.WriteString("Name: " + name + "\n")
	}
	if categories := graph.StringList(node.Properties[graph.PropCategory]); len(categories) > 0 {
		sb.WriteString("Categories: " + strings.Join(categories, ", ") + "\n")
	}
	for key, value := range node.Properties {
		if key == graph.PropName || key == graph.PropCategory || key == graph.PropID {
			continue
		}
		data, _ := json.Marshal(value)
		sb.WriteString(fmt.Sprintf("%s: %s\n", key, data))
	}
	return sb.String()
}

func schemaText() string {
	return `Nodes carry a CURIE id, one or more biolink categories, and an
open property map. Edges carry subject, predicate, object, an optional
relation, a deterministic key, and an open property map. Provenance is
recorded under provided_by on both.`
}

// Run serves the stdio JSON-RPC transport. Blocks until stdin closes or
// the context is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Compact JSON only: the protocol is one message per line.

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "biograph",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		_ = json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
