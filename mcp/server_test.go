package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
	"github.com/kgraph-dev/biograph/internal/stats"
)

// fakeStore serves a two-node, one-edge graph from memory.
type fakeStore struct{}

func (fakeStore) GetNode(id string) (*record.NodeRecord, error) {
	if id != "HGNC:1" {
		return nil, nil
	}
	return &record.NodeRecord{
		ID: "HGNC:1",
		Properties: map[string]any{
			graph.PropName:     "A1BG",
			graph.PropCategory: []string{"biolink:Gene"},
		},
	}, nil
}

func (fakeStore) Outgoing(id string) ([]*record.EdgeRecord, error) {
	if id != "HGNC:1" {
		return nil, nil
	}
	return []*record.EdgeRecord{{
		Subject:    "HGNC:1",
		Object:     "MONDO:1",
		Key:        "k1",
		Properties: map[string]any{graph.PropPredicate: "biolink:related_to"},
	}}, nil
}

func (fakeStore) Incoming(string) ([]*record.EdgeRecord, error) { return nil, nil }

func (fakeStore) Search(query string, limit int) ([]*record.NodeRecord, error) {
	if strings.Contains("a1bg", strings.ToLower(query)) {
		n, _ := fakeStore{}.GetNode("HGNC:1")
		return []*record.NodeRecord{n}, nil
	}
	return nil, nil
}

func (fakeStore) Summary() (*stats.Summary, error) {
	return &stats.Summary{
		Nodes: stats.NodeStats{Total: 2, ByCategory: map[string]int{"biolink:Gene": 1}},
		Edges: stats.EdgeStats{Total: 1, ByPredicate: map[string]int{"biolink:related_to": 1}},
	}, nil
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	tools := NewServer(fakeStore{}).ListTools()

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
		assert.NotNil(t, tool.InputSchema)
	}
	assert.Equal(t, []string{"kg_node", "kg_neighbors", "kg_search", "kg_summary"}, names)
}

func TestServer_CallTool(t *testing.T) {
	t.Parallel()

	s := NewServer(fakeStore{})
	ctx := context.Background()

	t.Run("Node", func(t *testing.T) {
		t.Parallel()
		out, err := s.CallTool(ctx, "kg_node", map[string]any{"id": "HGNC:1"})
		require.NoError(t, err)
		assert.Contains(t, out, "A1BG")
		assert.Contains(t, out, "biolink:Gene")
	})

	t.Run("NodeMissing", func(t *testing.T) {
		t.Parallel()
		out, err := s.CallTool(ctx, "kg_node", map[string]any{"id": "HGNC:404"})
		require.NoError(t, err)
		assert.Contains(t, out, "not found")
	})

	t.Run("Neighbors", func(t *testing.T) {
		t.Parallel()
		out, err := s.CallTool(ctx, "kg_neighbors", map[string]any{"id": "HGNC:1"})
		require.NoError(t, err)
		assert.Contains(t, out, "HGNC:1 -[biolink:related_to]-> MONDO:1")
	})

	t.Run("Search", func(t *testing.T) {
		t.Parallel()
		out, err := s.CallTool(ctx, "kg_search", map[string]any{"query": "a1bg"})
		require.NoError(t, err)
		assert.Contains(t, out, "HGNC:1")
	})

	t.Run("Summary", func(t *testing.T) {
		t.Parallel()
		out, err := s.CallTool(ctx, "kg_summary", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "Nodes: 2")
		assert.Contains(t, out, "biolink:related_to: 1")
	})

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()
		_, err := s.CallTool(ctx, "kg_bogus", nil)
		assert.Error(t, err)
	})
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	requests := `{"jsonrpc":"2.0","id":1,"method":"initialize"}
{"jsonrpc":"2.0","id":2,"method":"tools/list"}
{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"kg_node","arguments":{"id":"HGNC:1"}}}
{"jsonrpc":"2.0","id":4,"method":"nope"}
`

	var out bytes.Buffer
	err := NewServer(fakeStore{}).Run(context.Background(), strings.NewReader(requests), &out)
	require.NoError(t, err, "EOF on stdin is a clean shutdown")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var initResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &initResp))
	result := initResp["result"].(map[string]any)
	assert.Equal(t, "biograph", result["serverInfo"].(map[string]any)["name"])

	var callResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &callResp))
	assert.Contains(t, lines[2], "A1BG")

	var errResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &errResp))
	assert.NotNil(t, errResp["error"], "unknown method returns a JSON-RPC error")
}

func TestServer_ReadResource(t *testing.T) {
	t.Parallel()

	s := NewServer(fakeStore{})

	overview, err := s.ReadResource(context.Background(), "biograph://overview")
	require.NoError(t, err)
	assert.Contains(t, overview, "Nodes: 2")

	schema, err := s.ReadResource(context.Background(), "biograph://schema")
	require.NoError(t, err)
	assert.Contains(t, schema, "CURIE")

	_, err = s.ReadResource(context.Background(), "biograph://bogus")
	assert.Error(t, err)
}
