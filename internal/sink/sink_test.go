package sink

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

func geneRecord() *record.NodeRecord {
	return &record.NodeRecord{
		ID: "HGNC:1",
		Properties: map[string]any{
			graph.PropCategory: []string{"biolink:Gene"},
			graph.PropName:     "A1BG",
		},
	}
}

func interactionRecord() *record.EdgeRecord {
	return &record.EdgeRecord{
		Subject: "HGNC:1",
		Object:  "HGNC:2",
		Key:     "abc123",
		Properties: map[string]any{
			graph.PropPredicate: "biolink:interacts_with",
			"publications":      []string{"PMID:1", "PMID:2"},
		},
	}
}

func TestTabularSink(t *testing.T) {
	t.Parallel()

	t.Run("WritesBothFiles", func(t *testing.T) {
		t.Parallel()
		base := filepath.Join(t.TempDir(), "out")
		s := NewTSVSink(base, false)

		require.NoError(t, s.WriteNode(geneRecord()))
		require.NoError(t, s.WriteEdge(interactionRecord()))
		require.NoError(t, s.Finalize())

		nodeData, err := os.ReadFile(base + "_nodes.tsv")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(nodeData)), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "id\tcategory\tname", lines[0], "core columns lead")
		assert.Equal(t, "HGNC:1\tbiolink:Gene\tA1BG", lines[1])

		edgeData, err := os.ReadFile(base + "_edges.tsv")
		require.NoError(t, err)
		elines := strings.Split(strings.TrimSpace(string(edgeData)), "\n")
		require.Len(t, elines, 2)
		assert.Equal(t, "subject\tpredicate\tobject\tkey\tpublications", elines[0])
		assert.Equal(t, "HGNC:1\tbiolink:interacts_with\tHGNC:2\tabc123\tPMID:1|PMID:2",
			elines[1], "lists join with the pipe separator")
	})

	t.Run("SparseColumns", func(t *testing.T) {
		t.Parallel()
		base := filepath.Join(t.TempDir(), "out")
		s := NewTSVSink(base, false)

		require.NoError(t, s.WriteNode(geneRecord()))
		require.NoError(t, s.WriteNode(&record.NodeRecord{
			ID:         "HGNC:2",
			Properties: map[string]any{"description": "only here"},
		}))
		require.NoError(t, s.Finalize())

		data, err := os.ReadFile(base + "_nodes.tsv")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Equal(t, "id\tcategory\tname\tdescription", lines[0],
			"union of observed columns, extras sorted after core")
		assert.Equal(t, "HGNC:2\t\t\tonly here", lines[2], "absent cells stay empty")
	})

	t.Run("Compressed", func(t *testing.T) {
		t.Parallel()
		base := filepath.Join(t.TempDir(), "out")
		s := NewTSVSink(base, true)

		require.NoError(t, s.WriteNode(geneRecord()))
		require.NoError(t, s.Finalize())

		f, err := os.Open(base + "_nodes.tsv.gz")
		require.NoError(t, err)
		defer f.Close()
		zr, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer zr.Close()
	})

	t.Run("FinalizeIdempotent", func(t *testing.T) {
		t.Parallel()
		base := filepath.Join(t.TempDir(), "out")
		s := NewTSVSink(base, false)
		require.NoError(t, s.Finalize())
		require.NoError(t, s.Finalize())
	})
}

func TestJSONSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	s, err := NewJSONSink(path)
	require.NoError(t, err)

	// Interleaved writes: the edge arrives before the second node.
	require.NoError(t, s.WriteNode(geneRecord()))
	require.NoError(t, s.WriteEdge(interactionRecord()))
	require.NoError(t, s.WriteNode(&record.NodeRecord{ID: "HGNC:2", Properties: map[string]any{}}))
	require.NoError(t, s.Finalize())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(data, &doc), "output is one valid document")
	assert.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "HGNC:1", doc.Edges[0]["subject"])
	assert.Equal(t, "abc123", doc.Edges[0]["key"])
}

func TestJSONLSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.jsonl")
	s, err := NewJSONLSink(path)
	require.NoError(t, err)

	require.NoError(t, s.WriteNode(geneRecord()))
	require.NoError(t, s.WriteEdge(interactionRecord()))
	require.NoError(t, s.Finalize())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var node map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &node))
	assert.Equal(t, "HGNC:1", node["id"])
	assert.NotContains(t, node, "subject")

	var edge map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &edge))
	assert.Equal(t, "HGNC:1", edge["subject"])
}

func TestNTriplesSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.nt")
	s, err := NewNTriplesSink(path)
	require.NoError(t, err)

	require.NoError(t, s.WriteNode(geneRecord()))
	require.NoError(t, s.WriteEdge(interactionRecord()))
	require.NoError(t, s.Finalize())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text,
		"<https://identifiers.org/HGNC:1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <https://w3id.org/biolink/vocab/Gene> .")
	assert.Contains(t, text,
		`<https://identifiers.org/HGNC:1> <https://w3id.org/biolink/vocab/name> "A1BG" .`)
	assert.Contains(t, text,
		"<https://identifiers.org/HGNC:1> <https://w3id.org/biolink/vocab/interacts_with> <https://identifiers.org/HGNC:2> .")
	assert.NotContains(t, text, "abc123", "edge keys are not serialized")
}

func TestGraphSink(t *testing.T) {
	t.Parallel()

	s := NewGraphSink(nil)
	require.NoError(t, s.WriteNode(geneRecord()))
	require.NoError(t, s.WriteEdge(interactionRecord()))
	require.NoError(t, s.Finalize())

	assert.Equal(t, 1, s.Graph.NodeCount())
	assert.Equal(t, 1, s.Graph.EdgeCount())
	node := s.Graph.GetNode("HGNC:1")
	require.NotNil(t, node)
	assert.Equal(t, []string{"biolink:Gene"}, node.Category)
}
