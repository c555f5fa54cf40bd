package stream

import (
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

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const nodesTSV = "id\tcategory\tname\n" +
	"HGNC:1\tbiolink:Gene\tA1BG\n" +
	"MONDO:1\tbiolink:Disease\tsome disease\n"

const edgesTSV = "subject\tpredicate\tobject\n" +
	"HGNC:1\tbiolink:related_to\tMONDO:1\n"

func TestTransformer_Process(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nodes := writeFixture(t, dir, "in_nodes.tsv", nodesTSV)
	edges := writeFixture(t, dir, "in_edges.tsv", edgesTSV)

	tr := NewTransformer()
	err := tr.Process(InputSpec{Paths: []string{nodes, edges}})
	require.NoError(t, err)

	g := tr.Graph()
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, "A1BG", g.GetNode("HGNC:1").Name())
}

func TestTransformer_TransformToJSONL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nodes := writeFixture(t, dir, "in_nodes.tsv", nodesTSV)
	edges := writeFixture(t, dir, "in_edges.tsv", edgesTSV)
	out := filepath.Join(dir, "out.jsonl")

	tr := NewTransformer()
	err := tr.Transform(
		InputSpec{Paths: []string{nodes, edges}},
		OutputSpec{Format: FormatJSONL, Path: out},
	)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	edgeCount := 0
	for _, line := range lines {
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &obj))
		if _, ok := obj["subject"]; ok {
			edgeCount++
		}
	}
	assert.Equal(t, 1, edgeCount)
}

func TestTransformer_CategoryEdgeFilterBuffered(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nodes := writeFixture(t, dir, "in_nodes.tsv", nodesTSV)
	edges := writeFixture(t, dir, "in_edges.tsv",
		edgesTSV+"MONDO:1\tbiolink:related_to\tHGNC:1\n")

	fs := record.NewFilterSet()
	fs.SetEdgeFilter(record.FilterSubjectCategory, "biolink:Gene")

	tr := NewTransformer()
	// Nodes first so the lookup sees categories when edges arrive.
	err := tr.Process(InputSpec{Paths: []string{nodes, edges}, Filters: fs})
	require.NoError(t, err)

	// The category clause synced onto the node filter, so only the Gene
	// node survives; only the Gene-subject edge passes.
	g := tr.Graph()
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Len(t, g.GetOutgoing("HGNC:1"), 1)
}

func TestTransformer_StreamRejectsCategoryEdgeFilters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nodes := writeFixture(t, dir, "in_nodes.tsv", nodesTSV)

	fs := record.NewFilterSet()
	fs.SetEdgeFilter(record.FilterObjectCategory, "biolink:Disease")

	tr := NewTransformer()
	err := tr.Stream(
		InputSpec{Paths: []string{nodes}, Filters: fs},
		OutputSpec{Format: FormatJSONL, Path: filepath.Join(dir, "out.jsonl")},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "materialized graph")
}

func TestTransformer_Stream(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nodes := writeFixture(t, dir, "in_nodes.tsv", nodesTSV)
	out := filepath.Join(dir, "out.jsonl")

	tr := NewTransformer()
	err := tr.Stream(
		InputSpec{Paths: []string{nodes}},
		OutputSpec{Format: FormatJSONL, Path: out},
	)
	require.NoError(t, err)

	assert.Equal(t, 0, tr.Graph().NodeCount(), "streaming never touches the graph")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)
}

func TestTransformer_SaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nodes := writeFixture(t, dir, "in_nodes.tsv", nodesTSV)
	edges := writeFixture(t, dir, "in_edges.tsv", edgesTSV)
	out := filepath.Join(dir, "out.json")

	first := NewTransformer()
	require.NoError(t, first.Process(InputSpec{Paths: []string{nodes, edges}}))
	require.NoError(t, first.Save(OutputSpec{Format: FormatJSON, Path: out}))

	second := NewTransformer()
	require.NoError(t, second.Process(InputSpec{Format: FormatJSON, Paths: []string{out}}))

	assert.Equal(t, first.Graph().NodeCount(), second.Graph().NodeCount())
	assert.Equal(t, first.Graph().EdgeCount(), second.Graph().EdgeCount())
}

func TestTransformer_WithGraph(t *testing.T) {
	t.Parallel()

	g := graph.NewKnowledgeGraph()
	g.AddNode(graph.NewNode("HGNC:1"))

	tr := NewTransformer(WithGraph(g))
	assert.Same(t, g, tr.Graph())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("TSV")
	require.NoError(t, err)
	assert.Equal(t, FormatTSV, f)

	_, err = ParseFormat("parquet")
	assert.Error(t, err, "unknown tags fail at construction time")
}

func TestInferFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]Format{
		"a/nodes.tsv":       FormatTSV,
		"b.csv":             FormatCSV,
		"c.json":            FormatJSON,
		"d.jsonl.gz":        FormatJSONL,
		"e.ndjson":          FormatJSONL,
		"f.nt":              FormatNTriples,
		"deep/dir/g.tsv.gz": FormatTSV,
	}
	for path, want := range cases {
		got, err := InferFormat(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := InferFormat("mystery.xyz")
	assert.Error(t, err)
}

func TestInferInputFormat_MixedIsFatal(t *testing.T) {
	t.Parallel()

	_, err := InferInputFormat([]string{"a.tsv", "b.jsonl"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed input formats")

	f, err := InferInputFormat([]string{"a.tsv", "b.tsv.gz"})
	require.NoError(t, err)
	assert.Equal(t, FormatTSV, f)
}

func TestResolveSink_TRAPIHasNoSink(t *testing.T) {
	t.Parallel()

	_, err := resolveSink(OutputSpec{Format: FormatTRAPI, Path: "out"})
	assert.Error(t, err)
}
