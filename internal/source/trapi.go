package source

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// TRAPISource reads a TRAPI response or message document. The knowledge
// graph lives under "knowledge_graph" (or at the top level) as maps keyed
// by node identifier and edge key; those maps decode wholesale, then
// replay as a record stream.
type TRAPISource struct{}

// NewTRAPISource creates a TRAPI source.
func NewTRAPISource() *TRAPISource { return &TRAPISource{} }

type trapiDocument struct {
	Message *trapiMessage `json:"message"`
	trapiMessage
}

type trapiMessage struct {
	KnowledgeGraph *trapiKnowledgeGraph `json:"knowledge_graph"`
}

type trapiKnowledgeGraph struct {
	Nodes map[string]map[string]any `json:"nodes"`
	Edges map[string]map[string]any `json:"edges"`
}

// Parse implements Source.
func (s *TRAPISource) Parse(path string, opts Options) (RecordReader, error) {
	r, closer, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()

	var doc trapiDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	kg := doc.KnowledgeGraph
	if doc.Message != nil && doc.Message.KnowledgeGraph != nil {
		kg = doc.Message.KnowledgeGraph
	}
	if kg == nil {
		return nil, fmt.Errorf("%s: no knowledge_graph found", path)
	}

	nodeIDs := make([]string, 0, len(kg.Nodes))
	for id := range kg.Nodes {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	edgeKeys := make([]string, 0, len(kg.Edges))
	for key := range kg.Edges {
		edgeKeys = append(edgeKeys, key)
	}
	sort.Strings(edgeKeys)

	records := make([]record.Record, 0, len(nodeIDs)+len(edgeKeys))
	for _, id := range nodeIDs {
		props := kg.Nodes[id]
		if props == nil {
			props = make(map[string]any)
		}
		// TRAPI uses "categories"; fold into the canonical key.
		if cats, ok := props["categories"]; ok {
			props[graph.PropCategory] = cats
			delete(props, "categories")
		}
		records = append(records, &record.NodeRecord{ID: id, Properties: props})
	}
	for _, key := range edgeKeys {
		props := kg.Edges[key]
		if props == nil {
			props = make(map[string]any)
		}
		subject, _ := props[graph.PropSubject].(string)
		object, _ := props[graph.PropObject].(string)
		delete(props, graph.PropSubject)
		delete(props, graph.PropObject)
		records = append(records, &record.EdgeRecord{
			Subject:    subject,
			Object:     object,
			Key:        key,
			Properties: props,
		})
	}

	return Wrap(&sliceReader{records: records}, path, opts), nil
}
