package source

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kgraph-dev/biograph/internal/curie"
	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/record"
)

// NTriplesSource reads RDF N-Triples. Triples about one subject may be
// scattered across the file, so the whole input is folded into node and
// edge records before the stream starts: rdf:type triples become
// categories, literal-object triples become node properties, IRI-object
// triples become edges. Subjects and objects that only ever appear on
// edges still get an implicit node record, so counts survive a round trip.
type NTriplesSource struct{}

// NewNTriplesSource creates an N-Triples source.
func NewNTriplesSource() *NTriplesSource { return &NTriplesSource{} }

// Parse implements Source.
func (s *NTriplesSource) Parse(path string, opts Options) (RecordReader, error) {
	r, closer, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()

	nodes := make(map[string]*record.NodeRecord)
	var nodeOrder []string
	var edges []*record.EdgeRecord

	ensureNode := func(id string) *record.NodeRecord {
		if n, ok := nodes[id]; ok {
			return n
		}
		n := &record.NodeRecord{ID: id, Properties: make(map[string]any)}
		nodes[id] = n
		nodeOrder = append(nodeOrder, id)
		return n
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		subj, pred, obj, literal, err := parseTriple(text)
		if err != nil {
			if opts.Report != nil {
				opts.Report.AddNodeError("", fmt.Sprintf("%s:%d: %v", path, line, err))
			}
			continue
		}

		subjectID := curie.FromIRI(subj)
		switch {
		case pred == curie.RDFType:
			n := ensureNode(subjectID)
			cats := graph.StringList(n.Properties[graph.PropCategory])
			n.Properties[graph.PropCategory] = append(cats, curie.FromIRI(obj))
		case literal:
			prop := curie.PropertyFromIRI(pred)
			if prop == "" {
				prop = curie.FromIRI(pred)
			}
			n := ensureNode(subjectID)
			appendProperty(n.Properties, prop, obj)
		default:
			objectID := curie.FromIRI(obj)
			ensureNode(subjectID)
			ensureNode(objectID)
			edges = append(edges, &record.EdgeRecord{
				Subject: subjectID,
				Object:  objectID,
				Properties: map[string]any{
					graph.PropPredicate: curie.FromIRI(pred),
				},
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.Strings(nodeOrder)
	records := make([]record.Record, 0, len(nodeOrder)+len(edges))
	for _, id := range nodeOrder {
		records = append(records, nodes[id])
	}
	for _, e := range edges {
		records = append(records, e)
	}

	return Wrap(&sliceReader{records: records}, path, opts), nil
}

// appendProperty sets a property, promoting to a list when the same
// predicate occurs more than once for a subject.
func appendProperty(props map[string]any, key, value string) {
	existing, ok := props[key]
	if !ok {
		props[key] = value
		return
	}
	props[key] = append(graph.StringList(existing), value)
}

// parseTriple splits one N-Triples line into subject, predicate, and
// object. literal reports whether the object was a quoted literal.
func parseTriple(line string) (subj, pred, obj string, literal bool, err error) {
	rest := line

	subj, rest, err = parseIRI(rest)
	if err != nil {
		return "", "", "", false, fmt.Errorf("subject: %w", err)
	}
	pred, rest, err = parseIRI(rest)
	if err != nil {
		return "", "", "", false, fmt.Errorf("predicate: %w", err)
	}

	rest = strings.TrimSpace(rest)
	switch {
	case strings.HasPrefix(rest, "<"):
		obj, _, err = parseIRI(rest)
		if err != nil {
			return "", "", "", false, fmt.Errorf("object: %w", err)
		}
		return subj, pred, obj, false, nil
	case strings.HasPrefix(rest, `"`):
		end := strings.LastIndex(rest, `"`)
		if end <= 0 {
			return "", "", "", false, fmt.Errorf("unterminated literal")
		}
		unquoted, uerr := strconv.Unquote(rest[:end+1])
		if uerr != nil {
			// Fall back to the raw span for literals Go's unquoter rejects
			// (language tags are stripped by the LastIndex above already).
			unquoted = rest[1:end]
		}
		return subj, pred, unquoted, true, nil
	default:
		return "", "", "", false, fmt.Errorf("unrecognized object term %q", rest)
	}
}

func parseIRI(s string) (iri, rest string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return "", "", fmt.Errorf("expected IRI, got %q", s)
	}
	end := strings.Index(s, ">")
	if end < 0 {
		return "", "", fmt.Errorf("unterminated IRI")
	}
	return s[1:end], s[end+1:], nil
}
