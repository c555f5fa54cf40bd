// Package curie maps between CURIEs and IRIs for the RDF serializations.
//
// The table is deliberately small: biolink terms map to the biolink vocab
// namespace, everything else round-trips through identifiers.org. Full
// prefix-map support belongs to an ontology client, not this toolkit.
package curie

import "strings"

const (
	biolinkIRI     = "https://w3id.org/biolink/vocab/"
	identifiersIRI = "https://identifiers.org/"

	// RDFType is the rdf:type predicate IRI.
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)

// ToIRI expands a CURIE into an IRI. Strings that are already IRIs pass
// through unchanged.
func ToIRI(curie string) string {
	if strings.HasPrefix(curie, "http://") || strings.HasPrefix(curie, "https://") {
		return curie
	}
	if rest, ok := strings.CutPrefix(curie, "biolink:"); ok {
		return biolinkIRI + rest
	}
	return identifiersIRI + curie
}

// FromIRI contracts an IRI back into a CURIE. Unrecognized namespaces pass
// through unchanged.
func FromIRI(iri string) string {
	if rest, ok := strings.CutPrefix(iri, biolinkIRI); ok {
		return "biolink:" + rest
	}
	if rest, ok := strings.CutPrefix(iri, identifiersIRI); ok {
		return rest
	}
	return iri
}

// PropertyIRI expands a plain property name ("name", "description") into
// the biolink vocab namespace.
func PropertyIRI(name string) string {
	return biolinkIRI + name
}

// PropertyFromIRI reverses PropertyIRI; returns "" when the IRI is not a
// biolink vocab term.
func PropertyFromIRI(iri string) string {
	if rest, ok := strings.CutPrefix(iri, biolinkIRI); ok {
		return rest
	}
	return ""
}
