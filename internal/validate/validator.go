// Package validate provides schema validation against the biolink model
// and the error report collected while streaming records.
//
// The ontology traversal behind category/predicate validity is an external
// collaborator; this package pins down the contract the pipeline consumes
// and ships a syntactic default good enough for CURIE-shaped terms.
package validate

import (
	"regexp"

	"github.com/kgraph-dev/biograph/internal/graph"
)

// Validator is the ontology collaborator contract. The normalization steps
// call it to decide whether to keep a category or predicate as-is or fall
// back to the defaults.
type Validator interface {
	IsValidCategory(category string) bool
	IsValidPredicate(predicate string) bool
}

var (
	categoryPattern  = regexp.MustCompile(`^biolink:[A-Z][A-Za-z0-9]*$`)
	predicatePattern = regexp.MustCompile(`^biolink:[a-z][a-z0-9_]*$`)
)

// BiolinkValidator is a syntactic validator for biolink CURIEs: categories
// are UpperCamel class CURIEs, predicates snake_case slot CURIEs. It stands
// in for a full ontology client wherever one is not configured.
type BiolinkValidator struct{}

// NewBiolinkValidator creates the default validator.
func NewBiolinkValidator() *BiolinkValidator {
	return &BiolinkValidator{}
}

// IsValidCategory implements Validator.
func (v *BiolinkValidator) IsValidCategory(category string) bool {
	return categoryPattern.MatchString(category)
}

// IsValidPredicate implements Validator.
func (v *BiolinkValidator) IsValidPredicate(predicate string) bool {
	return predicatePattern.MatchString(predicate)
}

// NormalizeCategories keeps valid categories and replaces the rest with the
// default. The result is never empty.
func NormalizeCategories(categories []string, v Validator) []string {
	out := make([]string, 0, len(categories))
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if !v.IsValidCategory(c) {
			c = graph.DefaultCategory
		}
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	if len(out) == 0 {
		out = append(out, graph.DefaultCategory)
	}
	return out
}

// NormalizePredicate keeps a valid predicate and falls back otherwise.
func NormalizePredicate(predicate string, v Validator) string {
	if v.IsValidPredicate(predicate) {
		return predicate
	}
	return graph.DefaultPredicate
}
