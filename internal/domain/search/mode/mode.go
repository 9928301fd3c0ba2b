package mode

import "fmt"

// MatchType tells which retrieval methods produced a search hit.
type MatchType string

// Match type constants.
const (
	// Hybrid means both the vector and the keyword query returned the document.
	Hybrid   MatchType = "hybrid"
	Semantic MatchType = "semantic"
	Keyword  MatchType = "keyword"
)

// IsValid checks if the match type is one of the supported values.
func (m MatchType) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}

// Degradation decides what an engine does when embeddings are missing or failing.
type Degradation string

// Degradation constants.
const (
	// Strict fails writes and searches that need an embedding.
	Strict Degradation = "strict"
	// Graceful stores without vectors and searches by keywords only.
	Graceful Degradation = "graceful"
)

// IsValid checks if the degradation mode is one of the supported values.
func (d Degradation) IsValid() bool {
	return d == Strict || d == Graceful
}

// ParseDegradation converts a config string into a Degradation.
func ParseDegradation(s string) (Degradation, error) {
	d := Degradation(s)
	if !d.IsValid() {
		return "", fmt.Errorf("unknown degradation mode %q (want %q or %q)", s, Strict, Graceful)
	}
	return d, nil
}
