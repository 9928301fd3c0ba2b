package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// Field is the vector field (or its alias) to search.
	Field string
	// Filter is an optional FT.SEARCH pre-filter, e.g. "@kind:{a}".
	Filter       string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TagQuery matches documents whose TAG field holds any of Tags.
type TagQuery struct {
	IndexName    string
	Field        string
	Tags         []string
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
