package document

import "fmt"

// Reserved payload keys added by the engine on every write.
const (
	SearchTextKey   = "searchText"
	HasEmbeddingKey = "hasEmbedding"
)

// Stored is a document as written to and read from a document store.
// Vector is nil when the document was stored without an embedding.
type Stored struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// New builds a Stored document and stamps the derived payload fields.
// The base payload is copied, never mutated.
func New(id string, vector []float32, base map[string]any, searchText string) Stored {
	payload := make(map[string]any, len(base)+2)
	for k, v := range base {
		payload[k] = v
	}
	payload[SearchTextKey] = searchText
	payload[HasEmbeddingKey] = vector != nil
	return Stored{ID: id, Vector: vector, Payload: payload}
}

// HasEmbedding reports the stored hasEmbedding flag.
func (d *Stored) HasEmbedding() bool {
	v, _ := Bool(d.Payload, HasEmbeddingKey)
	return v
}

// SearchText returns the stored search text.
func (d *Stored) SearchText() string {
	s, _ := String(d.Payload, SearchTextKey)
	return s
}

// Validate checks that the flag and the vector agree.
func (d *Stored) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if d.HasEmbedding() != (d.Vector != nil) {
		return fmt.Errorf("document %s: hasEmbedding=%t but vector present=%t",
			d.ID, d.HasEmbedding(), d.Vector != nil)
	}
	return nil
}

// Scored is a store-level search hit. Score is normalized to [0, 1].
type Scored struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Info is collection metadata reported by a store.
type Info struct {
	Count     int
	VectorDim int
}
