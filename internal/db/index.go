package db

import (
	"errors"
	"strconv"
)

// StorageHash is the only document layout the knowledge stores use.
const StorageHash = "HASH"

// DistanceMetric used by KNN queries.
type DistanceMetric string

const (
	// DistanceCosine is cosine distance, 1 - cosine similarity.
	DistanceCosine DistanceMetric = "COSINE"
	// DistanceIP is inner product distance, for pre-normalized vectors.
	DistanceIP DistanceMetric = "IP"
)

// IndexFieldType enumerates the FT field types a collection index needs.
type IndexFieldType int

const (
	// IndexFieldTag is a tag field: token sets and flags.
	IndexFieldTag IndexFieldType = iota
	// IndexFieldVector is an HNSW vector field.
	IndexFieldVector
)

// IndexField describes one SCHEMA entry.
type IndexField struct {
	Name  string
	Alias string // AS alias in FT.CREATE SCHEMA
	Type  IndexFieldType

	// TAG options
	TagSeparator     string
	TagCaseSensitive bool

	// VECTOR options, always HNSW over FLOAT32
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int // max edges per node, server default when zero
	VectorEFConstruct int // build-time candidate list size, server default when zero
}

// IndexDefinition is an FT index over hashes sharing key prefixes.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		key := f.Name
		if f.Alias != "" {
			key = f.Alias
		}
		if seen[key] {
			return errors.New("duplicate field name: " + key)
		}
		seen[key] = true

		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return errors.New("vector field requires positive DIM")
		}
	}
	return nil
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
// Index names and collection names share this alphabet.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
