package docstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/knowdex/internal/db"
	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
	"github.com/kailas-cloud/knowdex/internal/domain/search/tokenize"
)

// Document hash fields.
const (
	fieldPayload      = "__payload"
	fieldText         = "__text"
	fieldTokens       = "__tokens"
	fieldHasEmbedding = "__has_embedding"
	fieldVector       = "__vector"
	vectorAlias       = "vector"

	tokenSeparator = ","
)

// Collection metadata fields.
const (
	metaName      = "name"
	metaVectorDim = "vector_dim"
	metaCreatedAt = "created_at"
)

func buildIndex(name, prefix string, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(name).
		Prefix(prefix).
		TagWithOpts(fieldTokens, tokenSeparator, false).
		Tag(fieldHasEmbedding).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).As(vectorAlias).
		Build()
}

func collectionToHash(name string, dim int, now time.Time) map[string]string {
	return map[string]string{
		metaName:      name,
		metaVectorDim: strconv.Itoa(dim),
		metaCreatedAt: strconv.FormatInt(now.UnixMilli(), 10),
	}
}

// toHash flattens a document. Tokens are unfiltered so any query token can hit.
func toHash(doc document.Stored) (map[string]string, error) {
	data, err := json.Marshal(doc.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal %s: %w", domain.ErrInvalidPayload, doc.ID, err)
	}
	text := doc.SearchText()

	fields := map[string]string{
		fieldPayload:      string(data),
		fieldText:         text,
		fieldTokens:       strings.Join(tokenize.Tokens(text, nil), tokenSeparator),
		fieldHasEmbedding: strconv.FormatBool(doc.Vector != nil),
	}
	if doc.Vector != nil {
		fields[fieldVector] = vectorToBytes(doc.Vector)
	}
	return fields, nil
}

func fromHash(id string, m map[string]string) (document.Stored, error) {
	payload, err := decodePayload(m[fieldPayload])
	if err != nil {
		return document.Stored{}, fmt.Errorf("document %s: %w", id, err)
	}
	doc := document.Stored{ID: id, Payload: payload}
	if raw, ok := m[fieldVector]; ok && raw != "" {
		vec, err := bytesToVector(raw)
		if err != nil {
			return document.Stored{}, fmt.Errorf("document %s: %w", id, err)
		}
		doc.Vector = vec
	}
	return doc, nil
}

func decodePayload(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: missing payload", domain.ErrInvalidPayload)
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPayload, err)
	}
	return p, nil
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) ([]float32, error) {
	if len(s)%4 != 0 {
		return nil, fmt.Errorf("%w: vector has %d bytes", domain.ErrInvalidPayload, len(s))
	}
	v := make([]float32, len(s)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return v, nil
}
