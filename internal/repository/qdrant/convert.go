package qdrant

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/knowdex/internal/domain"
	"github.com/kailas-cloud/knowdex/internal/domain/document"
)

// Payload keys owned by the store; stripped before documents are returned.
const (
	payloadTokens = "__tokens"
	payloadID     = "__id"
)

// idNamespace maps ids that are not UUIDs onto point UUIDs.
var idNamespace = uuid.MustParse("0b6f3a52-41d8-4d0e-9c3e-5f1a7d2c8e94")

// pointID returns the Qdrant id for a document id. Qdrant only accepts UUIDs
// and integers, so other ids are hashed and kept verbatim in the payload.
func pointID(id string) (*qdrant.PointId, bool) {
	if u, err := uuid.Parse(id); err == nil {
		return qdrant.NewID(u.String()), false
	}
	return qdrant.NewID(uuid.NewSHA1(idNamespace, []byte(id)).String()), true
}

func toPoint(doc document.Stored, vectorName string, tokens []string) (*qdrant.PointStruct, error) {
	payload, err := document.Normalize(doc.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidPayload, doc.ID, err)
	}
	list := make([]any, len(tokens))
	for i, t := range tokens {
		list[i] = t
	}
	payload[payloadTokens] = list

	id, hashed := pointID(doc.ID)
	if hashed {
		payload[payloadID] = doc.ID
	}

	values, err := qdrant.TryValueMap(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidPayload, doc.ID, err)
	}

	vectors := map[string]*qdrant.Vector{}
	if doc.Vector != nil {
		vectors[vectorName] = qdrant.NewVector(doc.Vector...)
	}

	return &qdrant.PointStruct{
		Id:      id,
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: values,
	}, nil
}

func fromRetrieved(p *qdrant.RetrievedPoint, vectorName string) document.Stored {
	payload := fromValues(p.GetPayload())
	return document.Stored{
		ID:      documentID(p.GetId(), payload),
		Vector:  vectorOf(p.GetVectors(), vectorName),
		Payload: stripInternal(payload),
	}
}

func fromScored(p *qdrant.ScoredPoint) document.Scored {
	payload := fromValues(p.GetPayload())
	return document.Scored{
		ID:      documentID(p.GetId(), payload),
		Score:   float64(p.GetScore()),
		Payload: stripInternal(payload),
	}
}

func documentID(id *qdrant.PointId, payload map[string]any) string {
	if orig, ok := payload[payloadID].(string); ok {
		return orig
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprint(id.GetNum())
}

func stripInternal(p map[string]any) map[string]any {
	delete(p, payloadTokens)
	delete(p, payloadID)
	return p
}

func vectorOf(v *qdrant.VectorsOutput, name string) []float32 {
	out := v.GetVectors().GetVectors()[name]
	if out == nil {
		return nil
	}
	if d := out.GetDense().GetData(); len(d) > 0 {
		return d
	}
	if d := out.GetData(); len(d) > 0 { //nolint:staticcheck // servers before 1.14 fill data only
		return d
	}
	return nil
}

func fromValues(m map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromValue(v)
	}
	return out
}

// fromValue mirrors encoding/json shapes: numbers become float64.
func fromValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_IntegerValue:
		return float64(k.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_ListValue:
		items := k.ListValue.GetValues()
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = fromValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return fromValues(k.StructValue.GetFields())
	default:
		return nil
	}
}
