package domain

import "errors"

var (
	// ErrNotInitialized signals an operation on a collection that was never initialized.
	ErrNotInitialized = errors.New("collection not initialized")
	// ErrDimensionMismatch signals that a collection exists with a different vector size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingUnavailable signals that strict mode required embeddings but none are configured.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrEmbeddingGenerationFailed signals that strict mode could not embed a record.
	ErrEmbeddingGenerationFailed = errors.New("embedding generation failed")
	// ErrSemanticSearchFailed signals that strict mode could not embed a query.
	ErrSemanticSearchFailed = errors.New("semantic search failed")
	// ErrStoreConnectivity signals an I/O failure talking to the document store.
	ErrStoreConnectivity = errors.New("document store unreachable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidPayload signals a record that fails validation or a stored payload without its natural key.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidConfig signals a bad engine or store configuration.
	ErrInvalidConfig = errors.New("invalid config")
)
