package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput indicates there was no usable text to chunk or embed.
	// It is raised before anything is persisted.
	ErrEmptyInput = errors.New("empty input")

	// ErrIndexWrite indicates embedding or index writes failed during ingestion.
	// The document is rolled back and never partially committed.
	ErrIndexWrite = errors.New("index write failed")

	// ErrRetrievalUnavailable indicates the embedder or vector index could not
	// serve a query. Answers proceed ungrounded.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationFailure indicates the generation collaborator errored or
	// the stream broke before completion.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnknownModel indicates a model identifier that is not in the registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrFileTooLarge indicates an upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTooManyFiles indicates an upload batch exceeds the configured file count.
	ErrTooManyFiles = errors.New("too many files")

	// ErrUnsupportedType indicates an upload whose content type has no normaliser.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)
