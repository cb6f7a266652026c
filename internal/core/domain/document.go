package domain

import "time"

// Document is an uploaded file whose extracted text has been ingested.
// A document exists only once all of its chunks were embedded and indexed.
type Document struct {
	// ID uniquely identifies this document.
	ID string

	// Filename is the original name of the uploaded file.
	Filename string

	// MimeType is the detected or declared content type.
	MimeType string

	// SizeBytes is the size of the uploaded file.
	SizeBytes int64

	// UploadedAt is when the document was committed.
	UploadedAt time.Time

	// ChunkCount is the number of chunks, populated by list operations.
	ChunkCount int
}

// Chunk is a bounded text segment of a document, the unit of embedding and retrieval.
// Chunks are immutable after ingestion and are deleted with their document.
type Chunk struct {
	// ID uniquely identifies this chunk.
	ID string

	// DocumentID links to the parent document.
	DocumentID string

	// Index is the position within the document (0-based, unique per document).
	Index int

	// Content is the chunk text. Never empty.
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32
}
