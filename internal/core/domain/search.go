package domain

import "time"

// SourceReference is a retrieved chunk cited as evidence for an answer.
// It is produced per query and only persisted as part of an assistant message.
type SourceReference struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// DocumentID identifies the chunk's document.
	DocumentID string

	// Filename is the name of the chunk's document.
	Filename string

	// ChunkIndex is the chunk position within its document.
	ChunkIndex int

	// UploadedAt is the document upload time, used for tie-breaking.
	UploadedAt time.Time

	// Score is the normalised similarity in [0,1].
	Score float64

	// Content is the full chunk text.
	Content string
}

// RetrieveOptions configures a retrieval.
type RetrieveOptions struct {
	// TopK is the number of nearest neighbours requested from the index.
	TopK int

	// MinScore drops candidates scoring below it.
	MinScore float64
}

// Source is the persisted, user-facing form of a cited document.
type Source struct {
	// Filename is the cited document name.
	Filename string `json:"filename"`

	// Score is the best similarity among the document's cited chunks.
	Score float64 `json:"score"`

	// Preview is a bounded excerpt of the cited content.
	Preview string `json:"preview"`
}
