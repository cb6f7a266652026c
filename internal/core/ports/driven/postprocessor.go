package driven

// Chunker splits extracted document text into ordered, overlapping segments.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits text into segments in source order.
	// Returns domain.ErrEmptyInput for empty or whitespace-only text.
	Chunk(text string) ([]string, error)
}

// TokenCounter estimates how many model tokens a text occupies.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) int
}
