package driven

import "context"

// Normaliser extracts plain text from an uploaded file of a supported type.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority breaks ties when several normalisers handle a type. Higher wins.
	Priority() int

	// Normalise returns the readable text of content.
	Normalise(ctx context.Context, content []byte) (string, error)
}

// NormaliserRegistry selects a normaliser by MIME type.
type NormaliserRegistry interface {
	// Normalise extracts text with the best normaliser for mimeType.
	// Returns domain.ErrUnsupportedType when no normaliser handles it.
	Normalise(ctx context.Context, mimeType string, content []byte) (string, error)

	// Supports reports whether a normaliser handles mimeType.
	Supports(mimeType string) bool
}
