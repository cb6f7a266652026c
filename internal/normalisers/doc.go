// Package normalisers turns uploaded files into plain text for chunking.
// Each normaliser handles a set of MIME types; the Registry picks the
// highest-priority normaliser for a type.
package normalisers
