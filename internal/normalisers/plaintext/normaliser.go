// Package plaintext reads text and source files, and is the fallback for any
// text/* upload no other normaliser claims.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// sniffLen bounds the search for NUL bytes, which text files do not contain.
const sniffLen = 8 << 10

var mimeTypes = []string{
	"text/plain", "text/csv", "text/tab-separated-values",
	"text/x-go", "text/x-python", "text/x-rust", "text/x-java", "text/x-c", "text/x-c++",
	"text/x-ruby", "text/x-shellscript", "text/x-sql", "text/javascript", "text/typescript",
	"text/css", "text/yaml", "text/toml", "text/xml",
	"application/json", "application/xml", "application/x-ndjson",
}

// Normaliser decodes UTF-8 and BOM-marked UTF-16 text.
type Normaliser struct{}

// New returns the plain text normaliser.
func New() *Normaliser { return &Normaliser{} }

func (n *Normaliser) SupportedMIMETypes() []string { return mimeTypes }

// Priority is the lowest of the built-in normalisers.
func (n *Normaliser) Priority() int { return 5 }

// Normalise returns the text with any byte order mark dropped and line
// endings unified to LF. Binary content is domain.ErrUnsupportedType.
func (n *Normaliser) Normalise(_ context.Context, content []byte) (string, error) {
	// Nop keeps BOM-less input as it is; a BOM switches to the matching UTF decoder.
	text, _, err := transform.Bytes(unicode.BOMOverride(encoding.Nop.NewDecoder()), content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnsupportedType, err)
	}
	if bytes.IndexByte(text[:min(len(text), sniffLen)], 0) >= 0 {
		return "", fmt.Errorf("%w: content looks binary", domain.ErrUnsupportedType)
	}
	if !utf8.Valid(text) {
		return "", fmt.Errorf("%w: content is not valid UTF-8 text", domain.ErrUnsupportedType)
	}
	return NormaliseNewlines(string(text)), nil
}

// NormaliseNewlines turns CRLF and lone CR into LF.
func NormaliseNewlines(s string) string {
	return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(s)
}
