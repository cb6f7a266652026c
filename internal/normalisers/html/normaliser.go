package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct {
	text *plaintext.Normaliser
}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{text: plaintext.New()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise returns the readable text of an HTML document with tags,
// scripts and styles removed and entities decoded.
func (n *Normaliser) Normalise(ctx context.Context, content []byte) (string, error) {
	text, err := n.text.Normalise(ctx, content)
	if err != nil {
		return "", err
	}
	return stripHTML(text), nil
}

var (
	// Elements whose content is never readable text.
	hiddenElements = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}
	lineBreaks = regexp.MustCompile(
		`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|header|footer|main|nav)(\s[^>]*)?>|<(br|hr)\s*/?>`)
	anyTag    = regexp.MustCompile(`<[^>]+>`)
	spaceRuns = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// stripHTML reduces markup to text with one block element per line.
func stripHTML(content string) string {
	for _, re := range hiddenElements {
		content = re.ReplaceAllString(content, "")
	}
	content = lineBreaks.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = spaceRuns.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
