package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "text/x-go")
	assert.Contains(t, mimeTypes, "application/json")
	assert.NotContains(t, mimeTypes, "text/html")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{name: "plain", content: []byte("hello world"), want: "hello world"},
		{name: "crlf", content: []byte("a\r\nb\rc"), want: "a\nb\nc"},
		{name: "bom", content: []byte("\xef\xbb\xbfhello"), want: "hello"},
		{name: "utf16 le", content: []byte("\xff\xfeh\x00i\x00\r\x00\n\x00"), want: "hi\n"},
		{name: "utf16 be", content: []byte("\xfe\xff\x00o\x00k"), want: "ok"},
		{name: "unicode", content: []byte("naïve café"), want: "naïve café"},
		{name: "empty", content: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Normalise(context.Background(), tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalise_Binary(t *testing.T) {
	for name, content := range map[string][]byte{
		"nul bytes":    []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"),
		"invalid utf8": {0x81, 0xfe, 'a'},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New().Normalise(context.Background(), content)
			assert.ErrorIs(t, err, domain.ErrUnsupportedType)
		})
	}
}
