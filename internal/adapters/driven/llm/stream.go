// Package llm holds helpers shared by the streaming LLM adapters.
package llm

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxLineBytes bounds a single stream line.
const maxLineBytes = 1 << 20

// Event is one server-sent event read from a response body.
type Event struct {
	// Name is the "event:" field, empty when the server omits it.
	Name string

	// Data is the "data:" payload. Multi-line payloads are joined with "\n".
	Data string
}

// ReadEvents parses a text/event-stream body and calls fn for every event.
// Parsing stops when fn returns false, at end of input, or on a read error.
func ReadEvents(r io.Reader, fn func(Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		name string
		data []string
	)
	dispatch := func() bool {
		if len(data) == 0 {
			name = ""
			return true
		}
		ev := Event{Name: name, Data: strings.Join(data, "\n")}
		name, data = "", data[:0]
		return fn(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if !dispatch() {
				return nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	dispatch()
	return nil
}

// ReadLines calls fn for every non-blank line of a newline-delimited body.
func ReadLines(r io.Reader, fn func([]byte) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !fn(line) {
			return nil
		}
	}
	return scanner.Err()
}

// NewStreamingClient returns an HTTP client for long-lived streaming responses.
// The timeout bounds the wait for response headers only; the body is bounded
// by the request context.
func NewStreamingClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// ErrorBody reads at most 4 KiB of an error response for diagnostics.
func ErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(body))
}
