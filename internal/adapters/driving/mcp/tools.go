package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// errAnswerFailed is returned when the answer stream ends with an error event.
var errAnswerFailed = errors.New("answer generation failed")

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string   `json:"question" jsonschema:"the question to answer from the uploaded documents"`
	ConversationID string   `json:"conversation_id,omitempty" jsonschema:"continue an existing conversation"`
	Model          string   `json:"model,omitempty" jsonschema:"generation model as provider:name"`
	TopK           int      `json:"top_k,omitempty" jsonschema:"number of passages to retrieve"`
	MinScore       *float64 `json:"min_score,omitempty" jsonschema:"minimum similarity between 0 and 1"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer         string          `json:"answer"`
	Grounded       bool            `json:"grounded"`
	Sources        []domain.Source `json:"sources"`
	ConversationID string          `json:"conversation_id"`
	Model          string          `json:"model"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query    string   `json:"query" jsonschema:"the text to find passages for"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"maximum number of passages (default from settings)"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"minimum similarity between 0 and 1 (default from settings)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// ListDocumentsInput is the (empty) input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput describes an uploaded document.
type DocumentOutput struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the uploaded documents, citing the files used",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the passages of the uploaded documents most similar to a query",
	}, s.handleRetrieve)

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List the uploaded documents",
		}, s.handleListDocuments)
	}
}

// handleAsk runs the answer pipeline and returns the finalized answer.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	stream, err := s.ports.Ask.Ask(ctx, domain.AskRequest{
		Question:       input.Question,
		ConversationID: input.ConversationID,
		Model:          input.Model,
		TopK:           input.TopK,
		MinScore:       input.MinScore,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	var (
		output AskOutput
		final  bool
	)
	for ev := range stream {
		switch ev.Type {
		case domain.EventFinal:
			final = true
			output = AskOutput{
				Answer:         ev.Text,
				Grounded:       ev.Grounded,
				Sources:        ev.Sources,
				ConversationID: ev.ConversationID,
				Model:          ev.ModelProvider + ":" + ev.ModelName,
			}
		case domain.EventError:
			return nil, AskOutput{}, fmt.Errorf("%w: %s", errAnswerFailed, ev.Message)
		}
	}
	if !final {
		if err := ctx.Err(); err != nil {
			return nil, AskOutput{}, err
		}
		return nil, AskOutput{}, errAnswerFailed
	}

	return nil, output, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := s.ports.Defaults
	if opts.TopK <= 0 {
		opts.TopK = domain.DefaultTopK
	}
	if input.TopK > 0 {
		opts.TopK = input.TopK
	}
	if input.MinScore != nil {
		if *input.MinScore < 0 || *input.MinScore > 1 {
			return nil, RetrieveOutput{}, fmt.Errorf("%w: min_score must be within [0, 1]", domain.ErrInvalidInput)
		}
		opts.MinScore = *input.MinScore
	}

	refs, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]PassageOutput, len(refs)),
		Count:   len(refs),
	}
	for i := range refs {
		output.Results[i] = PassageOutput{
			DocumentID: refs[i].DocumentID,
			Filename:   refs[i].Filename,
			ChunkIndex: refs[i].ChunkIndex,
			Score:      refs[i].Score,
			Content:    refs[i].Content,
		}
	}

	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = documentOutput(&docs[i])
	}
	return nil, output, nil
}

func documentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:         doc.ID,
		Filename:   doc.Filename,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		Chunks:     doc.ChunkCount,
		UploadedAt: doc.UploadedAt,
	}
}
