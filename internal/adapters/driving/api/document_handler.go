package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// DocumentHandler manages uploaded documents.
type DocumentHandler struct {
	documents    driving.DocumentService
	maxFileBytes int64
	maxFiles     int
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(documents driving.DocumentService, maxFileBytes int64, maxFiles int) *DocumentHandler {
	return &DocumentHandler{documents: documents, maxFileBytes: maxFileBytes, maxFiles: maxFiles}
}

type documentResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type insertedResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
	Skipped    bool   `json:"skipped,omitempty"`
}

type uploadResponse struct {
	OK       bool               `json:"ok"`
	Inserted []insertedResponse `json:"inserted"`
}

func toDocumentResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID,
		Filename:   doc.Filename,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		Chunks:     doc.ChunkCount,
		UploadedAt: doc.UploadedAt,
	}
}

// Upload ingests documents. Multipart requests carry files under the
// "files" (or "file") field; any other request is a JSON text upload.
func (h *DocumentHandler) Upload(c *gin.Context) {
	var (
		reqs []driving.IngestRequest
		err  error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		reqs, err = h.readMultipart(c)
		if err != nil {
			handleError(c, err)
			return
		}
	} else {
		var body uploadRequest
		if !bindJSON(c, &body) {
			return
		}
		reqs = []driving.IngestRequest{{
			Filename: body.Filename,
			MimeType: body.MimeType,
			Content:  []byte(body.Content),
		}}
	}

	results, err := h.documents.IngestBatch(c.Request.Context(), reqs)
	if err != nil {
		handleError(c, err)
		return
	}

	resp := uploadResponse{OK: true, Inserted: make([]insertedResponse, 0, len(results))}
	for _, r := range results {
		resp.Inserted = append(resp.Inserted, insertedResponse{
			DocumentID: r.DocumentID,
			Filename:   r.Filename,
			Chunks:     r.Chunks,
			Skipped:    r.Skipped,
		})
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *DocumentHandler) readMultipart(c *gin.Context) ([]driving.IngestRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	files := make([]*multipart.FileHeader, 0, len(form.File["files"])+len(form.File["file"]))
	files = append(files, form.File["files"]...)
	files = append(files, form.File["file"]...)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", domain.ErrInvalidInput)
	}
	if len(files) > h.maxFiles {
		return nil, fmt.Errorf("%w: %d files, maximum %d per upload", domain.ErrTooManyFiles, len(files), h.maxFiles)
	}

	reqs := make([]driving.IngestRequest, 0, len(files))
	for _, fh := range files {
		content, err := h.readPart(fh)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, driving.IngestRequest{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Content:  content,
		})
	}
	return reqs, nil
}

// readPart reads at most one byte past the limit so oversized files are
// rejected by the service without buffering them whole.
func (h *DocumentHandler) readPart(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxFileBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, maximum %d", domain.ErrFileTooLarge, fh.Filename, fh.Size, h.maxFileBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, h.maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return content, nil
}

// List returns all documents, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	resp := make([]documentResponse, len(docs))
	for i := range docs {
		resp[i] = toDocumentResponse(&docs[i])
	}
	c.JSON(http.StatusOK, gin.H{"documents": resp})
}

// Get returns one document.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(doc))
}

// Delete removes a document and its chunks.
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
