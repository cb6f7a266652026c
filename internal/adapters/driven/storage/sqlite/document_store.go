package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*documentStore)(nil)

const (
	documentColumns = "d.id, d.filename, d.mime_type, d.size_bytes, d.uploaded_at"
	chunkColumns    = "c.id, c.document_id, c.chunk_index, c.content, c.embedding"
)

// documentStore keeps documents with their chunks and embeddings.
type documentStore struct {
	db *sql.DB
}

// SaveDocument writes doc and its chunks in one transaction, replacing any
// earlier version of the document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Chunks of a replaced document go with it through ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", doc.ID); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO documents (id, filename, mime_type, size_bytes, uploaded_at) VALUES (?, ?, ?, ?, ?)",
		doc.ID, doc.Filename, doc.MimeType, doc.SizeBytes, toUnix(doc.UploadedAt),
	); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}

	insert, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, document_id, chunk_index, content, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("save chunks of %s: %w", doc.ID, err)
	}
	defer insert.Close()

	for i := range chunks {
		c := &chunks[i]
		if _, err := insert.ExecContext(ctx, c.ID, doc.ID, c.Index, c.Content, encodeVector(c.Embedding)); err != nil {
			return fmt.Errorf("save chunk %d of %s: %w", c.Index, doc.ID, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns the document with its chunk count.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	var uploaded int64
	err := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+", (SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)"+
			" FROM documents d WHERE d.id = ?", id,
	).Scan(&doc.ID, &doc.Filename, &doc.MimeType, &doc.SizeBytes, &uploaded, &doc.ChunkCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	doc.UploadedAt = fromUnix(uploaded)
	return &doc, nil
}

// GetChunks returns a document's chunks in index order.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks c WHERE c.document_id = ? ORDER BY c.chunk_index", documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks of %s: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := scanChunk(rows, &c); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunk returns one chunk.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	err := scanChunk(s.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks c WHERE c.id = ?", id), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteDocument removes a document and, by cascade, its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDocuments returns every document, newest first, with chunk counts.
// An empty library is an empty slice, never nil.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+", COUNT(c.id) FROM documents d"+
			" LEFT JOIN chunks c ON c.document_id = d.id"+
			" GROUP BY d.id ORDER BY d.uploaded_at DESC, d.id")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var doc domain.Document
		var uploaded int64
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.MimeType, &doc.SizeBytes, &uploaded, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		doc.UploadedAt = fromUnix(uploaded)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// EachChunk calls fn for every chunk, oldest document first. The result set is
// drained before fn runs, since the single connection would otherwise be held
// and fn could not use the store.
func (s *documentStore) EachChunk(ctx context.Context, fn func(doc *domain.Document, chunk *domain.Chunk) error) error {
	type row struct {
		doc   domain.Document
		chunk domain.Chunk
	}

	all, err := func() ([]row, error) {
		rows, err := s.db.QueryContext(ctx,
			"SELECT "+documentColumns+", "+chunkColumns+" FROM chunks c"+
				" JOIN documents d ON d.id = c.document_id"+
				" ORDER BY d.uploaded_at, d.id, c.chunk_index")
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var all []row
		for rows.Next() {
			var r row
			var uploaded int64
			var blob []byte
			if err := rows.Scan(&r.doc.ID, &r.doc.Filename, &r.doc.MimeType, &r.doc.SizeBytes, &uploaded,
				&r.chunk.ID, &r.chunk.DocumentID, &r.chunk.Index, &r.chunk.Content, &blob); err != nil {
				return nil, err
			}
			r.doc.UploadedAt = fromUnix(uploaded)
			if r.chunk.Embedding, err = decodeVector(blob); err != nil {
				return nil, fmt.Errorf("chunk %s: %w", r.chunk.ID, err)
			}
			all = append(all, r)
		}
		return all, rows.Err()
	}()
	if err != nil {
		return fmt.Errorf("scan chunks: %w", err)
	}

	for i := range all {
		if err := fn(&all[i].doc, &all[i].chunk); err != nil {
			return err
		}
	}
	return nil
}

func scanChunk(row interface{ Scan(...any) error }, c *domain.Chunk) error {
	var blob []byte
	if err := row.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan chunk: %w", err)
	}
	var err error
	if c.Embedding, err = decodeVector(blob); err != nil {
		return fmt.Errorf("chunk %s: %w", c.ID, err)
	}
	return nil
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 0, 4*len(v))
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 vector", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
