// Package pgvector stores chunk vectors in Postgres using the pgvector extension.
package pgvector

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

const (
	tableName    = "rag_chunk_vectors"
	countTimeout = 5 * time.Second
)

// Index is a VectorIndex backed by a pgvector table.
type Index struct {
	pool    *pgxpool.Pool
	dims    int
	mapping domain.ScoreMapping
}

// New connects to Postgres and ensures the vector table exists.
func New(ctx context.Context, dsn string, dims int, mapping domain.ScoreMapping) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: pgvector needs fixed dimensions", domain.ErrInvalidInput)
	}
	if !mapping.IsValid() {
		mapping = domain.ScoreMappingAffine
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
	}

	idx := &Index{pool: pool, dims: dims, mapping: mapping}
	if err := idx.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id    TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, tableName, idx.dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id)`, tableName, tableName),
	}
	for _, stmt := range stmts {
		if _, err := idx.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector migrate: %w", err)
		}
	}
	return nil
}

// scoreExpr maps cosine distance to the configured score.
func (idx *Index) scoreExpr() string {
	if idx.mapping == domain.ScoreMappingClamped {
		return "GREATEST(1 - (embedding <=> $1::vector), 0)"
	}
	return "(2 - (embedding <=> $1::vector)) / 2"
}

// Upsert writes the batch in a single transaction.
func (idx *Index) Upsert(ctx context.Context, entries ...driven.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := vector.CheckDimensions(idx.dims, e.Vector); err != nil {
			return err
		}
		if _, err := vector.Normalize(e.Vector); err != nil {
			return err
		}
	}

	query := fmt.Sprintf(`INSERT INTO %s (chunk_id, document_id, chunk_index, uploaded_at, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index,
			uploaded_at = EXCLUDED.uploaded_at,
			embedding = EXCLUDED.embedding`, tableName)

	return pgx.BeginFunc(ctx, idx.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(query, e.ChunkID, e.DocumentID, e.ChunkIndex, e.UploadedAt.UTC(), pgv.NewVector(e.Vector))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("pgvector upsert: %w", err)
		}
		return nil
	})
}

// Search ranks rows by mapped score, then upload time and chunk index.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}
	if err := vector.CheckDimensions(idx.dims, query); err != nil {
		return nil, err
	}
	if _, err := vector.Normalize(query); err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT chunk_id, document_id, chunk_index, uploaded_at, %s AS score
		FROM %s
		ORDER BY score DESC, uploaded_at ASC, chunk_index ASC, chunk_id ASC
		LIMIT $2`, idx.scoreExpr(), tableName)

	rows, err := idx.pool.Query(ctx, sql, pgv.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	hits := make([]driven.VectorHit, 0, k)
	for rows.Next() {
		var h driven.VectorHit
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.ChunkIndex, &h.UploadedAt, &h.Score); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		h.UploadedAt = h.UploadedAt.UTC()
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	return hits, nil
}

// DeleteDocument removes every row of the document.
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := idx.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, tableName), documentID)
	if err != nil {
		return fmt.Errorf("pgvector delete: %w", err)
	}
	return nil
}

// Len counts stored rows. It returns 0 when the database is unreachable.
func (idx *Index) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
	defer cancel()

	var n int
	if err := idx.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, tableName)).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Dimensions returns the column vector size.
func (idx *Index) Dimensions() int {
	return idx.dims
}

// Close releases the connection pool.
func (idx *Index) Close() error {
	idx.pool.Close()
	return nil
}
