// Package database implements the document store and the vector index
// on Postgres with pgvector, behind the core interfaces.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/models"
)

var (
	_ core.DocumentStore = (*Store)(nil)
	_ core.VectorIndex   = (*Store)(nil)
)

type Store struct {
	db *sql.DB
}

func NewStore(ctx context.Context, databaseURL string, embedDim int) (*Store, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, embedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents (id, file_name, content_type, storage_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := s.db.ExecContext(ctx, q,
		doc.ID, doc.FileName, doc.ContentType, doc.StorageURL, doc.Status)
	return err
}

func (s *Store) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, file_name, content_type, storage_url, status, failure, page_count, chunk_count, created_at, updated_at
		FROM documents WHERE id = $1
	`
	var d models.Document
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.FileName, &d.ContentType, &d.StorageURL, &d.Status, &d.Failure,
		&d.PageCount, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	const q = `
		SELECT id, file_name, content_type, storage_url, status, failure, page_count, chunk_count, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.FileName, &d.ContentType, &d.StorageURL, &d.Status, &d.Failure,
			&d.PageCount, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TransitionStatus is the per-document concurrency guard: the update
// only lands when the stored status still equals `from`.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to models.Status) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("illegal transition %s -> %s: %w", from, to, core.ErrStatusConflict)
	}
	const q = `
		UPDATE documents SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`
	res, err := s.db.ExecContext(ctx, q, id, from, to)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s not in status %s: %w", id, from, core.ErrStatusConflict)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id string, reason string) error {
	const q = `
		UPDATE documents SET status = $2, failure = $3, updated_at = now()
		WHERE id = $1 AND status NOT IN ($2, $4)
	`
	_, err := s.db.ExecContext(ctx, q, id, models.StatusFailed, reason, models.StatusReady)
	return err
}

func (s *Store) SetCounts(ctx context.Context, id string, pages, chunks int) error {
	const q = `
		UPDATE documents SET page_count = $2, chunk_count = $3, updated_at = now()
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, q, id, pages, chunks)
	return err
}

// DeleteDocument removes the document row; its chunks go with it via
// ON DELETE CASCADE.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertChunks writes a batch of chunks with their vectors in one
// transaction. Keyed on chunk id, so re-submitting a chunk overwrites
// rather than duplicates.
func (s *Store) UpsertChunks(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks (id, document_id, seq, text, embedding, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE
		SET text = EXCLUDED.text, embedding = EXCLUDED.embedding, token_count = EXCLUDED.token_count
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(vectors[i])
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.Seq, ch.Text, vec, ch.TokenCount,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Search returns the closest chunks by cosine similarity, optionally
// scoped to documentIDs. Scores are 1 - cosine distance, descending.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, documentIDs []string) ([]models.Evidence, error) {
	vec := pgvector.NewVector(vector)

	var (
		rows *sql.Rows
		err  error
	)
	if len(documentIDs) > 0 {
		const q = `
			SELECT id, document_id, seq, text, 1 - (embedding <=> $1) AS score
			FROM document_chunks
			WHERE document_id = ANY($2)
			ORDER BY embedding <=> $1
			LIMIT $3
		`
		rows, err = s.db.QueryContext(ctx, q, vec, documentIDs, topK)
	} else {
		const q = `
			SELECT id, document_id, seq, text, 1 - (embedding <=> $1) AS score
			FROM document_chunks
			ORDER BY embedding <=> $1
			LIMIT $2
		`
		rows, err = s.db.QueryContext(ctx, q, vec, topK)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Evidence
	for rows.Next() {
		var ev models.Evidence
		if err := rows.Scan(&ev.ChunkID, &ev.DocumentID, &ev.Seq, &ev.Text, &ev.Score); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}
