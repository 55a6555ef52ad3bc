// SPDX-License-Identifier: AGPL-3.0-only
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// SearchHit is one similarity-search result from the vector store.
type SearchHit struct {
	Source   string
	Content  string
	Distance float64
}

// VectorStore persists embedded document chunks in a sqlite-vec database and
// answers k-nearest-neighbor queries over them.
type VectorStore struct {
	db         *sql.DB
	dimensions int
}

// NewVectorStore opens (or creates) the vector database at dbPath with the
// given embedding width.
func NewVectorStore(dbPath string, dimensions int) (*VectorStore, error) {
	if dimensions < 1 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Register the sqlite-vec extension with the sqlite3 driver.
	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open vector database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			source     TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chunks table: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(embedding float[%d])", dimensions,
	)); err != nil {
		db.Close()
		return nil, fmt.Errorf("create vec_chunks table: %w", err)
	}

	return &VectorStore{db: db, dimensions: dimensions}, nil
}

// AddChunks persists chunk texts and their embeddings in one transaction.
// chunks and embeddings must have equal length.
func (s *VectorStore) AddChunks(ctx context.Context, source string, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	now := time.Now().UTC().Format(timeFormat)

	for i, chunk := range chunks {
		if len(embeddings[i]) != s.dimensions {
			_ = tx.Rollback()
			return fmt.Errorf("embedding %d has %d dimensions, store expects %d", i, len(embeddings[i]), s.dimensions)
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (source, content, created_at) VALUES (?, ?, ?)",
			source, chunk, now,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk: %w", err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("chunk row id: %w", err)
		}

		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("serialize embedding: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vec_chunks (rowid, embedding) VALUES (?, ?)",
			rowID, blob,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Search returns the k chunks nearest to the query embedding, closest first.
func (s *VectorStore) Search(ctx context.Context, embedding []float32, k int) ([]SearchHit, error) {
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("query embedding has %d dimensions, store expects %d", len(embedding), s.dimensions)
	}
	if k < 1 {
		k = 1
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.source, c.content, v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.rowid
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance`,
		blob, k,
	)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.Source, &h.Content, &h.Distance); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, nil
}

// Close closes the underlying database connection.
func (s *VectorStore) Close() error {
	return s.db.Close()
}
