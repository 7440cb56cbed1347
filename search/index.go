// Package search retrieves HR policy chunks from a local sqlite FTS5 index.
// Populating the index is out of scope; the schema matches what an indexer
// writes: one row per chunk in policy_chunks, mirrored into policy_chunks_fts
// by triggers.
package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"
)

// DefaultTop is the number of chunks returned when a caller passes top <= 0.
const DefaultTop = 5

// ErrEmptyQuery is returned for a query with no searchable terms.
var ErrEmptyQuery = errors.New("search query is empty")

// Chunk is one retrievable slice of a policy document.
type Chunk struct {
	ChunkID  string  `json:"chunk_id"`
	ParentID string  `json:"parent_id,omitempty"`
	Chunk    string  `json:"chunk"`
	File     string  `json:"file"`
	Path     string  `json:"path,omitempty"`
	Rank     float64 `json:"rank"`
}

// Searcher returns the top chunks for a natural-language query.
type Searcher interface {
	Search(ctx context.Context, query string, top int) ([]Chunk, error)
}

const schema = `
	CREATE TABLE IF NOT EXISTS policy_chunks (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		chunk_id              TEXT NOT NULL UNIQUE,
		parent_id             TEXT,
		chunk                 TEXT NOT NULL,
		metadata_storage_name TEXT,
		metadata_storage_path TEXT
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS policy_chunks_fts USING fts5(
		chunk,
		metadata_storage_name,
		content='policy_chunks',
		content_rowid='id'
	);

	CREATE TRIGGER IF NOT EXISTS policy_chunks_ai AFTER INSERT ON policy_chunks BEGIN
		INSERT INTO policy_chunks_fts(rowid, chunk, metadata_storage_name)
		VALUES (new.id, new.chunk, new.metadata_storage_name);
	END;

	CREATE TRIGGER IF NOT EXISTS policy_chunks_ad AFTER DELETE ON policy_chunks BEGIN
		INSERT INTO policy_chunks_fts(policy_chunks_fts, rowid, chunk, metadata_storage_name)
		VALUES ('delete', old.id, old.chunk, old.metadata_storage_name);
	END;

	CREATE TRIGGER IF NOT EXISTS policy_chunks_au AFTER UPDATE ON policy_chunks BEGIN
		INSERT INTO policy_chunks_fts(policy_chunks_fts, rowid, chunk, metadata_storage_name)
		VALUES ('delete', old.id, old.chunk, old.metadata_storage_name);
		INSERT INTO policy_chunks_fts(rowid, chunk, metadata_storage_name)
		VALUES (new.id, new.chunk, new.metadata_storage_name);
	END;
`

// Index is a Searcher over a sqlite database.
type Index struct {
	db     *sql.DB
	tracer trace.Tracer
}

// Open opens the index at path, creating the schema if it is missing.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy index: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure policy index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate policy index: %w", err)
	}

	return &Index{db: db, tracer: otel.Tracer("hrassist/search")}, nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// Search returns up to top chunks ranked by BM25. Terms are ORed so a
// question phrased in prose still matches chunks sharing any of its words.
func (x *Index) Search(ctx context.Context, query string, top int) ([]Chunk, error) {
	if top <= 0 {
		top = DefaultTop
	}

	ctx, span := x.tracer.Start(ctx, "tool.search_hr_chunks",
		trace.WithAttributes(
			attribute.String("search.query", query),
			attribute.Int("search.top", top),
		),
	)
	defer span.End()

	match := matchExpr(query)
	if match == "" {
		span.SetStatus(codes.Error, ErrEmptyQuery.Error())
		return nil, ErrEmptyQuery
	}

	rows, err := x.db.QueryContext(ctx, `
		SELECT c.chunk_id, COALESCE(c.parent_id, ''), c.chunk,
		       COALESCE(c.metadata_storage_name, ''), COALESCE(c.metadata_storage_path, ''),
		       bm25(policy_chunks_fts)
		FROM policy_chunks_fts
		JOIN policy_chunks c ON c.id = policy_chunks_fts.rowid
		WHERE policy_chunks_fts MATCH ?
		ORDER BY bm25(policy_chunks_fts)
		LIMIT ?`, match, top)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ChunkID, &c.ParentID, &c.Chunk, &c.File, &c.Path, &c.Rank); err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}

	span.SetAttributes(attribute.Int("search.returned", len(chunks)))
	return chunks, nil
}

// matchExpr turns free text into an FTS5 expression of quoted terms joined
// by OR. Quoting keeps operators and punctuation in the input inert.
func matchExpr(query string) string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !isWordRune(r)
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, `"`+strings.ToLower(w)+`"`)
	}
	return strings.Join(terms, " OR ")
}

func isWordRune(r rune) bool {
	return r == '_' || r == '-' || r == '\'' ||
		(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}
