package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ---------------- PgVector implementation ----------------

// PgVectorIndex 所有逻辑集合共用一张 rag_vectors 表，按 collection 列隔离
type PgVectorIndex struct {
	pool *pgxpool.Pool
	dim  int
}

// NewPgVectorIndex connects, pings and makes sure the table and indexes exist.
func NewPgVectorIndex(ctx context.Context, dbURL string, dim int) (*PgVectorIndex, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PgVectorIndex{pool: pool, dim: dim}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorIndex) ensureTable(ctx context.Context) error {
	// Enable pgvector extension
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	tableQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS rag_vectors (
			collection VARCHAR(255) NOT NULL,
			id VARCHAR(255) NOT NULL,
			document TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		);
	`, s.dim)
	if _, err := s.pool.Exec(ctx, tableQuery); err != nil {
		return fmt.Errorf("failed to create rag_vectors table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_rag_vectors_collection ON rag_vectors(collection);",
		"CREATE INDEX IF NOT EXISTS idx_rag_vectors_embedding ON rag_vectors USING hnsw (embedding vector_cosine_ops);",
	}
	for _, q := range indexes {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			log.Printf("Warning: failed to create index: %v", err)
		}
	}
	return nil
}

func (s *PgVectorIndex) Add(ctx context.Context, collection string, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		batch.Queue(`
			INSERT INTO rag_vectors (collection, id, document, metadata, embedding)
			VALUES ($1, $2, $3, $4::jsonb, $5)
			ON CONFLICT (collection, id)
			DO UPDATE SET document = EXCLUDED.document, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding
		`, collection, r.ID, r.Document, string(meta), pgvector.NewVector(r.Vector))
	}
	// 批内每条独立提交，失败时前面的记录已写入
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert %s: %w", records[i].ID, err)
		}
	}
	return nil
}

func (s *PgVectorIndex) Search(ctx context.Context, collection string, query []float32, topK int) ([]VectorHit, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, document, metadata::text, 1 - (embedding <=> $1) AS similarity
		FROM rag_vectors
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, pgvector.NewVector(query), collection, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var id, doc, meta string
		var similarity float64
		if err := rows.Scan(&id, &doc, &meta, &similarity); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		md := map[string]string{}
		if err := json.Unmarshal([]byte(meta), &md); err != nil {
			log.Printf("Warning: bad metadata for %s/%s: %v", collection, id, err)
		}
		hits = append(hits, VectorHit{
			VectorRecord: VectorRecord{ID: id, Document: doc, Metadata: md},
			Score:        similarity,
		})
	}
	return hits, rows.Err()
}

func (s *PgVectorIndex) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM rag_vectors WHERE collection = $1", collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return count, nil
}

func (s *PgVectorIndex) HasCollection(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM rag_vectors WHERE collection = $1)", collection).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", collection, err)
	}
	return exists, nil
}

func (s *PgVectorIndex) DropCollection(ctx context.Context, collection string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM rag_vectors WHERE collection = $1", collection); err != nil {
		return fmt.Errorf("failed to delete %s: %w", collection, err)
	}
	return nil
}

// Pool exposes the connection pool so the content store can share it.
func (s *PgVectorIndex) Pool() *pgxpool.Pool { return s.pool }

func (s *PgVectorIndex) Close() { s.pool.Close() }
