package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"multimodalRAG/core"
)

// PostgresContentStore 与 pgvector 共用同一个数据库
type PostgresContentStore struct {
	pool *pgxpool.Pool
}

func NewPostgresContentStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresContentStore, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rag_artifacts (
			collection VARCHAR(255) NOT NULL,
			id VARCHAR(255) NOT NULL,
			kind VARCHAR(16) NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			source_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create rag_artifacts table: %w", err)
	}
	return &PostgresContentStore{pool: pool}, nil
}

func (s *PostgresContentStore) Put(ctx context.Context, collection string, artifacts []core.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, a := range artifacts {
			_, err := tx.Exec(ctx, `
				INSERT INTO rag_artifacts (collection, id, kind, content, summary, source_path)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (collection, id)
				DO UPDATE SET kind = EXCLUDED.kind, content = EXCLUDED.content,
					summary = EXCLUDED.summary, source_path = EXCLUDED.source_path
			`, collection, a.ID, string(a.Kind), a.Content, a.Summary, a.SourcePath)
			if err != nil {
				return fmt.Errorf("insert %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresContentStore) Get(ctx context.Context, collection string, ids []string) ([]core.Artifact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, content, summary, source_path
		FROM rag_artifacts
		WHERE collection = $1 AND id = ANY($2)
	`, collection, ids)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	found := make(map[string]core.Artifact, len(ids))
	for rows.Next() {
		var a core.Artifact
		var kind string
		if err := rows.Scan(&a.ID, &kind, &a.Content, &a.Summary, &a.SourcePath); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Kind = core.ArtifactKind(kind)
		found[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orderByIDs(found, ids), nil
}

func (s *PostgresContentStore) Has(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM rag_artifacts WHERE collection = $1)", collection).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", collection, err)
	}
	return exists, nil
}
