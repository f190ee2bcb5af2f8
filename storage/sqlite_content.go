package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"multimodalRAG/core"
)

// SQLiteContentStore 默认的持久化 docstore，文件位于数据目录下
type SQLiteContentStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteContentStore opens (or creates) content.db under dataDir.
func NewSQLiteContentStore(dataDir string) (*SQLiteContentStore, error) {
	if dataDir == "" {
		dataDir = core.DataRoot()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "content.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			source_path TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating artifacts table: %w", err)
	}
	return &SQLiteContentStore{db: db, path: dbPath}, nil
}

func (s *SQLiteContentStore) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *SQLiteContentStore) Path() string { return s.path }

func (s *SQLiteContentStore) Put(ctx context.Context, collection string, artifacts []core.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artifacts (collection, id, kind, content, summary, source_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			kind = excluded.kind, content = excluded.content,
			summary = excluded.summary, source_path = excluded.source_path
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range artifacts {
		if _, err := stmt.ExecContext(ctx, collection, a.ID, string(a.Kind), a.Content, a.Summary, a.SourcePath); err != nil {
			return fmt.Errorf("insert %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteContentStore) Get(ctx context.Context, collection string, ids []string) ([]core.Artifact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, content, summary, source_path FROM artifacts WHERE collection = ? AND id IN ("+placeholders+")",
		args...)
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

func (s *SQLiteContentStore) Has(ctx context.Context, collection string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM artifacts WHERE collection = ?)", collection).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", collection, err)
	}
	return exists == 1, nil
}

func orderByIDs(found map[string]core.Artifact, ids []string) []core.Artifact {
	out := make([]core.Artifact, 0, len(ids))
	for _, id := range ids {
		if a, ok := found[id]; ok {
			out = append(out, a)
		}
	}
	return out
}
