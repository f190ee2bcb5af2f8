package storage

import (
	"context"
	"log"
	"path/filepath"

	"multimodalRAG/config"
	"multimodalRAG/core"
)

// Backends 按配置选出的存储组合
type Backends struct {
	Vectors  VectorIndex
	Docs     ContentStore
	Embedder core.Embedder
	closers  []func()
}

func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenBackends picks the embedder, vector index and content store from cfg.
// A backend that cannot be reached falls back to its in-memory version with
// a warning, the same way an unconfigured API falls back to HashEmbedder.
func OpenBackends(ctx context.Context, cfg *config.Config, cli *core.OpenAIClient) *Backends {
	b := &Backends{}

	if cli != nil && cfg.HasValidAPI() {
		b.Embedder = NewOpenAIEmbedder(cli, cfg.EmbeddingModel, cfg.EmbeddingDimension)
	} else {
		log.Printf("Warning: API configuration missing, using offline hash embedder")
		b.Embedder = NewHashEmbedder(cfg.EmbeddingDimension)
	}
	dim := b.Embedder.Dimension()

	var pg *PgVectorIndex
	switch cfg.Store {
	case "pgvector":
		s, err := NewPgVectorIndex(ctx, cfg.PostgresURL, dim)
		if err != nil {
			log.Printf("Warning: Failed to initialize PgVector store (%v), falling back to memory store", err)
			break
		}
		pg = s
		b.Vectors = s
		b.closers = append(b.closers, s.Close)
	case "milvus":
		s, err := NewMilvusIndex(ctx, MilvusConfig{
			Address:  cfg.MilvusAddr,
			Username: cfg.MilvusUser,
			Password: cfg.MilvusPass,
			APIKey:   cfg.MilvusAPIKey,
		}, dim)
		if err != nil {
			log.Printf("Warning: Failed to initialize Milvus store (%v), falling back to memory store", err)
			break
		}
		b.Vectors = s
		b.closers = append(b.closers, func() { _ = s.Close() })
	}
	if b.Vectors == nil {
		// memory 后端带快照，和 sqlite docstore 一样跨进程保留
		snapshot := filepath.Join(dataDir(cfg), "vectors.json")
		mi, err := NewFileMemoryIndex(snapshot)
		if err != nil {
			log.Printf("Warning: %v, starting with an empty memory index", err)
			mi = NewMemoryIndex()
		}
		b.Vectors = mi
	}

	switch cfg.ContentStore {
	case "postgres":
		pool := pg
		if pool == nil {
			// 向量库不是 pgvector 时单独连一次
			s, err := NewPgVectorIndex(ctx, cfg.PostgresURL, dim)
			if err != nil {
				log.Printf("Warning: Failed to connect postgres content store (%v), falling back to sqlite", err)
				break
			}
			pool = s
			b.closers = append(b.closers, s.Close)
		}
		cs, err := NewPostgresContentStore(ctx, pool.Pool())
		if err != nil {
			log.Printf("Warning: %v, falling back to sqlite", err)
			break
		}
		b.Docs = cs
	case "memory":
		b.Docs = NewMemoryContentStore()
	}
	if b.Docs == nil {
		cs, err := NewSQLiteContentStore(dataDir(cfg))
		if err != nil {
			log.Printf("Warning: Failed to open sqlite content store (%v), using memory store", err)
			b.Docs = NewMemoryContentStore()
		} else {
			log.Printf("Content store: %s", cs.Path())
			b.Docs = cs
			b.closers = append(b.closers, func() { _ = cs.Close() })
		}
	}
	return b
}

func dataDir(cfg *config.Config) string {
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	return core.DataRoot()
}

// Registry builds a collection registry over these backends.
func (b *Backends) Registry() *Registry {
	return NewRegistry(b.Vectors, b.Docs, b.Embedder)
}
