package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// ---------------- Milvus implementation ----------------

// MilvusConfig 连接参数，APIKey 用于 Zilliz Cloud
type MilvusConfig struct {
	Address  string
	Username string
	Password string
	APIKey   string
}

// MilvusIndex maps every logical collection onto its own Milvus collection.
type MilvusIndex struct {
	mc     client.Client
	dim    int
	mu     sync.Mutex
	loaded map[string]bool
}

func NewMilvusIndex(ctx context.Context, cfg MilvusConfig, dim int) (*MilvusIndex, error) {
	addr := cfg.Address
	if addr == "" {
		addr = "localhost:19530"
	}
	mc, err := client.NewClient(ctx, client.Config{Address: addr, Username: cfg.Username, Password: cfg.Password, APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return &MilvusIndex{mc: mc, dim: dim, loaded: map[string]bool{}}, nil
}

// milvusName 集合名只允许字母数字下划线，且不能以数字开头
func milvusName(collection string) string {
	var b strings.Builder
	for _, r := range collection {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "c_" + name
	}
	return name
}

func (s *MilvusIndex) ensureSchemaAndIndex(ctx context.Context, coll string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded[coll] {
		return nil
	}
	has, err := s.mc.HasCollection(ctx, coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema().WithName(coll).WithDescription("multimodal rag collection")
		schema.WithField(entity.NewField().WithName("id").WithIsPrimaryKey(true).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256))
		schema.WithField(entity.NewField().WithName("document").WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535))
		schema.WithField(entity.NewField().WithName("metadata").WithDataType(entity.FieldTypeJSON))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
		if err != nil {
			return fmt.Errorf("new hnsw index: %w", err)
		}
		if err := s.mc.CreateIndex(ctx, coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	if err := s.mc.LoadCollection(ctx, coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	s.loaded[coll] = true
	return nil
}

func (s *MilvusIndex) Add(ctx context.Context, collection string, records []VectorRecord) error {
	coll := milvusName(collection)
	if err := s.ensureSchemaAndIndex(ctx, coll); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, 0, len(records))
	docs := make([]string, 0, len(records))
	metas := make([][]byte, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		ids = append(ids, r.ID)
		docs = append(docs, r.Document)
		metas = append(metas, meta)
		vectors = append(vectors, r.Vector)
	}
	_, err := s.mc.Insert(ctx, coll, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("document", docs),
		entity.NewColumnJSONBytes("metadata", metas),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", coll, err)
	}
	// 立即可查
	if err := s.mc.Flush(ctx, coll, false); err != nil {
		log.Printf("Warning: flush %s failed: %v", coll, err)
	}
	return nil
}

func (s *MilvusIndex) Search(ctx context.Context, collection string, query []float32, topK int) ([]VectorHit, error) {
	coll := milvusName(collection)
	has, err := s.mc.HasCollection(ctx, coll)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	if err := s.ensureSchemaAndIndex(ctx, coll); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := s.mc.Search(ctx, coll, []string{}, "", []string{"id", "document", "metadata"},
		[]entity.Vector{entity.FloatVector(query)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", coll, err)
	}
	var hits []VectorHit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var id, doc string
			md := map[string]string{}
			if c, ok := cols["id"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					id = data[i]
				}
			}
			if id == "" {
				if c, ok := r.IDs.(*entity.ColumnVarChar); ok {
					if data := c.Data(); i < len(data) {
						id = data[i]
					}
				}
			}
			if c, ok := cols["document"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					doc = data[i]
				}
			}
			if c, ok := cols["metadata"].(*entity.ColumnJSONBytes); ok {
				if data := c.Data(); i < len(data) {
					if err := json.Unmarshal(data[i], &md); err != nil {
						log.Printf("Warning: bad metadata for %s/%s: %v", coll, id, err)
					}
				}
			}
			hits = append(hits, VectorHit{
				VectorRecord: VectorRecord{ID: id, Document: doc, Metadata: md},
				Score:        float64(r.Scores[i]),
			})
		}
	}
	return hits, nil
}

func (s *MilvusIndex) Count(ctx context.Context, collection string) (int, error) {
	coll := milvusName(collection)
	has, err := s.mc.HasCollection(ctx, coll)
	if err != nil || !has {
		return 0, err
	}
	stats, err := s.mc.GetCollectionStatistics(ctx, coll)
	if err != nil {
		return 0, fmt.Errorf("collection statistics %s: %w", coll, err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("parse row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

func (s *MilvusIndex) HasCollection(ctx context.Context, collection string) (bool, error) {
	return s.mc.HasCollection(ctx, milvusName(collection))
}

func (s *MilvusIndex) DropCollection(ctx context.Context, collection string) error {
	coll := milvusName(collection)
	s.mu.Lock()
	delete(s.loaded, coll)
	s.mu.Unlock()
	has, err := s.mc.HasCollection(ctx, coll)
	if err != nil || !has {
		return err
	}
	return s.mc.DropCollection(ctx, coll)
}

func (s *MilvusIndex) Close() error { return s.mc.Close() }
