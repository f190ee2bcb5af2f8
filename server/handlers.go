package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"multimodalRAG/core"
)

// Ingester 视频或文档入库
type Ingester interface {
	Ingest(ctx context.Context, conversationID, path string) (core.IngestReport, error)
}

// Querier 查询融合
type Querier interface {
	Query(ctx context.Context, conversationID, query string) core.QueryResult
}

// Handlers 入库与查询的 HTTP 处理器
type Handlers struct {
	videos    Ingester
	documents Ingester
	engine    Querier
	started   time.Time

	// Checks 健康检查项，由 /health 逐项执行
	Checks map[string]func(ctx context.Context) core.HealthCheck
	// Collections 当前已加载的集合名
	Collections func() []string
}

func NewHandlers(videos, documents Ingester, engine Querier) *Handlers {
	return &Handlers{videos: videos, documents: documents, engine: engine, started: time.Now()}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ingest/video", h.IngestVideoHandler)
	mux.HandleFunc("/ingest/document", h.IngestDocumentHandler)
	mux.HandleFunc("/query", h.QueryHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	return mux
}

type ingestRequest struct {
	ConversationID string `json:"conversation_id"`
	Path           string `json:"path"`
}

type queryRequest struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

func (h *Handlers) IngestVideoHandler(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "video", h.videos)
}

func (h *Handlers) IngestDocumentHandler(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "document", h.documents)
}

func (h *Handlers) ingest(w http.ResponseWriter, r *http.Request, kind string, ing Ingester) {
	if !allowPost(w, r) {
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	if req.ConversationID == "" || strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "Missing fields", "conversation_id and path are required")
		return
	}
	if ing == nil {
		writeError(w, http.StatusServiceUnavailable, "Ingestion not available", kind+" ingestion is not configured")
		return
	}

	report, err := ing.Ingest(r.Context(), req.ConversationID, req.Path)
	if err != nil {
		log.Printf("[%s] Warning: %s ingestion failed: %v", req.ConversationID, kind, err)
		writeError(w, statusFor(err), "Ingestion failed", err.Error())
		return
	}
	core.WriteJSON(w, http.StatusOK, report)
}

func (h *Handlers) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Missing fields", "conversation_id and query are required")
		return
	}
	core.WriteJSON(w, http.StatusOK, h.engine.Query(r.Context(), req.ConversationID, req.Query))
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]core.HealthCheck, len(h.Checks))
	for name, check := range h.Checks {
		checks[name] = check(r.Context())
	}
	status := core.OverallStatus(checks)
	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	collections := []string{}
	if h.Collections != nil {
		collections = h.Collections()
	}
	core.WriteJSON(w, code, map[string]interface{}{
		"status":      status,
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"system":      core.CurrentSystemInfo(),
		"checks":      checks,
		"collections": collections,
	})
}

func allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "Only POST method is supported")
	return false
}

func writeError(w http.ResponseWriter, status int, title, message string) {
	core.WriteJSON(w, status, map[string]interface{}{
		"error":   title,
		"message": message,
	})
}

// statusFor 错误分类 -> HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoSurvivors):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
