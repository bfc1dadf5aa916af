package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
	"github.com/yjkwon-dev/policy-pilot/internal/core/ports"
	"github.com/yjkwon-dev/policy-pilot/internal/observability/metrics"
)

// SyncPublisher hands a sync request off to the queue; the worker picks it
// up asynchronously.
type SyncPublisher interface {
	PublishSyncRequested(ctx context.Context, category string) error
}

type Router struct {
	service   string
	chat      ports.ChatService
	search    ports.PolicySearchService
	recommend ports.RecommendationService
	publisher SyncPublisher
	metrics   *metrics.HTTPServerMetrics
	traffic   TrafficPolicy
	logger    *slog.Logger
}

func NewRouter(
	service string,
	chat ports.ChatService,
	search ports.PolicySearchService,
	recommend ports.RecommendationService,
	publisher SyncPublisher,
	serverMetrics *metrics.HTTPServerMetrics,
	traffic TrafficPolicy,
	logger *slog.Logger,
) *Router {
	return &Router{
		service:   service,
		chat:      chat,
		search:    search,
		recommend: recommend,
		publisher: publisher,
		metrics:   serverMetrics,
		traffic:   traffic,
		logger:    logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.handleChat)
	mux.HandleFunc("/v1/policies/search", rt.handleSearch)
	mux.HandleFunc("/v1/recommendations", rt.handleRecommendations)
	mux.HandleFunc("/v1/admin/sync", rt.handleAdminSync)
	mux.Handle("/metrics", rt.metrics.Handler())

	handler := backpressureMiddleware(mux, rt.traffic.MaxInFlight, rt.traffic.QueueTimeout)
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	start := time.Now()
	result, err := rt.chat.Respond(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	rt.metrics.RecordEvidenceDecision(rt.service, string(result.Evidence), result.EvidenceCount, time.Since(start))
	rt.metrics.RecordVerification(rt.service, result.Revised)

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'q' is required"})
		return
	}

	filter := domain.SearchFilter{
		Region:     strings.TrimSpace(r.URL.Query().Get("region")),
		Categories: splitCSV(r.URL.Query().Get("categories")),
	}
	page := parseIntParam(r.URL.Query().Get("page"), 1)
	pageSize := parseIntParam(r.URL.Query().Get("page_size"), 20)

	results, err := rt.search.Search(r.Context(), query, filter, page, pageSize)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	rt.metrics.RecordSearchResults(rt.service, len(results))

	writeJSON(w, http.StatusOK, map[string]any{
		"results":   results,
		"page":      page,
		"page_size": pageSize,
	})
}

func (rt *Router) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Profile domain.SurveyProfile `json:"profile"`
		TopK    int                  `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	groups, err := rt.recommend.Recommend(r.Context(), req.Profile, req.TopK)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"recommendations": groups})
}

func (rt *Router) handleAdminSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.publisher.PublishSyncRequested(r.Context(), req.Category); err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "queued",
		"category": req.Category,
	})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
