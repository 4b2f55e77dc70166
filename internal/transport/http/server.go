// Package http exposes the trigger, status and feed surface. Handlers stay
// thin: decode, delegate to a service, encode.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sloghttp "github.com/samber/slog-http"

	analyticsService "github.com/reshetovitsme/telegram-pulse/internal/modules/analytics/service"
	dictionaryDomain "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/domain"
	dictionaryService "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/service"
	feedService "github.com/reshetovitsme/telegram-pulse/internal/modules/feed/service"
	ingestionService "github.com/reshetovitsme/telegram-pulse/internal/modules/ingestion/service"
	matchingService "github.com/reshetovitsme/telegram-pulse/internal/modules/matching/service"
	syncDomain "github.com/reshetovitsme/telegram-pulse/internal/modules/sync/domain"
	syncService "github.com/reshetovitsme/telegram-pulse/internal/modules/sync/service"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/config"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

// Server handles HTTP requests
type Server struct {
	cfg        *config.Config
	sync       *syncService.Service
	analytics  *analyticsService.Engine
	dictionary *dictionaryService.Service
	ingestion  *ingestionService.Service
	matching   *matchingService.Engine
	feed       *feedService.Service
	logger     *slog.Logger

	httpServer *http.Server
}

// New creates a new HTTP server
func New(
	cfg *config.Config,
	sync *syncService.Service,
	analytics *analyticsService.Engine,
	dictionary *dictionaryService.Service,
	ingestion *ingestionService.Service,
	matching *matchingService.Engine,
	feed *feedService.Service,
	logger *slog.Logger,
) *Server {
	return &Server{
		cfg:        cfg,
		sync:       sync,
		analytics:  analytics,
		dictionary: dictionary,
		ingestion:  ingestion,
		matching:   matching,
		feed:       feed,
		logger:     logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sync/new", s.handleSyncNew)
	mux.HandleFunc("POST /api/sync/historical", s.handleSyncHistorical)
	mux.HandleFunc("POST /api/sync/auto", s.handleSyncAuto)
	mux.HandleFunc("POST /api/sync/reset", s.handleSyncReset)
	mux.HandleFunc("GET /api/sync/status", s.handleSyncStatus)

	mux.HandleFunc("POST /api/analytics/aggregate", s.handleAnalyticsAggregate)
	mux.HandleFunc("POST /api/analytics/backfill", s.handleAnalyticsBackfill)

	mux.HandleFunc("GET /api/dictionaries", s.handleListDictionaries)
	mux.HandleFunc("POST /api/dictionaries", s.handleCreateDictionary)
	mux.HandleFunc("GET /api/dictionaries/{id}", s.handleGetDictionary)
	mux.HandleFunc("PUT /api/dictionaries/{id}", s.handleUpdateDictionary)
	mux.HandleFunc("DELETE /api/dictionaries/{id}", s.handleDeleteDictionary)
	mux.HandleFunc("GET /api/dictionaries/{id}/categories", s.handleCategoryTree)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("GET /api/categories/{id}/words", s.handleListWords)
	mux.HandleFunc("POST /api/words", s.handleCreateWord)
	mux.HandleFunc("PUT /api/words/{id}", s.handleUpdateWord)
	mux.HandleFunc("DELETE /api/words/{id}", s.handleDeleteWord)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /rss/{channelID}", s.handleRSSFeed)

	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr)

	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleSyncNew(w http.ResponseWriter, r *http.Request) {
	batchSize, maxBatches, ok := syncParams(w, r)
	if !ok {
		return
	}
	result, err := s.sync.SyncNew(r.Context(), batchSize, maxBatches)
	if err != nil {
		s.serverError(w, "forward sync failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncHistorical(w http.ResponseWriter, r *http.Request) {
	batchSize, maxBatches, ok := syncParams(w, r)
	if !ok {
		return
	}
	result, err := s.sync.SyncHistorical(r.Context(), batchSize, maxBatches)
	if err != nil {
		s.serverError(w, "backward sync failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncAuto(w http.ResponseWriter, r *http.Request) {
	batchSize, maxBatches, ok := syncParams(w, r)
	if !ok {
		return
	}
	result, err := s.sync.AutoSync(r.Context(), batchSize, maxBatches)
	if err != nil {
		s.serverError(w, "auto sync failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncReset(w http.ResponseWriter, r *http.Request) {
	direction := syncDomain.Direction(r.URL.Query().Get("direction"))
	if direction != "" && !direction.IsValid() {
		http.Error(w, "unknown sync direction", http.StatusBadRequest)
		return
	}
	if err := s.sync.Reset(r.Context(), direction); err != nil {
		s.serverError(w, "sync reset failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.sync.Status(r.Context())
	if err != nil {
		s.serverError(w, "sync status failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAnalyticsAggregate(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analytics.AggregateLast5Minutes(r.Context())
	if err != nil {
		s.serverError(w, "aggregation failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAnalyticsBackfill(w http.ResponseWriter, r *http.Request) {
	start, ok := parseTimeParam(w, r, "start")
	if !ok {
		return
	}
	end, ok := parseTimeParam(w, r, "end")
	if !ok {
		return
	}

	stats, err := s.analytics.BackfillAll(r.Context(), start, end)
	if err != nil {
		s.serverError(w, "backfill failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

type dictionaryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (s *Server) handleListDictionaries(w http.ResponseWriter, r *http.Request) {
	dictionaries, err := s.dictionary.ListDictionaries(r.Context())
	if err != nil {
		s.serverError(w, "list dictionaries failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, dictionaries)
}

func (s *Server) handleCreateDictionary(w http.ResponseWriter, r *http.Request) {
	var req dictionaryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	d, err := s.dictionary.CreateDictionary(r.Context(), req.Name, req.Description, active)
	if err != nil {
		s.serverError(w, "create dictionary failed", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDictionary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := s.dictionary.GetDictionary(r.Context(), id)
	if err != nil {
		s.notFoundOrError(w, "get dictionary failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDictionary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := s.dictionary.GetDictionary(r.Context(), id)
	if err != nil {
		s.notFoundOrError(w, "get dictionary failed", err)
		return
	}

	var req dictionaryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Name != "" {
		d.Name = req.Name
	}
	if req.Description != nil {
		d.Description = req.Description
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if err := s.dictionary.UpdateDictionary(r.Context(), d); err != nil {
		s.serverError(w, "update dictionary failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDictionary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.dictionary.DeleteDictionary(r.Context(), id); err != nil {
		s.serverError(w, "delete dictionary failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategoryTree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tree, err := s.dictionary.CategoryTree(r.Context(), id)
	if err != nil {
		s.serverError(w, "category tree failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, tree)
}

type categoryRequest struct {
	DictionaryID int64   `json:"dictionary_id"`
	ParentID     *int64  `json:"parent_id,omitempty"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	category := &dictionaryDomain.Category{
		DictionaryID: req.DictionaryID,
		ParentID:     req.ParentID,
		Name:         req.Name,
		Description:  req.Description,
	}
	if err := s.dictionary.CreateCategory(r.Context(), category); err != nil {
		s.serverError(w, "create category failed", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.dictionary.DeleteCategory(r.Context(), id); err != nil {
		s.serverError(w, "delete category failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wordRequest struct {
	CategoryID int64          `json:"category_id"`
	Word       string         `json:"word"`
	IsActive   *bool          `json:"is_active,omitempty"`
	ExtraData  map[string]any `json:"extra_data,omitempty"`
}

func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	words, err := s.dictionary.ListWords(r.Context(), id)
	if err != nil {
		s.serverError(w, "list words failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, words)
}

func (s *Server) handleCreateWord(w http.ResponseWriter, r *http.Request) {
	var req wordRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	word := &dictionaryDomain.Word{
		CategoryID: req.CategoryID,
		Word:       req.Word,
		IsActive:   active,
		ExtraData:  req.ExtraData,
	}
	if err := s.dictionary.CreateWord(r.Context(), word); err != nil {
		s.serverError(w, "create word failed", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, word)
}

func (s *Server) handleUpdateWord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	word, err := s.dictionary.GetWord(r.Context(), id)
	if err != nil {
		s.notFoundOrError(w, "get word failed", err)
		return
	}

	var req wordRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Word != "" {
		word.Word = req.Word
	}
	if req.CategoryID != 0 {
		word.CategoryID = req.CategoryID
	}
	if req.IsActive != nil {
		word.IsActive = *req.IsActive
	}
	if req.ExtraData != nil {
		word.ExtraData = req.ExtraData
	}
	if err := s.dictionary.UpdateWord(r.Context(), word); err != nil {
		s.serverError(w, "update word failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, word)
}

func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.dictionary.DeleteWord(r.Context(), id); err != nil {
		s.serverError(w, "delete word failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	overview, err := s.ingestion.Overview(r.Context())
	if err != nil {
		s.serverError(w, "stats failed", err)
		return
	}
	matching, err := s.matching.Stats(r.Context())
	if err != nil {
		s.serverError(w, "matching stats failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"overview": overview,
		"matching": matching,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.ingestion.HealthCheck(r.Context())
	status := http.StatusOK
	if !health.Storage {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	channelID, err := strconv.ParseInt(r.PathValue("channelID"), 10, 64)
	if err != nil {
		http.Error(w, "Channel ID must be numeric", http.StatusBadRequest)
		return
	}

	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)
	feed, err := s.feed.GenerateFeed(r.Context(), channelID, baseURL)
	if err != nil {
		if errors.Is(err, apperrors.ErrChannelNotFound) {
			http.Error(w, "Channel not found", http.StatusNotFound)
			return
		}
		s.serverError(w, "feed generation failed", err)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.serverError(w, "RSS rendering failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (s *Server) notFoundOrError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.serverError(w, msg, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "id must be numeric", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// syncParams reads the optional batch_size and max_batches query overrides.
// Absent parameters come back as zero, which the sync service maps to its
// configured defaults.
func syncParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	batchSize, ok := parseIntParam(w, r, "batch_size")
	if !ok {
		return 0, 0, false
	}
	maxBatches, ok := parseIntParam(w, r, "max_batches")
	if !ok {
		return 0, 0, false
	}
	return batchSize, maxBatches, true
}

func parseIntParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		http.Error(w, name+" must be a non-negative integer", http.StatusBadRequest)
		return 0, false
	}
	return value, true
}

func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		http.Error(w, name+" must be RFC 3339", http.StatusBadRequest)
		return nil, false
	}
	return &t, true
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
