// Package chi exposes the ingest HTTP API that feeds the request pipeline
// and the composite router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/helix-search/helix/internal/composite"
	"github.com/helix-search/helix/internal/config"
	"github.com/helix-search/helix/internal/db"
	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/domain/request"
	"github.com/helix-search/helix/internal/logger"
	"github.com/helix-search/helix/internal/metrics"
	"github.com/helix-search/helix/internal/pipeline"
	"github.com/helix-search/helix/internal/usecase/dispatch"
)

// Server handles the ingest API.
type Server struct {
	assembler *pipeline.Assembler
	dispatch  *dispatch.Service
	router    *composite.Router
	pinger    db.Pinger
	defaults  config.PipelineConfig
	logger    *zap.Logger
}

// NewServer creates the ingest HTTP server.
func NewServer(
	assembler *pipeline.Assembler,
	dispatcher *dispatch.Service,
	router *composite.Router,
	pinger db.Pinger,
	defaults config.PipelineConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		assembler: assembler,
		dispatch:  dispatcher,
		router:    router,
		pinger:    pinger,
		defaults:  defaults,
		logger:    logger,
	}
}

// Routes mounts the API on a chi router.
func (s *Server) Routes(apiKeys []string) chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(requestLogMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/index", s.handleIngest(request.Index))
		r.Post("/train", s.handleIngest(request.Train))
		r.Post("/search", s.handleIngest(request.Search))
		r.Post("/evaluate", s.handleIngest(request.Evaluate))

		r.Get("/routes", s.handleListRoutes)
		r.Post("/routes", s.handleAddRoute)
		r.Post("/save", s.handleSave)
		r.Get("/state", s.handleState)
	})
	return r
}

// ingestRequest is the ingest API payload. Items are raw JSON values: a JSON
// object is treated as a document descriptor, a JSON string as raw content.
// GroundTruths, when present, pair positionally with items.
type ingestRequest struct {
	Items        []json.RawMessage `json:"items"`
	GroundTruths []json.RawMessage `json:"ground_truths,omitempty"`
	BatchSize    *int              `json:"batch_size,omitempty"`
	Type         string            `json:"type,omitempty"`
	MimeType     string            `json:"mime_type,omitempty"`
	Weight       float64           `json:"weight,omitempty"`
	KeepIDs      bool              `json:"keep_ids,omitempty"`
	TopK         int               `json:"top_k,omitempty"`
}

func (s *Server) handleIngest(mode request.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
			return
		}
		if body.BatchSize != nil && *body.BatchSize < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "batch_size must not be negative")
			return
		}
		if len(body.Items) > s.defaults.MaxBatchSize {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Sprintf("too many items (max %d)", s.defaults.MaxBatchSize))
			return
		}
		if len(body.GroundTruths) > len(body.Items) {
			writeError(w, http.StatusBadRequest, "bad_request",
				"more ground truths than items")
			return
		}

		items, err := decodeItems(body.Items, body.GroundTruths)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		opts := pipeline.Options{
			BatchSize: s.defaults.DefaultBatchSize,
			Type:      pipeline.InputType(body.Type),
			KeepIDs:   body.KeepIDs || s.defaults.KeepIDs,
			MimeType:  body.MimeType,
			Weight:    body.Weight,
			TopK:      body.TopK,
		}
		if body.BatchSize != nil {
			opts.BatchSize = *body.BatchSize
		}

		src := pipeline.FromSlice(items)
		var seq *pipeline.Sequence
		switch mode {
		case request.Train:
			seq = s.assembler.Train(src, opts)
		case request.Search:
			seq = s.assembler.Search(src, opts)
		case request.Evaluate:
			seq = s.assembler.Evaluate(src, opts)
		default:
			seq = s.assembler.Index(src, opts)
		}

		stats, err := s.dispatch.Run(r.Context(), seq)
		if err != nil {
			s.writeDomainError(w, r, err, "dispatch failed")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// decodeItems turns raw JSON values into assembler items, pairing ground
// truths positionally when supplied.
func decodeItems(raw, groundTruths []json.RawMessage) ([]any, error) {
	decode := func(m json.RawMessage, pos int) (any, error) {
		var v any
		if err := json.Unmarshal(m, &v); err != nil {
			return nil, fmt.Errorf("item %d: invalid JSON", pos)
		}
		switch v.(type) {
		case map[string]any, string:
			return v, nil
		default:
			return nil, fmt.Errorf("item %d: must be an object or a string", pos)
		}
	}

	items := make([]any, 0, len(raw))
	for i, m := range raw {
		item, err := decode(m, i)
		if err != nil {
			return nil, err
		}
		if i < len(groundTruths) {
			gt, err := decode(groundTruths[i], i)
			if err != nil {
				return nil, err
			}
			items = append(items, pipeline.Pair{Primary: item, GroundTruth: gt})
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

type addRouteRequest struct {
	Name      string `json:"name"`
	Component string `json:"component"`
	Op        string `json:"op"`
	Persist   bool   `json:"persist"`
}

func (s *Server) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	var body addRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if err := s.router.AddRoute(body.Name, body.Component, composite.Op(body.Op), body.Persist); err != nil {
		s.writeDomainError(w, r, err, "add route failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"route": body.Name})
}

func (s *Server) handleListRoutes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"routes":     s.router.Routes(),
		"unresolved": s.router.Unresolved(),
		"stored":     s.router.StoredRoutes(),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.router.Save(r.Context()); err != nil {
		s.writeDomainError(w, r, err, "save failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	components := make([]map[string]any, 0, s.router.Len())
	for _, c := range s.router.Components() {
		components = append(components, map[string]any{
			"name":    c.Name(),
			"trained": c.Trained(),
			"updated": c.Updated(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trained":    s.router.Trained(),
		"updated":    s.router.Updated(),
		"components": components,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pinger.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "database not reachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps domain sentinels to HTTP statuses, logging through
// the per-request logger installed by the middleware.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logger.FromContext(r.Context()).Warn(msg, zap.Error(err))
	switch {
	case errors.Is(err, domain.ErrBadDocumentType):
		writeError(w, http.StatusBadRequest, "bad_document_type", err.Error())
	case errors.Is(err, domain.ErrInvalidComponentSpec):
		writeError(w, http.StatusBadRequest, "invalid_component_spec", err.Error())
	case errors.Is(err, domain.ErrUnresolvedRoute):
		writeError(w, http.StatusConflict, "unresolved_route", err.Error())
	case errors.Is(err, domain.ErrNoRoute):
		writeError(w, http.StatusNotFound, "no_route", err.Error())
	case errors.Is(err, domain.ErrEncoderError):
		writeError(w, http.StatusBadGateway, "encoder_error", err.Error())
	case errors.Is(err, domain.ErrPersistenceFailure):
		writeError(w, http.StatusInternalServerError, "persistence_failure", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
