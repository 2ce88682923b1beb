package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/yndnr/shardkv/internal/core/domain"
	"github.com/yndnr/shardkv/internal/storage/memory"
	"github.com/yndnr/shardkv/internal/storage/snapshot"
	"github.com/yndnr/shardkv/internal/telemetry/logger"
	"github.com/yndnr/shardkv/pkg/cmap"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 8 << 20

// KVService is the part of service.KVService the handlers call.
type KVService interface {
	Add(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Update(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error

	AddMany(ctx context.Context, entries map[string]string) (memory.BulkResult, error)
	UpdateMany(ctx context.Context, entries map[string]string) (memory.BulkResult, error)
	RemoveMany(ctx context.Context, keys []string) (memory.BulkResult, error)

	GetAll(ctx context.Context) map[string]string
	ClearAll(ctx context.Context) bool
	Len() int
	ShardCount() int
	ShardStats(ctx context.Context) []cmap.ShardStats

	Dump(ctx context.Context, path string) (*snapshot.Info, error)
	Load(ctx context.Context, path string) (*snapshot.Info, error)
}

// Handler is the main HTTP handler that routes requests to the KV service.
type Handler struct {
	kv             KVService
	logger         logger.Logger
	maxBodyBytes   int64
	metricsHandler http.Handler
	mux            *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithMetricsHandler serves m on GET /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) {
		h.metricsHandler = m
	}
}

// New creates a Handler backed by kv.
func New(kv KVService, opts ...Option) *Handler {
	h := &Handler{
		kv:           kv,
		logger:       logger.Default(),
		maxBodyBytes: DefaultMaxBodyBytes,
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	// Health endpoints
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	if h.metricsHandler != nil {
		h.mux.Handle("GET /metrics", h.metricsHandler)
	}

	// Single-key and whole-store endpoints
	h.mux.HandleFunc("POST /kv", h.handleAdd)
	h.mux.HandleFunc("PUT /kv", h.handleUpdate)
	h.mux.HandleFunc("GET /kv", h.handleGetAll)
	h.mux.HandleFunc("DELETE /kv", h.handleClearAll)
	h.mux.HandleFunc("GET /kv/{key...}", h.handleGet)
	h.mux.HandleFunc("DELETE /kv/{key...}", h.handleRemove)

	// Bulk endpoints
	h.mux.HandleFunc("POST /kv/bulk", h.handleAddMany)
	h.mux.HandleFunc("PUT /kv/bulk", h.handleUpdateMany)
	h.mux.HandleFunc("DELETE /kv/bulk", h.handleRemoveMany)

	// Persistence endpoints
	h.mux.HandleFunc("POST /kv/dump", h.handleDump)
	h.mux.HandleFunc("POST /kv/load", h.handleLoad)

	// Admin endpoints
	h.mux.HandleFunc("GET /admin/v1/shards", h.handleShards)
	h.mux.HandleFunc("GET /admin/v1/status/summary", h.handleStatus)
}

// decodeJSON reads the request body into dst. The body is capped at the
// configured limit and must hold exactly one JSON value.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ErrInvalidRequest.WithDetails("request body is empty")
		}
		return bodyError(err, "malformed JSON body")
	}
	// Token reports a stray closing delimiter as an error, which More does not.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return bodyError(err, "unexpected data after JSON body")
	}
	return nil
}

func bodyError(err error, details string) *domain.DomainError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.ErrBodyTooLarge.WithDetails("limit is " + formatBytes(tooLarge.Limit))
	}
	de := domain.ErrInvalidRequest.WithDetails(details)
	if err != nil {
		de = de.WithCause(err)
	}
	return de
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := encode(w, response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeNoContent writes a bodiless 204.
func (h *Handler) writeNoContent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Request-ID", getRequestID(r))
	w.WriteHeader(http.StatusNoContent)
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := encode(w, response); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, details any) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		status := de.StatusCode()
		if status >= http.StatusInternalServerError {
			h.log(r).Error("request failed", "code", de.Code, "error", err, "cause", de.Cause)
		}
		message := de.Message
		if de.Details != "" {
			message += ": " + de.Details
		}
		h.writeError(w, r, status, de.Code, message, details)
		return
	}

	h.log(r).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, domain.ErrInternal.Message, nil)
}

func (h *Handler) log(r *http.Request) logger.Logger {
	return h.logger.WithContext(r.Context())
}

// getRequestID returns the request ID set by the RequestID middleware,
// falling back to the inbound header.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
