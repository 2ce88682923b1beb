package httpserver

import (
	"net/http"

	"github.com/yndnr/shardkv/internal/server/httpserver/handler"
	"github.com/yndnr/shardkv/internal/telemetry/logger"
	"github.com/yndnr/shardkv/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Service handles key-value operations.
	Service handler.KVService

	// Logger for request logging.
	Logger logger.Logger

	// Metrics records HTTP metrics. When ServeMetrics is set its registry
	// is also exposed on GET /metrics.
	Metrics      *metric.Registry
	ServeMetrics bool

	// RateLimit is the per-IP rate limit in requests/second. Zero disables it.
	RateLimit float64

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64
}

// NewRouter creates the HTTP handler with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	opts := []handler.Option{
		handler.WithLogger(log),
		handler.WithMaxBodyBytes(cfg.MaxBodyBytes),
	}
	if cfg.ServeMetrics && cfg.Metrics != nil {
		opts = append(opts, handler.WithMetricsHandler(cfg.Metrics.Handler()))
	}
	h := handler.New(cfg.Service, opts...)

	// Order: Recover -> RequestID -> Audit -> RateLimit -> Handler
	return Chain(h,
		Recover(log),
		RequestID(),
		Audit(log, cfg.Metrics),
		RateLimit(cfg.RateLimit),
	)
}
