package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/pkg/api/handlers"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout on the read-side endpoints
//   - Permissive CORS
//
// Routes:
//   - GET / - Service banner
//   - GET /health - Service and dependency health
//   - GET /metrics - Prometheus exposition (when metrics are enabled)
//   - POST /upload - CSV upload admission
//   - GET /status/{fileID} - Per-file progress
//   - GET /results/{fileID} - Paginated processed records
func NewRouter(config Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.NotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	uploadHandler := handlers.NewUploadHandler(deps.Store, deps.Blobs, deps.Ingest,
		handlers.UploadLimits{
			MaxBytes:     config.MaxUploadBytes(),
			AllowedTypes: config.AllowedContentTypes,
		}, deps.Metrics)
	statusHandler := handlers.NewStatusHandler(deps.Store)
	resultsHandler := handlers.NewResultsHandler(deps.Store)
	infoHandler := handlers.NewInfoHandler(deps.Version)

	var stats handlers.StatsSource
	if deps.Ingest != nil {
		stats = deps.Ingest
	}
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Blobs, stats)

	// Read-side routes run under the request timeout.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(config.RequestTimeout))

		r.Get("/", infoHandler.Root)
		r.Get("/health", healthHandler.Check)
		r.Get("/status/{fileID}", statusHandler.Get)
		r.Get("/results/{fileID}", resultsHandler.List)

		if deps.MetricsHandler != nil {
			r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
		}
	})

	// Uploads are exempt from the request timeout: reading a large payload
	// legitimately takes longer and is bounded by the server's ReadTimeout.
	r.Post("/upload", uploadHandler.Upload)

	return r
}

// isQuietPath reports whether the path is polled by machines (health
// probes, Prometheus scrapes) and should log at DEBUG to reduce noise.
func isQuietPath(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/health/")
}

// corsHandler allows any origin and answers preflight requests.
func corsHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs requests using the internal logger and feeds the
// request metrics sink.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck and scrape requests are logged at DEBUG to reduce noise
func requestLogger(m handlers.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			logger.Debug("API request started",
				logger.RequestID(requestID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.ClientIP(r.RemoteAddr))

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			// The route pattern keeps metric cardinality bounded; every
			// unknown path collapses into one label value.
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			handlers.ObserveRequest(m, r.Method, route, ww.Status(), duration)

			logArgs := []any{
				logger.RequestID(requestID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(ww.Status()),
				logger.Bytes(ww.BytesWritten()),
				logger.DurationMs(float64(duration.Microseconds()) / 1000.0),
			}

			if isQuietPath(r.URL.Path) {
				logger.Debug("API request completed", logArgs...)
			} else {
				logger.Info("API request completed", logArgs...)
			}
		})
	}
}
