package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"paper-reader/internal/apperr"
	"paper-reader/internal/metrics"
	"paper-reader/internal/session"
)

// RequestTimeout bounds non-streaming handlers.
const RequestTimeout = 60 * time.Second

var validate = validator.New()

// NewRouter creates a chi router with standard middleware (RequestID, RealIP, Recoverer, Logger, Metrics).
// Timeout is applied per route group because streaming responses outlive it.
func NewRouter(log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Recoverer(log))
	r.Use(RequestLogger(log))
	r.Use(Metrics)

	return r
}

// Timeout returns chi's Timeout middleware with RequestTimeout.
func Timeout() func(http.Handler) http.Handler {
	return middleware.Timeout(RequestTimeout)
}

// WriteJSON writes a JSON response with proper headers.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}

// DecodeJSON decodes the request body into v and validates it. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return &ValidationError{Err: fmt.Errorf("invalid JSON body: %w", err)}
		}
	}
	if err := validate.Struct(v); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError wraps a request body that could not be decoded or failed validation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// HealthHandler returns a simple health check endpoint.
func HealthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Warn("healthz write failed", "err", err)
		}
	}
}

// RequestLogger is a lightweight HTTP logger that uses slog.
func RequestLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Metrics records request counts and latency per route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Recoverer logs panics via slog while preserving chi's Recoverer behavior.
func Recoverer(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic recovered", "panic", rec, "path", r.URL.Path, "method", r.Method, "request_id", middleware.GetReqID(r.Context()))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Fail writes an error response with consistent logging.
func Fail(log *slog.Logger, w http.ResponseWriter, message string, err error, status int) {
	log.Error(message, "err", err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	http.Error(w, message, status)
}

// ErrorBody is the JSON shape of a classified failure. Banner is the text shown to the user.
type ErrorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Banner string `json:"banner,omitempty"`
}

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	var verr *ValidationError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr), apperr.Is(err, apperr.KindInvalidInput):
		return http.StatusBadRequest
	case apperr.Is(err, apperr.KindConfiguration):
		return http.StatusPreconditionFailed
	case apperr.Is(err, apperr.KindExtraction):
		return http.StatusBadGateway
	case apperr.Is(err, apperr.KindGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FailError writes err as JSON with the status from StatusOf. Configuration and extraction
// failures carry their user-facing banner.
func FailError(log *slog.Logger, w http.ResponseWriter, message string, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error(message, "err", err)
	} else {
		log.Warn(message, "err", err, "status", status)
	}
	body := ErrorBody{Error: message, Kind: string(apperr.KindOf(err))}
	switch {
	case apperr.Is(err, apperr.KindConfiguration), apperr.Is(err, apperr.KindExtraction):
		body.Banner = apperr.UserMessage(err)
	case status < http.StatusInternalServerError:
		body.Error = err.Error()
	}
	WriteJSON(w, status, body)
}
