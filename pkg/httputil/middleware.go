package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	HostKey      contextKey = "host"

	requestKey contextKey = "request"
)

// request is shared by every layer below Logger so that values found deep
// in the chain, such as the authenticated host, reach the access log.
type request struct {
	logger *logger.Logger
}

// RequestID middleware adds a request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger writes one access log line per request and makes a request-scoped
// logger available through LoggerFrom.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			req := &request{logger: log.WithRequestID(GetRequestID(r.Context()))}
			ctx := context.WithValue(r.Context(), requestKey, req)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			event := req.logger.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				event = req.logger.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// Recoverer turns a panic into a 500 JSON error
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					LoggerFrom(r.Context(), log).Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					Error(w, errors.Internal("an unexpected error occurred"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFrom returns the request-scoped logger, or fallback outside Logger.
func LoggerFrom(ctx context.Context, fallback *logger.Logger) *logger.Logger {
	if req, ok := ctx.Value(requestKey).(*request); ok {
		return req.logger
	}
	return fallback
}

// GetHost retrieves the authenticated sheet host from context
func GetHost(ctx context.Context) string {
	if host, ok := ctx.Value(HostKey).(string); ok {
		return host
	}
	return ""
}

// WithHost records the authenticated sheet host on the context and on the
// request's access log line.
func WithHost(ctx context.Context, host string) context.Context {
	if req, ok := ctx.Value(requestKey).(*request); ok {
		req.logger = &logger.Logger{Logger: req.logger.With().Str("host", host).Logger()}
	}
	return context.WithValue(ctx, HostKey, host)
}
