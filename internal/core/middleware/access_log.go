package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/Nzyazin/ledger/internal/core/logger"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func RequestID(ctx context.Context) string {
    id, _ := ctx.Value(requestIDKey{}).(string)
    return id
}

type AccessLog struct {
    handler http.Handler
    log     logger.Logger
}

// WithAccessLog tags each request with an id (reusing an incoming X-Request-ID) and logs its outcome.
func WithAccessLog(log logger.Logger) func(http.Handler) http.Handler {
    return func(h http.Handler) http.Handler {
        return &AccessLog{handler: h, log: log}
    }
}

func (al *AccessLog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
    id := r.Header.Get(RequestIDHeader)
    if id == "" {
        id = uuid.NewString()
    }
    w.Header().Set(RequestIDHeader, id)
    r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

    rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
    start := time.Now()
    al.handler.ServeHTTP(rec, r)

    fields := []logger.Field{
        logger.StringField("request_id", id),
        logger.StringField("method", r.Method),
        logger.StringField("path", r.URL.Path),
        logger.IntField("status", rec.status),
        logger.DurationField("duration", time.Since(start)),
        logger.StringField("remote_addr", r.RemoteAddr),
        logger.StringField("user_agent", r.UserAgent()),
    }
    if rec.status >= http.StatusInternalServerError {
        al.log.Warn("HTTP request failed", fields...)
        return
    }
    al.log.Info("HTTP request", fields...)
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}
