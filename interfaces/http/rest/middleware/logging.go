package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultQuietPaths = []string{"/health", "/ready", "/metrics"}

// Logger writes one access log line per request. Quiet paths log at Debug,
// server errors at Error and everything else at Info. Without quietPaths the
// probe endpoints are quiet.
func Logger(logger *zap.Logger, quietPaths ...string) func(next http.Handler) http.Handler {
	if len(quietPaths) == 0 {
		quietPaths = defaultQuietPaths
	}
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := zapcore.InfoLevel
			if _, ok := quiet[r.URL.Path]; ok {
				level = zapcore.DebugLevel
			} else if status >= http.StatusInternalServerError {
				level = zapcore.ErrorLevel
			}

			ce := logger.Check(level, "HTTP Request")
			if ce == nil {
				return
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
			}
			if userID := r.Header.Get(UserIDHeader); userID != "" {
				fields = append(fields, zap.String("userID", userID))
			}
			ce.Write(fields...)
		})
	}
}
