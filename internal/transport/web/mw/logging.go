package mw

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Logging — middleware: финиш запроса, статус, размер, длительность
func Logging(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			mw := wrap(w)

			next.ServeHTTP(mw, r)

			fields := []zap.Field{
				zap.String("req_id", RequestIDFromCtx(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", mw.Status()),
				zap.Int("size", mw.size),
				zap.Duration("duration", time.Since(start)),
			}
			if a, ok := actorFromRequest(r); ok {
				fields = append(fields, zap.String("role", string(a.Role)), zap.String("user", a.Username))
			}
			if mw.Status() >= http.StatusInternalServerError {
				l.Error("request", fields...)
				return
			}
			l.Info("request", fields...)
		})
	}
}

// Recover превращает панику обработчика в 500 и пишет стек в лог.
func Recover(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					l.Error("panic",
						zap.String("req_id", RequestIDFromCtx(r.Context())),
						zap.Any("panic", rec),
						zap.Stack("stack"))
					writeFail(w, http.StatusInternalServerError, "unexpected")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
