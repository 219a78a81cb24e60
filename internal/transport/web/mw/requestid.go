package mw

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const requestIDKey ctxKey = "req_id"

const HeaderRequestID = "X-Request-ID"

// WithRequestID берёт X-Request-ID из запроса или выдаёт новый.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// metaWriter запоминает статус и размер ответа
type metaWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (m *metaWriter) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *metaWriter) Write(b []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.size += n
	return n, err
}

func (m *metaWriter) Status() int {
	if m.status == 0 {
		return http.StatusOK
	}
	return m.status
}

func (m *metaWriter) Unwrap() http.ResponseWriter { return m.ResponseWriter }

func wrap(w http.ResponseWriter) *metaWriter {
	if mw, ok := w.(*metaWriter); ok {
		return mw
	}
	return &metaWriter{ResponseWriter: w}
}
