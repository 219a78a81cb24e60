package health

import (
	"context"
	"net/http"
	"time"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/transport/web/logx"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	v1 "github.com/EgorLis/retail-pos/internal/transport/web/v1"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(context.Context) error
}

// Handler: Store обязателен, Cache и Storage — только если настроены.
type Handler struct {
	Log     *zap.Logger
	Store   Pinger
	Cache   Pinger
	Storage Pinger
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	v1.WriteOKData(w, r, "ok")
}

// Readiness пингует хранилище документа, Redis и S3 (если они есть).
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	const op = "health.readiness"
	reqID := mw.RequestIDFromCtx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := []struct {
		name string
		p    Pinger
	}{
		{"store", h.Store},
		{"cache", h.Cache},
		{"storage", h.Storage},
	}
	for _, c := range checks {
		if c.p == nil {
			continue
		}
		if err := c.p.Ping(ctx); err != nil {
			logx.Error(h.Log, reqID, op, c.name+" ping failed", err)
			v1.WriteEnvelope(w, r, http.StatusServiceUnavailable, domain.Fail(c.name+" is not ready"))
			return
		}
	}

	logx.Info(h.Log, reqID, op, "ready")
	v1.WriteOKData(w, r, "ready")
}
