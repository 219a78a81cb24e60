package backup

import (
	"net/http"

	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/EgorLis/retail-pos/internal/transport/web/logx"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	v1 "github.com/EgorLis/retail-pos/internal/transport/web/v1"
	"go.uber.org/zap"
)

type Handler struct {
	Log     *zap.Logger
	Backups *service.Backups
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "backup.create"
	reqID := mw.RequestIDFromCtx(r.Context())

	res, err := h.Backups.Create(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "backup failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "key", res.StorageKey, "size", res.Size)
	v1.WriteCreated(w, r, "backup stored", res)
}
