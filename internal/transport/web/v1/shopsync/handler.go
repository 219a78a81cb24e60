package shopsync

import (
	"net/http"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/EgorLis/retail-pos/internal/transport/web/logx"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	v1 "github.com/EgorLis/retail-pos/internal/transport/web/v1"
	"go.uber.org/zap"
)

type Handler struct {
	Log  *zap.Logger
	Sync *service.Sync
}

// Merge — приём пакета от магазина на стороне HQ.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	const op = "sync.merge"
	reqID := mw.RequestIDFromCtx(r.Context())

	var req domain.SyncRequest
	if err := v1.DecodeJSON(r, &req); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	res, err := h.Sync.Merge(r.Context(), req)
	if err != nil {
		logx.Error(h.Log, reqID, op, "merge failed", err, "shop_id", req.ShopID)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "shop_id", req.ShopID,
		"received_purchases", len(req.Purchases), "synced_purchases", res.SyncedPurchases,
		"received_clients", len(req.Clients), "synced_clients", res.SyncedClients)
	v1.WriteOKMessage(w, r, "sync completed", res)
}

// Push — ручной запуск отправки несинхронизированных данных в HQ.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	const op = "sync.push"
	reqID := mw.RequestIDFromCtx(r.Context())

	res, err := h.Sync.Push(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "push failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "sent", res.Sent, "clients", res.Clients)
	v1.WriteOKMessage(w, r, "pushed to HQ", res)
}
