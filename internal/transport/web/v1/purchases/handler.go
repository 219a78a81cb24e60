package purchases

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
	Log       *zap.Logger
	Purchases *service.Purchases
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "purchases.list"
	reqID := mw.RequestIDFromCtx(r.Context())

	list, err := h.Purchases.List(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, list)
}

// Create принимает покупку как есть; вложения приходят base64 data-URI внутри записи.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "purchases.create"
	reqID := mw.RequestIDFromCtx(r.Context())

	var in domain.Purchase
	if err := v1.DecodeJSON(r, &in); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	p, err := h.Purchases.Create(r.Context(), in)
	if err != nil {
		logx.Error(h.Log, reqID, op, "create failed", err, "id", in.ID)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "id", p.ID, "branch", p.BranchID, "items", len(p.Purchases))
	v1.WriteCreated(w, r, "purchase saved", p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "purchases.delete"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("id")

	if err := h.Purchases.Delete(r.Context(), id); err != nil {
		logx.Error(h.Log, reqID, op, "delete failed", err, "id", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "archived", "id", id)
	v1.WriteOKMessage(w, r, "purchase archived", nil)
}
