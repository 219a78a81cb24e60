package clients

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
	Log     *zap.Logger
	Clients *service.Clients
}

// addRequest: одиночный клиент (name, phoneNumber) или пачка (clients, replaceAll).
type addRequest struct {
	BranchID    string          `json:"branchId"`
	Name        string          `json:"name"`
	PhoneNumber string          `json:"phoneNumber"`
	Clients     []domain.Client `json:"clients"`
	ReplaceAll  bool            `json:"replaceAll"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "clients.list"
	reqID := mw.RequestIDFromCtx(r.Context())

	clients, err := h.Clients.List(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, clients)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	const op = "clients.add"
	reqID := mw.RequestIDFromCtx(r.Context())

	var req addRequest
	if err := v1.DecodeJSON(r, &req); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	switch {
	case req.Clients != nil && req.ReplaceAll:
		n, err := h.Clients.Replace(r.Context(), req.BranchID, req.Clients)
		if err != nil {
			logx.Error(h.Log, reqID, op, "replace failed", err, "branch", req.BranchID)
			v1.WriteDomainError(w, r, err)
			return
		}
		logx.Info(h.Log, reqID, op, "replaced", "branch", req.BranchID, "count", n)
		v1.WriteOKMessage(w, r, "clients replaced", map[string]int{"count": n})

	case req.Clients != nil:
		n, err := h.Clients.BulkAdd(r.Context(), req.BranchID, req.Clients)
		if err != nil {
			logx.Error(h.Log, reqID, op, "bulk add failed", err, "branch", req.BranchID)
			v1.WriteDomainError(w, r, err)
			return
		}
		logx.Info(h.Log, reqID, op, "bulk added", "branch", req.BranchID, "added", n, "received", len(req.Clients))
		v1.WriteOKMessage(w, r, "clients added", map[string]int{"addedCount": n})

	default:
		c, err := h.Clients.Add(r.Context(), req.BranchID, req.Name, req.PhoneNumber)
		if err != nil {
			logx.Error(h.Log, reqID, op, "add failed", err, "branch", req.BranchID)
			v1.WriteDomainError(w, r, err)
			return
		}
		logx.Info(h.Log, reqID, op, "added", "branch", req.BranchID, "client_id", c.ID)
		v1.WriteCreated(w, r, "client added", c)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "clients.delete"
	reqID := mw.RequestIDFromCtx(r.Context())
	branchID := r.PathValue("branchId")

	idx, err := v1.PathIndex(r, "index")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad index", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	if err := h.Clients.Delete(r.Context(), branchID, idx); err != nil {
		logx.Error(h.Log, reqID, op, "delete failed", err, "branch", branchID, "index", idx)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "archived", "branch", branchID, "index", idx)
	v1.WriteOKMessage(w, r, "client archived", nil)
}
