package branches

import (
	"net/http"

	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/EgorLis/retail-pos/internal/transport/web/logx"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	v1 "github.com/EgorLis/retail-pos/internal/transport/web/v1"
	"go.uber.org/zap"
)

type Handler struct {
	Log      *zap.Logger
	Branches *service.Branches
}

// Поля как в форме создания магазина
type createRequest struct {
	ShopID              string `json:"shopId"`
	Name                string `json:"name" validate:"required"`
	Location            string `json:"location"`
	ShopUserPassword    string `json:"shopUserPassword" validate:"required"`
	ShopManager         string `json:"shopManager" validate:"required"`
	ShopManagerPassword string `json:"shopManagerPassword" validate:"required"`
}

type saveRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type renameRequest struct {
	NewID    string `json:"newId"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "branches.list"
	reqID := mw.RequestIDFromCtx(r.Context())

	branches, err := h.Branches.List(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, branches)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "branches.get"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("branchId")

	b, err := h.Branches.Get(r.Context(), id)
	if err != nil {
		logx.Error(h.Log, reqID, op, "get failed", err, "branch", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, b)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "branches.create"
	reqID := mw.RequestIDFromCtx(r.Context())

	var req createRequest
	if err := v1.DecodeJSON(r, &req); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	b, err := h.Branches.Create(r.Context(), service.CreateBranchInput{
		ID:               req.ShopID,
		Name:             req.Name,
		Location:         req.Location,
		ShopUserPassword: req.ShopUserPassword,
		AdminUsername:    req.ShopManager,
		AdminPassword:    req.ShopManagerPassword,
	})
	if err != nil {
		logx.Error(h.Log, reqID, op, "create failed", err, "shop_id", req.ShopID, "name", req.Name)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "branch", b.ID)
	v1.WriteCreated(w, r, "branch created", b)
}

// Save — PUT: создаёт или обновляет название и адрес, id остаётся прежним.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	const op = "branches.save"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("branchId")

	var req saveRequest
	if err := v1.DecodeJSON(r, &req); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	b, err := h.Branches.Save(r.Context(), id, req.Name, req.Location)
	if err != nil {
		logx.Error(h.Log, reqID, op, "save failed", err, "branch", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "branch", id)
	v1.WriteOKMessage(w, r, "branch saved", b)
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	const op = "branches.rename"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("branchId")

	var req renameRequest
	if err := v1.DecodeJSON(r, &req); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	b, err := h.Branches.Rename(r.Context(), id, service.RenameBranchInput{
		NewID:    req.NewID,
		Name:     req.Name,
		Location: req.Location,
	})
	if err != nil {
		logx.Error(h.Log, reqID, op, "rename failed", err, "branch", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "from", id, "to", b.ID)
	v1.WriteOKMessage(w, r, "branch renamed", b)
}

// Delete архивирует филиал вместе с его пользователями, клиентами и покупками.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "branches.delete"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("branchId")

	counts, err := h.Branches.Delete(r.Context(), id)
	if err != nil {
		logx.Error(h.Log, reqID, op, "delete failed", err, "branch", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "archived", "branch", id,
		"users", counts.Users, "clients", counts.Clients, "purchases", counts.Purchases)
	v1.WriteOKMessage(w, r, "branch and related data archived", counts)
}
