// Package archive — просмотр архива, восстановление и окончательное удаление.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/EgorLis/retail-pos/internal/transport/web/logx"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	v1 "github.com/EgorLis/retail-pos/internal/transport/web/v1"
	"go.uber.org/zap"
)

type Handler struct {
	Log       *zap.Logger
	Branches  *service.Branches
	Users     *service.Users
	Clients   *service.Clients
	Purchases *service.Purchases
}

// withAll читается из ?withAll=true или из тела {"withAll": true}; пустое тело — false.
func withAll(r *http.Request) (bool, error) {
	if raw := r.URL.Query().Get("withAll"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return false, fmt.Errorf("%w: withAll must be a boolean", domain.ErrBadParams)
		}
		return v, nil
	}
	var body struct {
		WithAll bool `json:"withAll"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("%w: invalid json body: %v", domain.ErrBadParams, err)
	}
	return body.WithAll, nil
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, op string, data any, err error) {
	if err != nil {
		logx.Error(h.Log, mw.RequestIDFromCtx(r.Context()), op, "read archive failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, data)
}

func (h *Handler) ArchivedBranches(w http.ResponseWriter, r *http.Request) {
	data, err := h.Branches.ListArchived(r.Context())
	h.write(w, r, "archive.branches", data, err)
}

func (h *Handler) ArchivedUsers(w http.ResponseWriter, r *http.Request) {
	data, err := h.Users.ListArchived(r.Context())
	h.write(w, r, "archive.users", data, err)
}

func (h *Handler) ArchivedClients(w http.ResponseWriter, r *http.Request) {
	data, err := h.Clients.ListArchived(r.Context())
	h.write(w, r, "archive.clients", data, err)
}

func (h *Handler) ArchivedPurchases(w http.ResponseWriter, r *http.Request) {
	data, err := h.Purchases.ListArchived(r.Context())
	h.write(w, r, "archive.purchases", data, err)
}

// RestoreBranch возвращает филиал и его пользователей; клиентов и покупки — только с withAll.
func (h *Handler) RestoreBranch(w http.ResponseWriter, r *http.Request) {
	const op = "archive.restore_branch"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("branchId")

	all, err := withAll(r)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	counts, err := h.Branches.Restore(r.Context(), id, all)
	if err != nil {
		logx.Error(h.Log, reqID, op, "restore failed", err, "branch", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "restored", "branch", id, "with_all", all,
		"users", counts.Users, "clients", counts.Clients, "purchases", counts.Purchases)
	msg := "branch and users restored"
	if all {
		msg = "branch and all related data restored"
	}
	v1.WriteOKMessage(w, r, msg, counts)
}

func (h *Handler) PurgeBranch(w http.ResponseWriter, r *http.Request) {
	const op = "archive.purge_branch"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("branchId")

	all, err := withAll(r)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	counts, err := h.Branches.Purge(r.Context(), id, all)
	if err != nil {
		logx.Error(h.Log, reqID, op, "purge failed", err, "branch", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Warn(h.Log, reqID, op, "purged", "branch", id, "with_all", all,
		"users", counts.Users, "clients", counts.Clients, "purchases", counts.Purchases)
	v1.WriteOKMessage(w, r, "archived branch permanently deleted", counts)
}

func (h *Handler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	const op = "archive.restore_user"
	reqID := mw.RequestIDFromCtx(r.Context())
	username := domain.NormalizeUsername(r.PathValue("username"))

	if err := h.Users.Restore(r.Context(), username); err != nil {
		logx.Error(h.Log, reqID, op, "restore failed", err, "username", username)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "restored", "username", username)
	v1.WriteOKMessage(w, r, "user restored", nil)
}

func (h *Handler) PurgeUser(w http.ResponseWriter, r *http.Request) {
	const op = "archive.purge_user"
	reqID := mw.RequestIDFromCtx(r.Context())
	username := domain.NormalizeUsername(r.PathValue("username"))

	if err := h.Users.Purge(r.Context(), username); err != nil {
		logx.Error(h.Log, reqID, op, "purge failed", err, "username", username)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Warn(h.Log, reqID, op, "purged", "username", username)
	v1.WriteOKMessage(w, r, "archived user permanently deleted", nil)
}

func (h *Handler) RestoreClient(w http.ResponseWriter, r *http.Request) {
	const op = "archive.restore_client"
	reqID := mw.RequestIDFromCtx(r.Context())
	branchID := r.PathValue("branchId")

	idx, err := v1.PathIndex(r, "index")
	if err == nil {
		err = h.Clients.Restore(r.Context(), branchID, idx)
	}
	if err != nil {
		logx.Error(h.Log, reqID, op, "restore failed", err, "branch", branchID, "index", r.PathValue("index"))
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "restored", "branch", branchID, "index", idx)
	v1.WriteOKMessage(w, r, "client restored", nil)
}

func (h *Handler) PurgeClient(w http.ResponseWriter, r *http.Request) {
	const op = "archive.purge_client"
	reqID := mw.RequestIDFromCtx(r.Context())
	branchID := r.PathValue("branchId")

	idx, err := v1.PathIndex(r, "index")
	if err == nil {
		err = h.Clients.Purge(r.Context(), branchID, idx)
	}
	if err != nil {
		logx.Error(h.Log, reqID, op, "purge failed", err, "branch", branchID, "index", r.PathValue("index"))
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Warn(h.Log, reqID, op, "purged", "branch", branchID, "index", idx)
	v1.WriteOKMessage(w, r, "archived client permanently deleted", nil)
}

func (h *Handler) RestorePurchase(w http.ResponseWriter, r *http.Request) {
	const op = "archive.restore_purchase"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("id")

	if err := h.Purchases.Restore(r.Context(), id); err != nil {
		logx.Error(h.Log, reqID, op, "restore failed", err, "id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "restored", "id", id)
	v1.WriteOKMessage(w, r, "purchase restored", nil)
}

func (h *Handler) PurgePurchase(w http.ResponseWriter, r *http.Request) {
	const op = "archive.purge_purchase"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("id")

	if err := h.Purchases.Purge(r.Context(), id); err != nil {
		logx.Error(h.Log, reqID, op, "purge failed", err, "id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Warn(h.Log, reqID, op, "purged", "id", id)
	v1.WriteOKMessage(w, r, "archived purchase permanently deleted", nil)
}
