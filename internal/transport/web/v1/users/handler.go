package users

import (
	"encoding/json"
	"net/http"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/EgorLis/retail-pos/internal/transport/web/logx"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	v1 "github.com/EgorLis/retail-pos/internal/transport/web/v1"
	"go.uber.org/zap"
)

type Handler struct {
	Log   *zap.Logger
	Users *service.Users
}

type createRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	Branch   *string     `json:"branch"`
}

type updateRequest struct {
	Password    string         `json:"password"`
	Role        domain.Role    `json:"role"`
	Branch      optionalString `json:"branch"`
	NewUsername string         `json:"newUsername"`
}

// optionalString различает отсутствующее поле и явный null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "users.list"
	reqID := mw.RequestIDFromCtx(r.Context())

	users, err := h.Users.List(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, users)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "users.create"
	reqID := mw.RequestIDFromCtx(r.Context())
	actor := v1.ActorFrom(r)

	var req createRequest
	if err := v1.DecodeJSON(r, &req); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	u, err := h.Users.Create(r.Context(), actor, service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Branch:   req.Branch,
	})
	if err != nil {
		logx.Error(h.Log, reqID, op, "create failed", err, "username", req.Username, "actor", actor.Username)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "username", u.Username, "role", u.Role, "actor", actor.Username)
	v1.WriteCreated(w, r, "user created", u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "users.update"
	reqID := mw.RequestIDFromCtx(r.Context())
	actor := v1.ActorFrom(r)
	username := domain.NormalizeUsername(r.PathValue("username"))

	var req updateRequest
	if err := v1.DecodeJSON(r, &req); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	u, err := h.Users.Update(r.Context(), actor, username, service.UpdateUserInput{
		Password:    req.Password,
		Role:        req.Role,
		Branch:      req.Branch.Value,
		BranchSet:   req.Branch.Set,
		NewUsername: req.NewUsername,
	})
	if err != nil {
		logx.Error(h.Log, reqID, op, "update failed", err, "username", username, "actor", actor.Username)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "username", u.Username, "actor", actor.Username)
	v1.WriteOKMessage(w, r, "user updated", u)
}

// Delete переносит пользователя в архив.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "users.delete"
	reqID := mw.RequestIDFromCtx(r.Context())
	actor := v1.ActorFrom(r)
	username := domain.NormalizeUsername(r.PathValue("username"))

	if err := h.Users.Delete(r.Context(), actor, username); err != nil {
		logx.Error(h.Log, reqID, op, "delete failed", err, "username", username, "actor", actor.Username)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "archived", "username", username, "actor", actor.Username)
	v1.WriteOKMessage(w, r, "user archived", nil)
}
