package auth

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
	Log   *zap.Logger
	Users *service.Users
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login сверяет пароль и пишет попытку в журнал входов.
// Ответ содержит роль и филиал: дальше клиент шлёт их в x-user-role / x-username.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "auth.login"
	reqID := mw.RequestIDFromCtx(r.Context())

	var req loginRequest
	if err := v1.DecodeJSON(r, &req); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	res, err := h.Users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		logx.Error(h.Log, reqID, op, "login failed", err, "username", req.Username)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "username", res.Username, "role", res.Role)
	v1.WriteOKMessage(w, r, "login successful", res)
}

func (h *Handler) LoginLogs(w http.ResponseWriter, r *http.Request) {
	const op = "auth.login_logs"
	reqID := mw.RequestIDFromCtx(r.Context())

	logs, err := h.Users.LoginLogs(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "read logs failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, logs)
}

// AppendLoginLog — запись журнала от клиента (например, вход, проверенный на стороне магазина).
func (h *Handler) AppendLoginLog(w http.ResponseWriter, r *http.Request) {
	const op = "auth.append_login_log"
	reqID := mw.RequestIDFromCtx(r.Context())

	var entry domain.LoginLog
	if err := v1.DecodeJSON(r, &entry); err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	id, err := h.Users.AppendLoginLog(r.Context(), entry)
	if err != nil {
		logx.Error(h.Log, reqID, op, "append failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "id", id, "username", entry.Username, "status", entry.Status)
	v1.WriteCreated(w, r, "log entry created", map[string]string{"id": id})
}
