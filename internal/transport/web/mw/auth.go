package mw

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/EgorLis/retail-pos/internal/domain"
)

const (
	HeaderUserRole = "X-User-Role"
	HeaderUsername = "X-Username"
)

// WithActor кладёт в контекст, кто выполняет запрос (по заголовкам x-user-role / x-username).
// Без заголовка роли запрос идёт дальше анонимно.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := strings.TrimSpace(r.Header.Get(HeaderUserRole))
		if role == "" {
			next.ServeHTTP(w, r)
			return
		}
		a := domain.Actor{
			Role:     domain.Role(role),
			Username: strings.TrimSpace(r.Header.Get(HeaderUsername)),
		}
		next.ServeHTTP(w, r.WithContext(domain.WithActor(r.Context(), a)))
	})
}

// RequireRoles: нет роли → 401, роль не из списка → 403.
func RequireRoles(roles []domain.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actorFromRequest(r)
		if !ok {
			writeFail(w, http.StatusUnauthorized, "unauthorized: no role provided")
			return
		}
		if !slices.Contains(roles, a.Role) {
			writeFail(w, http.StatusForbidden, "forbidden: role '"+string(a.Role)+"' is not authorized for this action")
			return
		}
		next(w, r)
	}
}

func actorFromRequest(r *http.Request) (domain.Actor, bool) {
	a, ok := domain.ActorFromCtx(r.Context())
	return a, ok && a.Role != ""
}

func writeFail(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.Fail(text))
}
