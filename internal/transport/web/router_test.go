package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/infra/database/filestore"
	"github.com/EgorLis/retail-pos/internal/infra/lock"
	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func newTestRouter(t *testing.T, nodeID string, probes Probes) http.Handler {
	t.Helper()
	log := zap.NewNop()
	st, err := filestore.New(log, t.TempDir(), nodeID, lock.NewLocal())
	require.NoError(t, err)
	if probes.Store == nil {
		probes.Store = st
	}
	svc := Services{
		NodeID:    nodeID,
		Users:     service.NewUsers(st, log, nodeID),
		Branches:  service.NewBranches(st, log, nodeID),
		Clients:   service.NewClients(st, log, nodeID),
		Purchases: service.NewPurchases(st, log, nodeID),
		Sync:      service.NewSync(st, log, nodeID, nil),
		Backups:   service.NewBackups(st, log, nodeID, nil),
	}
	return newRouter(svc, probes, log, prometheus.NewRegistry())
}

func do(t *testing.T, h http.Handler, method, path string, role domain.Role, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-User-Role", string(role))
		req.Header.Set("X-Username", string(role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func createNairobi(t *testing.T, h http.Handler) {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/api/branches", domain.RoleMasterAdmin, map[string]string{
		"name":                "Nairobi",
		"location":            "CBD",
		"shopUserPassword":    "shop",
		"shopManager":         "nairobi-manager",
		"shopManagerPassword": "mgr",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
}

func TestRouter_RoleChecks(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})

	tests := []struct {
		name   string
		method string
		path   string
		role   domain.Role
		want   int
	}{
		{"no role", http.MethodGet, "/api/users", "", http.StatusUnauthorized},
		{"admin cannot list users", http.MethodGet, "/api/users", domain.RoleAdmin, http.StatusForbidden},
		{"master-admin lists users", http.MethodGet, "/api/users", domain.RoleMasterAdmin, http.StatusOK},
		{"branch reads branches", http.MethodGet, "/api/branches", domain.RoleBranch, http.StatusOK},
		{"only superadmin sees archive", http.MethodGet, "/api/archived-users", domain.RoleMasterAdmin, http.StatusForbidden},
		{"only superadmin deletes users", http.MethodDelete, "/api/users/x", domain.RoleMasterAdmin, http.StatusForbidden},
		{"config is public", http.MethodGet, "/api/config", "", http.StatusOK},
		{"health is public", http.MethodGet, "/v1/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, tt.method, tt.path, tt.role, nil)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want >= 400 {
				assert.False(t, env.Success)
				assert.NotEmpty(t, env.Error)
			}
		})
	}
}

func TestRouter_Login(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})

	rec, env := do(t, h, http.MethodPost, "/api/login", "", map[string]string{"username": "superadmin", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var res service.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, domain.RoleSuperAdmin, res.Role)

	rec, env = do(t, h, http.MethodPost, "/api/login", "", map[string]string{"username": "superadmin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, env = do(t, h, http.MethodPost, "/api/login", "", map[string]string{"username": "superadmin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "password")

	rec, env = do(t, h, http.MethodGet, "/api/login-logs", domain.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []domain.LoginLog
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	assert.Len(t, logs, 2)
}

func TestRouter_BranchArchiveRoundTrip(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})
	createNairobi(t, h)

	rec, env := do(t, h, http.MethodPost, "/api/clients", domain.RoleAdmin, map[string]string{
		"branchId": "nairobi", "name": "Amina", "phoneNumber": "0700",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)

	rec, env = do(t, h, http.MethodDelete, "/api/branches/nairobi", domain.RoleMasterAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var counts service.ArchiveCounts
	require.NoError(t, json.Unmarshal(env.Data, &counts))
	assert.Equal(t, service.ArchiveCounts{Users: 2, Clients: 1}, counts)

	rec, _ = do(t, h, http.MethodDelete, "/api/branches/nairobi", domain.RoleMasterAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/archived-branches", domain.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"nairobi"`)

	rec, env = do(t, h, http.MethodPost, "/api/restore/branch/nairobi", domain.RoleSuperAdmin, map[string]bool{"withAll": true})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = do(t, h, http.MethodGet, "/api/clients", domain.RoleBranch, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var clients map[string][]domain.Client
	require.NoError(t, json.Unmarshal(env.Data, &clients))
	assert.Len(t, clients["nairobi"], 1)
}

func TestRouter_ClientIndexMustBeInteger(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})
	createNairobi(t, h)

	rec, env := do(t, h, http.MethodDelete, "/api/clients/nairobi/first", domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "index")

	rec, _ = do(t, h, http.MethodPost, "/api/restore/client/nairobi/x", domain.RoleSuperAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UserBranchExplicitNull(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})
	createNairobi(t, h)

	rec, env := do(t, h, http.MethodPut, "/api/users/nairobi-manager", domain.RoleSuperAdmin, map[string]any{"password": "new"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var u domain.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "nairobi", u.BranchID())

	rec, env = do(t, h, http.MethodPut, "/api/users/nairobi-manager", domain.RoleSuperAdmin, map[string]any{"branch": nil})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	u = domain.User{}
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Nil(t, u.Branch)
}

func TestRouter_UsernamePathIsCaseInsensitive(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})
	createNairobi(t, h)

	rec, env := do(t, h, http.MethodPut, "/api/users/Nairobi-Manager", domain.RoleSuperAdmin, map[string]any{"password": "new"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = do(t, h, http.MethodDelete, "/api/users/NAIROBI-MANAGER", domain.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = do(t, h, http.MethodPost, "/api/restore/user/Nairobi-Manager", domain.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = do(t, h, http.MethodDelete, "/api/users/nairobi-manager", domain.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	rec, env = do(t, h, http.MethodDelete, "/api/archived-users/NAIROBI-manager", domain.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = do(t, h, http.MethodGet, "/api/archived-users", domain.RoleSuperAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.NotContains(t, string(env.Data), "nairobi-manager")
}

func TestRouter_ArchivedBranchTakesNoClients(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})
	createNairobi(t, h)

	rec, env := do(t, h, http.MethodDelete, "/api/branches/nairobi", domain.RoleMasterAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, _ = do(t, h, http.MethodPost, "/api/clients", domain.RoleAdmin, map[string]string{
		"branchId": "nairobi", "name": "Amina", "phoneNumber": "0700",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/users", domain.RoleSuperAdmin, map[string]any{
		"username": "bob", "password": "p", "role": "admin", "branch": "nairobi",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SyncIsPublicAndIdempotent(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})
	payload := map[string]any{
		"shopId":    "nairobi",
		"purchases": []map[string]any{{"id": "p1", "clientName": "Amina"}},
		"clients":   []map[string]any{{"name": "Amina", "phoneNumber": "0700"}},
	}

	rec, _ := do(t, h, http.MethodPost, "/api/sync", "", payload)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	createNairobi(t, h)
	rec, env := do(t, h, http.MethodPost, "/api/sync", "", payload)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.JSONEq(t, `{"syncedPurchases":1,"syncedClients":1}`, string(env.Data))

	rec, env = do(t, h, http.MethodPost, "/api/sync", "", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"syncedPurchases":0,"syncedClients":0}`, string(env.Data))

	// на HQ отправлять некуда
	rec, _ = do(t, h, http.MethodPost, "/api/sync/push", domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRouter_ImportExportClients(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})
	createNairobi(t, h)

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Client Name", "Phone Number", "Shop Name"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Amina", "0700", "nairobi"}))
	var wb bytes.Buffer
	require.NoError(t, f.Write(&wb))
	require.NoError(t, f.Close())

	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	part, err := mpw.CreateFormFile("file", "clients.xlsx")
	require.NoError(t, err)
	_, err = part.Write(wb.Bytes())
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/clients", &body)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	req.Header.Set("X-User-Role", string(domain.RoleAdmin))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"addedCount":1`)

	req = httptest.NewRequest(http.MethodGet, "/api/export/clients", nil)
	req.Header.Set("X-User-Role", string(domain.RoleAdmin))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "clients_")

	out, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer out.Close()
	rows, err := out.GetRows("Clients")
	require.NoError(t, err)
	assert.Equal(t, []string{"nairobi", "Amina", "0700"}, rows[1])

	rec, env := do(t, h, http.MethodGet, "/api/export/purchases?from=05/03/2024", domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "YYYY-MM-DD")
}

func TestRouter_RequestIDAndMetrics(t *testing.T) {
	h := newTestRouter(t, "nairobi", Probes{})

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trace-1", rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"success":true,"data":{"shopId":"nairobi"}}`, rec.Body.String())

	rec, _ = do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="GET /api/config",status_code="200"} 1`)
}

func TestRouter_Readiness(t *testing.T) {
	h := newTestRouter(t, "hq", Probes{})
	rec, _ := do(t, h, http.MethodGet, "/v1/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	h = newTestRouter(t, "hq", Probes{Cache: failingPinger{}})
	rec, env := do(t, h, http.MethodGet, "/v1/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "cache is not ready", env.Error)
}
