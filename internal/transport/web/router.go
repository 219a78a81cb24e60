package web

import (
	"net/http"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/archive"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/auth"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/backup"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/branches"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/clients"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/exchange"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/health"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/node"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/purchases"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/shopsync"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	jsonBodyLimit = 1 << 20
	// покупки несут вложения base64 прямо в JSON
	purchaseBodyLimit = 50 << 20
)

func newRouter(svc Services, probes Probes, logger *zap.Logger, reg *prometheus.Registry) http.Handler {
	named := func(n string) *zap.Logger { return logger.Named(n) }

	hh := &health.Handler{Log: named("health"), Store: probes.Store, Cache: probes.Cache, Storage: probes.Storage}
	ah := &auth.Handler{Log: named("auth"), Users: svc.Users}
	uh := &users.Handler{Log: named("users"), Users: svc.Users}
	bh := &branches.Handler{Log: named("branches"), Branches: svc.Branches}
	ch := &clients.Handler{Log: named("clients"), Clients: svc.Clients}
	ph := &purchases.Handler{Log: named("purchases"), Purchases: svc.Purchases}
	arh := &archive.Handler{Log: named("archive"), Branches: svc.Branches, Users: svc.Users, Clients: svc.Clients, Purchases: svc.Purchases}
	sh := &shopsync.Handler{Log: named("sync"), Sync: svc.Sync}
	eh := &exchange.Handler{Log: named("exchange"), Clients: svc.Clients, Purchases: svc.Purchases}
	kh := &backup.Handler{Log: named("backup"), Backups: svc.Backups}
	nh := &node.Handler{NodeID: svc.NodeID}

	all := func(h http.HandlerFunc) http.HandlerFunc { return mw.RequireRoles(domain.AllRoles, h) }
	managers := func(h http.HandlerFunc) http.HandlerFunc { return mw.RequireRoles(domain.ManagerRoles, h) }
	admins := func(h http.HandlerFunc) http.HandlerFunc { return mw.RequireRoles(domain.AdminRoles, h) }
	super := func(h http.HandlerFunc) http.HandlerFunc { return mw.RequireRoles(domain.SuperOnly, h) }
	body := func(h http.HandlerFunc) http.HandlerFunc { return limitBody(jsonBodyLimit, h) }

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /v1/healthz", hh.Liveness)
	mux.HandleFunc("GET /v1/readyz", hh.Readiness)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// auth
	mux.HandleFunc("POST /api/login", body(ah.Login))
	mux.HandleFunc("GET /api/login-logs", super(ah.LoginLogs))
	mux.HandleFunc("POST /api/login-logs", body(ah.AppendLoginLog))
	mux.HandleFunc("GET /api/config", nh.Config)

	// users
	mux.HandleFunc("GET /api/users", managers(uh.List))
	mux.HandleFunc("POST /api/users", managers(body(uh.Create)))
	mux.HandleFunc("PUT /api/users/{username}", managers(body(uh.Update)))
	mux.HandleFunc("DELETE /api/users/{username}", super(uh.Delete))

	// branches
	mux.HandleFunc("GET /api/branches", all(bh.List))
	mux.HandleFunc("GET /api/branches/{branchId}", all(bh.Get))
	mux.HandleFunc("POST /api/branches", managers(body(bh.Create)))
	mux.HandleFunc("PUT /api/branches/{branchId}", managers(body(bh.Save)))
	mux.HandleFunc("POST /api/branches/{branchId}/rename", managers(body(bh.Rename)))
	mux.HandleFunc("DELETE /api/branches/{branchId}", managers(bh.Delete))

	// clients
	mux.HandleFunc("GET /api/clients", all(ch.List))
	mux.HandleFunc("POST /api/clients", admins(limitBody(purchaseBodyLimit, ch.Add)))
	mux.HandleFunc("DELETE /api/clients/{branchId}/{index}", admins(ch.Delete))

	// purchases
	mux.HandleFunc("GET /api/purchases", all(ph.List))
	mux.HandleFunc("POST /api/purchases", all(limitBody(purchaseBodyLimit, ph.Create)))
	mux.HandleFunc("DELETE /api/purchases/{id}", admins(ph.Delete))

	// archive
	mux.HandleFunc("GET /api/archived-branches", super(arh.ArchivedBranches))
	mux.HandleFunc("GET /api/archived-users", super(arh.ArchivedUsers))
	mux.HandleFunc("GET /api/archived-clients", super(arh.ArchivedClients))
	mux.HandleFunc("GET /api/archived-purchases", super(arh.ArchivedPurchases))
	mux.HandleFunc("POST /api/restore/branch/{branchId}", super(body(arh.RestoreBranch)))
	mux.HandleFunc("POST /api/restore/user/{username}", super(arh.RestoreUser))
	mux.HandleFunc("POST /api/restore/client/{branchId}/{index}", super(arh.RestoreClient))
	mux.HandleFunc("POST /api/restore/purchase/{id}", super(arh.RestorePurchase))
	mux.HandleFunc("DELETE /api/archived-branches/{branchId}", super(body(arh.PurgeBranch)))
	mux.HandleFunc("DELETE /api/archived-users/{username}", super(arh.PurgeUser))
	mux.HandleFunc("DELETE /api/archived-clients/{branchId}/{index}", super(arh.PurgeClient))
	mux.HandleFunc("DELETE /api/archived-purchases/{id}", super(arh.PurgePurchase))

	// sync: /api/sync вызывает другой узел, ролей у него нет
	mux.HandleFunc("POST /api/sync", limitBody(purchaseBodyLimit, sh.Merge))
	mux.HandleFunc("POST /api/sync/push", admins(sh.Push))

	// excel
	mux.HandleFunc("GET /api/export/purchases", admins(eh.ExportPurchases))
	mux.HandleFunc("GET /api/export/clients", admins(eh.ExportClients))
	mux.HandleFunc("POST /api/import/clients", admins(eh.ImportClients))

	mux.HandleFunc("POST /api/backup", super(kh.Create))

	// 🔗 middleware; метрики ближе всех к mux, чтобы видеть r.Pattern
	metrics := mw.NewMetrics(reg)
	return mw.WithRequestID(mw.Recover(logger)(mw.WithActor(mw.Logging(logger)(metrics.Instrument(mux)))))
}

func limitBody(n int64, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h(w, r)
	}
}
