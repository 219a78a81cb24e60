package web

import (
	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/EgorLis/retail-pos/internal/transport/web/v1/health"
)

// Services — сервисы узла, которые обслуживает HTTP-слой.
type Services struct {
	NodeID    string
	Users     *service.Users
	Branches  *service.Branches
	Clients   *service.Clients
	Purchases *service.Purchases
	Sync      *service.Sync
	Backups   *service.Backups
}

// Probes — зависимости для /v1/readyz. Nil пропускается.
type Probes struct {
	Store   health.Pinger
	Cache   health.Pinger
	Storage health.Pinger
}
