package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HQClient — транспорт до HQ (реализация: infra/hqclient).
type HQClient interface {
	Sync(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error)
}

// Sync — слияние данных магазина на HQ и отправка с магазина на HQ.
type Sync struct {
	base
	hq HQClient
}

// hq может быть nil: тогда узел только принимает синхронизацию.
func NewSync(store domain.DocumentStore, logger *zap.Logger, nodeID string, hq HQClient) *Sync {
	return &Sync{base: newBase(store, logger.Named("sync"), nodeID), hq: hq}
}

// PushResult — итог отправки на HQ.
type PushResult struct {
	Sent     int               `json:"sent"`
	Clients  int               `json:"clients"`
	Accepted domain.SyncResult `json:"accepted"`
}

// Merge принимает покупки и клиентов магазина. Повтор того же пакета ничего не меняет:
// покупки сверяются по id, клиенты по телефону, с учётом архива.
func (s *Sync) Merge(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error) {
	shopID := strings.TrimSpace(req.ShopID)
	if shopID == "" || req.Purchases == nil || req.Clients == nil {
		return domain.SyncResult{}, errf(domain.ErrBadParams, "missing shopId, purchases, or clients array")
	}
	for i, p := range req.Purchases {
		if p.ID == "" {
			return domain.SyncResult{}, errf(domain.ErrBadParams, "purchase #%d has no id", i)
		}
	}

	var res domain.SyncResult
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		if _, ok := doc.Branches[shopID]; !ok {
			return errf(domain.ErrNotFound, "branch %q not found", shopID)
		}

		seen := map[string]struct{}{}
		for _, p := range doc.Purchases {
			seen[p.ID] = struct{}{}
		}
		for _, p := range doc.ArchivedPurchases {
			seen[p.ID] = struct{}{}
		}
		for _, p := range req.Purchases {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			if p.BranchID == "" && p.ShopName == "" {
				p.BranchID = shopID
			}
			// на HQ запись уже синхронизирована
			p.Synced = boolPtr(true)
			doc.Purchases = append(doc.Purchases, p)
			res.SyncedPurchases++
		}

		phones := map[string]struct{}{}
		for _, c := range doc.Clients[shopID] {
			phones[c.PhoneNumber] = struct{}{}
		}
		for _, c := range doc.ArchivedClients[shopID] {
			phones[c.PhoneNumber] = struct{}{}
		}
		for _, c := range req.Clients {
			phone := strings.TrimSpace(c.PhoneNumber)
			if phone == "" {
				continue
			}
			if _, dup := phones[phone]; dup {
				continue
			}
			phones[phone] = struct{}{}
			c.PhoneNumber = phone
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			doc.Clients[shopID] = append(doc.Clients[shopID], c)
			res.SyncedClients++
		}
		return nil
	})
	if err != nil {
		return domain.SyncResult{}, err
	}
	s.logger.Info("shop synced",
		zap.String("shop", shopID),
		zap.Int("purchases", res.SyncedPurchases),
		zap.Int("clients", res.SyncedClients))
	return res, nil
}

// Push отправляет на HQ несинхронизированные покупки и клиентов магазина,
// после успеха помечает отправленные покупки synced=true одной записью.
func (s *Sync) Push(ctx context.Context) (PushResult, error) {
	if s.hq == nil {
		return PushResult{}, errf(domain.ErrNotImplemented, "node %q has no hq client configured", s.nodeID)
	}

	var req domain.SyncRequest
	err := s.store.View(ctx, func(doc *domain.Document) error {
		req = domain.SyncRequest{
			ShopID:    s.nodeID,
			Purchases: []domain.Purchase{},
			Clients:   append([]domain.Client{}, doc.Clients[s.nodeID]...),
		}
		for _, p := range doc.Purchases {
			if !p.IsSynced() {
				req.Purchases = append(req.Purchases, p)
			}
		}
		return nil
	})
	if err != nil {
		return PushResult{}, err
	}
	if len(req.Purchases) == 0 && len(req.Clients) == 0 {
		return PushResult{}, nil
	}

	accepted, err := s.hq.Sync(ctx, req)
	if err != nil {
		return PushResult{}, fmt.Errorf("push to hq: %w", err)
	}

	pushed := make(map[string]struct{}, len(req.Purchases))
	for _, p := range req.Purchases {
		pushed[p.ID] = struct{}{}
	}
	err = s.store.Update(ctx, func(doc *domain.Document) error {
		for i := range doc.Purchases {
			if _, ok := pushed[doc.Purchases[i].ID]; ok {
				doc.Purchases[i].Synced = boolPtr(true)
			}
		}
		return nil
	})
	if err != nil {
		return PushResult{}, fmt.Errorf("mark purchases synced: %w", err)
	}

	res := PushResult{Sent: len(req.Purchases), Clients: len(req.Clients), Accepted: accepted}
	s.logger.Info("pushed to hq",
		zap.Int("purchases", res.Sent),
		zap.Int("clients", res.Clients),
		zap.Int("hq_new_purchases", accepted.SyncedPurchases),
		zap.Int("hq_new_clients", accepted.SyncedClients))
	return res, nil
}
