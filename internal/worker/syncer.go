// Package worker — фоновые задачи узла.
package worker

import (
	"context"
	"time"

	"github.com/EgorLis/retail-pos/internal/service"
	"go.uber.org/zap"
)

type Pusher interface {
	Push(ctx context.Context) (service.PushResult, error)
}

// Syncer периодически отправляет несинхронизированные данные магазина в HQ.
// Ошибка одной попытки не останавливает цикл: следующий тик отправит то же самое.
type Syncer struct {
	pusher   Pusher
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewSyncer(p Pusher, interval, timeout time.Duration, logger *zap.Logger) *Syncer {
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Syncer{pusher: p, interval: interval, timeout: timeout, logger: logger.Named("syncer")}
}

// Run блокируется до отмены ctx. Первая отправка — сразу после старта.
func (s *Syncer) Run(ctx context.Context) {
	s.logger.Info("started", zap.Duration("interval", s.interval))
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("stopped")
			return
		case <-t.C:
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.pusher.Push(ctx)
	if err != nil {
		s.logger.Warn("push failed", zap.Error(err))
		return
	}
	if res.Sent > 0 || res.Clients > 0 {
		s.logger.Info("pushed",
			zap.Int("purchases", res.Sent),
			zap.Int("clients", res.Clients),
			zap.Int("accepted_purchases", res.Accepted.SyncedPurchases),
			zap.Int("accepted_clients", res.Accepted.SyncedClients))
	}
}
