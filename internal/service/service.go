// Package service содержит бизнес-правила узла: жизненный цикл филиалов,
// пользователей, клиентов и покупок, а также синхронизацию магазина с HQ.
// Каждая операция изменения выполняется одним вызовом DocumentStore.Update.
package service

import (
	"fmt"
	"time"

	"github.com/EgorLis/retail-pos/internal/domain"
	"go.uber.org/zap"
)

// Формат меток времени в документе (как Date.toISOString)
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type base struct {
	store  domain.DocumentStore
	logger *zap.Logger
	nodeID string
	now    func() time.Time
}

func newBase(store domain.DocumentStore, logger *zap.Logger, nodeID string) base {
	return base{
		store:  store,
		logger: logger,
		nodeID: nodeID,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// branchLive: живой филиал либо сам узел магазина. В архивный филиал живые записи не пишутся.
func (b base) branchLive(doc *domain.Document, id string) bool {
	if id == "" {
		return false
	}
	_, ok := doc.Branches[id]
	return ok || id == b.nodeID
}

// step — шаг многошаговой операции с компенсирующим действием.
type step struct {
	name string
	do   func() error
	undo func()
}

// runSteps выполняет шаги по порядку; при ошибке откатывает уже выполненные в обратном порядке.
func runSteps(steps []step) error {
	for i, s := range steps {
		if err := s.do(); err != nil {
			for j := i - 1; j >= 0; j-- {
				if steps[j].undo != nil {
					steps[j].undo()
				}
			}
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func errf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
