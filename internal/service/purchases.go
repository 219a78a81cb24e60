package service

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type Purchases struct {
	base
}

func NewPurchases(store domain.DocumentStore, logger *zap.Logger, nodeID string) *Purchases {
	return &Purchases{base: newBase(store, logger.Named("purchases"), nodeID)}
}

// ExportFilter — фильтры выгрузки транзакций. Нулевые значения не фильтруют.
type ExportFilter struct {
	BranchID string
	From     time.Time
	To       time.Time // включительно, до 23:59:59 этого дня
	Client   string
}

func (s *Purchases) List(ctx context.Context) ([]domain.Purchase, error) {
	var out []domain.Purchase
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.Purchases
		return nil
	})
	return out, err
}

func (s *Purchases) ListArchived(ctx context.Context) ([]domain.Purchase, error) {
	var out []domain.Purchase
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.ArchivedPurchases
		return nil
	})
	return out, err
}

// Create сохраняет покупку как есть: id и synced=false проставляются, если их нет.
func (s *Purchases) Create(ctx context.Context, p domain.Purchase) (domain.Purchase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Synced == nil {
		p.Synced = boolPtr(false)
	}
	if p.Purchases == nil {
		p.Purchases = []domain.LineItem{}
	}
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		if indexOfPurchase(doc.Purchases, p.ID) >= 0 || indexOfPurchase(doc.ArchivedPurchases, p.ID) >= 0 {
			return errf(domain.ErrConflict, "purchase %q already exists", p.ID)
		}
		doc.Purchases = append(doc.Purchases, p)
		return nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	s.logger.Debug("purchase created", zap.String("id", p.ID), zap.String("branch", p.BranchID))
	return p, nil
}

func indexOfPurchase(list []domain.Purchase, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Purchases) Delete(ctx context.Context, id string) error {
	return s.store.Update(ctx, func(doc *domain.Document) error {
		i := indexOfPurchase(doc.Purchases, id)
		if i < 0 {
			return errf(domain.ErrNotFound, "purchase %q not found", id)
		}
		doc.ArchivedPurchases = append(doc.ArchivedPurchases, doc.Purchases[i])
		doc.Purchases = append(doc.Purchases[:i:i], doc.Purchases[i+1:]...)
		return nil
	})
}

func (s *Purchases) Restore(ctx context.Context, id string) error {
	return s.store.Update(ctx, func(doc *domain.Document) error {
		i := indexOfPurchase(doc.ArchivedPurchases, id)
		if i < 0 {
			return errf(domain.ErrNotFound, "archived purchase %q not found", id)
		}
		if indexOfPurchase(doc.Purchases, id) >= 0 {
			return errf(domain.ErrConflict, "purchase %q already exists", id)
		}
		doc.Purchases = append(doc.Purchases, doc.ArchivedPurchases[i])
		doc.ArchivedPurchases = append(doc.ArchivedPurchases[:i:i], doc.ArchivedPurchases[i+1:]...)
		return nil
	})
}

func (s *Purchases) Purge(ctx context.Context, id string) error {
	return s.store.Update(ctx, func(doc *domain.Document) error {
		i := indexOfPurchase(doc.ArchivedPurchases, id)
		if i < 0 {
			return errf(domain.ErrNotFound, "archived purchase %q not found", id)
		}
		doc.ArchivedPurchases = append(doc.ArchivedPurchases[:i:i], doc.ArchivedPurchases[i+1:]...)
		return nil
	})
}

// ExportXLSX выгружает отфильтрованные транзакции, новые сверху, по строке на позицию.
func (s *Purchases) ExportXLSX(ctx context.Context, f ExportFilter, w io.Writer) (int, error) {
	var list []domain.Purchase
	err := s.store.View(ctx, func(doc *domain.Document) error {
		list = filterPurchases(doc.Purchases, f)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, errf(domain.ErrNotFound, "no data to export")
	}
	sort.SliceStable(list, func(i, j int) bool {
		return purchaseTime(list[i]).After(purchaseTime(list[j]))
	})
	if err := writePurchaseSheet(w, list); err != nil {
		return 0, err
	}
	return len(list), nil
}

func filterPurchases(all []domain.Purchase, f ExportFilter) []domain.Purchase {
	client := strings.ToLower(strings.TrimSpace(f.Client))
	var to time.Time
	if !f.To.IsZero() {
		y, m, d := f.To.Date()
		to = time.Date(y, m, d, 23, 59, 59, 0, f.To.Location())
	}

	out := make([]domain.Purchase, 0, len(all))
	for _, p := range all {
		if f.BranchID != "" && !p.BelongsTo(f.BranchID) {
			continue
		}
		if !f.From.IsZero() || !to.IsZero() {
			t := purchaseTime(p)
			if t.IsZero() {
				continue
			}
			if !f.From.IsZero() && t.Before(f.From) {
				continue
			}
			if !to.IsZero() && t.After(to) {
				continue
			}
		}
		if client != "" && !strings.Contains(strings.ToLower(p.ClientName), client) {
			continue
		}
		out = append(out, p)
	}
	return out
}

var purchaseTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"02/01/2006 15:04",
}

// purchaseTime: сначала dateTimeISO, затем dateTime; нераспознанная дата — нулевое время.
func purchaseTime(p domain.Purchase) time.Time {
	for _, raw := range []string{p.DateTimeISO, p.DateTime} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range purchaseTimeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
		// числовая дата Excel
		if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 20000 && serial < 80000 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
