package service

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clients — клиенты филиалов; в документе хранятся упорядоченным списком на филиал.
type Clients struct {
	base
}

func NewClients(store domain.DocumentStore, logger *zap.Logger, nodeID string) *Clients {
	return &Clients{base: newBase(store, logger.Named("clients"), nodeID)}
}

func (s *Clients) List(ctx context.Context) (map[string][]domain.Client, error) {
	var out map[string][]domain.Client
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.Clients
		return nil
	})
	return out, err
}

func (s *Clients) ListArchived(ctx context.Context) (map[string][]domain.Client, error) {
	var out map[string][]domain.Client
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.ArchivedClients
		return nil
	})
	return out, err
}

func (s *Clients) requireBranch(doc *domain.Document, branchID string) error {
	if s.branchLive(doc, branchID) {
		return nil
	}
	if _, archived := doc.ArchivedBranches[branchID]; archived {
		return errf(domain.ErrNotFound, "branch %q is archived", branchID)
	}
	return errf(domain.ErrNotFound, "branch %q not found", branchID)
}

// Add добавляет одного клиента; телефон уникален в пределах филиала.
func (s *Clients) Add(ctx context.Context, branchID, name, phone string) (domain.Client, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if branchID == "" {
		return domain.Client{}, errf(domain.ErrBadParams, "branch id is required")
	}
	if name == "" || phone == "" {
		return domain.Client{}, errf(domain.ErrBadParams, "client name and phone number are required")
	}
	var added domain.Client
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		if err := s.requireBranch(doc, branchID); err != nil {
			return err
		}
		for _, c := range doc.Clients[branchID] {
			if c.PhoneNumber == phone {
				return errf(domain.ErrConflict, "client with phone %q already exists", phone)
			}
		}
		added = domain.Client{ID: uuid.NewString(), Name: name, PhoneNumber: phone}
		doc.Clients[branchID] = append(doc.Clients[branchID], added)
		return nil
	})
	return added, err
}

// BulkAdd дописывает только новых клиентов: совпадение по имени (без учёта регистра)
// или по телефону с уже существующими и с ранее принятыми из той же пачки.
func (s *Clients) BulkAdd(ctx context.Context, branchID string, clients []domain.Client) (int, error) {
	if branchID == "" {
		return 0, errf(domain.ErrBadParams, "branch id is required")
	}
	var added int
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		if err := s.requireBranch(doc, branchID); err != nil {
			return err
		}
		added = mergeClients(doc, branchID, clients)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("clients bulk added", zap.String("branch", branchID), zap.Int("added", added), zap.Int("received", len(clients)))
	return added, nil
}

func mergeClients(doc *domain.Document, branchID string, clients []domain.Client) int {
	names := map[string]struct{}{}
	phones := map[string]struct{}{}
	for _, c := range doc.Clients[branchID] {
		names[strings.ToLower(c.Name)] = struct{}{}
		phones[c.PhoneNumber] = struct{}{}
	}

	added := 0
	for _, c := range clients {
		name, phone := strings.TrimSpace(c.Name), strings.TrimSpace(c.PhoneNumber)
		if name == "" || phone == "" {
			continue
		}
		lower := strings.ToLower(name)
		if _, dup := names[lower]; dup {
			continue
		}
		if _, dup := phones[phone]; dup {
			continue
		}
		doc.Clients[branchID] = append(doc.Clients[branchID], domain.Client{ID: uuid.NewString(), Name: name, PhoneNumber: phone})
		names[lower] = struct{}{}
		phones[phone] = struct{}{}
		added++
	}
	return added
}

// Replace перезаписывает список клиентов филиала как есть, недостающие id выдаются.
func (s *Clients) Replace(ctx context.Context, branchID string, clients []domain.Client) (int, error) {
	if branchID == "" {
		return 0, errf(domain.ErrBadParams, "branch id is required")
	}
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		if err := s.requireBranch(doc, branchID); err != nil {
			return err
		}
		list := make([]domain.Client, len(clients))
		copy(list, clients)
		for i := range list {
			if list[i].ID == "" {
				list[i].ID = uuid.NewString()
			}
		}
		doc.Clients[branchID] = list
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("clients replaced", zap.String("branch", branchID), zap.Int("count", len(clients)))
	return len(clients), nil
}

func (s *Clients) Delete(ctx context.Context, branchID string, index int) error {
	return s.store.Update(ctx, func(doc *domain.Document) error {
		list, ok := doc.Clients[branchID]
		if !ok {
			return errf(domain.ErrNotFound, "branch %q not found or has no clients", branchID)
		}
		if index < 0 || index >= len(list) {
			return errf(domain.ErrNotFound, "client index %d out of bounds", index)
		}
		doc.ArchivedClients[branchID] = append(doc.ArchivedClients[branchID], list[index])
		doc.Clients[branchID] = append(list[:index:index], list[index+1:]...)
		return nil
	})
}

func (s *Clients) Restore(ctx context.Context, branchID string, index int) error {
	return s.store.Update(ctx, func(doc *domain.Document) error {
		list, ok := doc.ArchivedClients[branchID]
		if !ok || index < 0 || index >= len(list) {
			return errf(domain.ErrNotFound, "archived client not found")
		}
		doc.Clients[branchID] = append(doc.Clients[branchID], list[index])
		removeArchivedClient(doc, branchID, index)
		return nil
	})
}

func (s *Clients) Purge(ctx context.Context, branchID string, index int) error {
	return s.store.Update(ctx, func(doc *domain.Document) error {
		list, ok := doc.ArchivedClients[branchID]
		if !ok || index < 0 || index >= len(list) {
			return errf(domain.ErrNotFound, "archived client not found")
		}
		removeArchivedClient(doc, branchID, index)
		return nil
	})
}

// пустой архивный список удаляется целиком
func removeArchivedClient(doc *domain.Document, branchID string, index int) {
	list := doc.ArchivedClients[branchID]
	list = append(list[:index:index], list[index+1:]...)
	if len(list) == 0 {
		delete(doc.ArchivedClients, branchID)
		return
	}
	doc.ArchivedClients[branchID] = list
}

// ImportXLSX разбирает книгу целиком до записи: одна плохая строка отменяет весь импорт.
// Возвращает число добавленных клиентов по филиалам.
func (s *Clients) ImportXLSX(ctx context.Context, r io.Reader) (map[string]int, error) {
	rows, err := readClientSheet(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errf(domain.ErrBadParams, "no data found in the file")
	}

	added := map[string]int{}
	err = s.store.Update(ctx, func(doc *domain.Document) error {
		byName := map[string]string{}
		for id, b := range doc.Branches {
			byName[strings.ToLower(strings.TrimSpace(b.Name))] = id
		}

		grouped := map[string][]domain.Client{}
		var order []string
		for _, row := range rows {
			shopID := row.ShopID
			if shopID == "" && row.ShopName != "" {
				shopID = byName[strings.ToLower(row.ShopName)]
				if shopID == "" {
					return errf(domain.ErrBadParams, "row %d: shop name %q not found", row.Line, row.ShopName)
				}
			}
			if !s.branchLive(doc, shopID) {
				return errf(domain.ErrBadParams, "row %d: shop %q not found", row.Line, shopID)
			}
			if _, seen := grouped[shopID]; !seen {
				order = append(order, shopID)
			}
			grouped[shopID] = append(grouped[shopID], domain.Client{Name: row.Name, PhoneNumber: row.Phone})
		}
		for _, id := range order {
			added[id] = mergeClients(doc, id, grouped[id])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("clients imported", zap.Int("rows", len(rows)), zap.Any("added", added))
	return added, nil
}

// ExportXLSX пишет всех живых клиентов: филиал, имя, телефон.
func (s *Clients) ExportXLSX(ctx context.Context, w io.Writer) (int, error) {
	var rows [][]any
	err := s.store.View(ctx, func(doc *domain.Document) error {
		ids := make([]string, 0, len(doc.Clients))
		for id := range doc.Clients {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			for _, c := range doc.Clients[id] {
				rows = append(rows, []any{id, c.Name, c.PhoneNumber})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := writeClientSheet(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
