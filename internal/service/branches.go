package service

import (
	"context"
	"strings"

	"github.com/EgorLis/retail-pos/internal/domain"
	"go.uber.org/zap"
)

// Branches — жизненный цикл филиалов и каскадная архивация зависимых записей.
type Branches struct {
	base
}

func NewBranches(store domain.DocumentStore, logger *zap.Logger, nodeID string) *Branches {
	return &Branches{base: newBase(store, logger.Named("branches"), nodeID)}
}

type CreateBranchInput struct {
	ID               string
	Name             string
	Location         string
	ShopUserPassword string
	AdminUsername    string
	AdminPassword    string
}

type RenameBranchInput struct {
	NewID    string
	Name     string
	Location string
}

// ArchiveCounts — сколько зависимых записей затронула операция.
type ArchiveCounts struct {
	Users     int `json:"users"`
	Clients   int `json:"clients"`
	Purchases int `json:"purchases"`
}

func (s *Branches) List(ctx context.Context) (map[string]domain.Branch, error) {
	var out map[string]domain.Branch
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.Branches
		return nil
	})
	return out, err
}

func (s *Branches) ListArchived(ctx context.Context) (map[string]domain.Branch, error) {
	var out map[string]domain.Branch
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.ArchivedBranches
		return nil
	})
	return out, err
}

func (s *Branches) Get(ctx context.Context, id string) (domain.Branch, error) {
	var out domain.Branch
	err := s.store.View(ctx, func(doc *domain.Document) error {
		b, ok := doc.Branches[id]
		if !ok {
			return errf(domain.ErrNotFound, "branch %q not found", id)
		}
		out = b
		return nil
	})
	return out, err
}

// Create заводит филиал вместе с пользователем магазина и администратором.
// Если какой-то шаг не удался, уже сделанные шаги откатываются и документ не пишется.
func (s *Branches) Create(ctx context.Context, in CreateBranchInput) (domain.Branch, error) {
	name := strings.TrimSpace(in.Name)
	id := domain.BranchIDFromName(in.ID)
	if id == "" {
		id = domain.BranchIDFromName(name)
	}
	adminName := domain.NormalizeUsername(in.AdminUsername)
	if id == "" || name == "" || in.ShopUserPassword == "" || adminName == "" || in.AdminPassword == "" {
		return domain.Branch{}, errf(domain.ErrBadParams, "shop id, name, shop user password, manager username and password are required")
	}

	var created domain.Branch
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		now := s.now()
		branch := domain.Branch{ID: id, Name: name, Location: strings.TrimSpace(in.Location), CreatedAt: now}
		shopUser := domain.User{Username: id, Password: in.ShopUserPassword, Role: domain.RoleBranch, Branch: strPtr(id), CreatedAt: now}
		admin := domain.User{Username: adminName, Password: in.AdminPassword, Role: domain.RoleAdmin, Branch: strPtr(id), CreatedAt: now}

		steps := []step{
			{
				name: "create branch",
				do: func() error {
					if doc.BranchKnown(id) {
						return errf(domain.ErrConflict, "branch %q already exists", id)
					}
					doc.Branches[id] = branch
					return nil
				},
				undo: func() { delete(doc.Branches, id) },
			},
			{
				name: "create shop user",
				do:   func() error { return putNewUser(doc, shopUser) },
				undo: func() { delete(doc.Users, id) },
			},
			{
				name: "create manager",
				do:   func() error { return putNewUser(doc, admin) },
				undo: func() { delete(doc.Users, adminName) },
			},
		}
		if err := runSteps(steps); err != nil {
			return err
		}
		created = branch
		return nil
	})
	if err != nil {
		return domain.Branch{}, err
	}
	s.logger.Info("branch created", zap.String("branch", id), zap.String("manager", adminName))
	return created, nil
}

func putNewUser(doc *domain.Document, u domain.User) error {
	if _, ok := doc.Users[u.Username]; ok {
		return errf(domain.ErrConflict, "user %q already exists", u.Username)
	}
	if _, ok := doc.ArchivedUsers[u.Username]; ok {
		return errf(domain.ErrConflict, "user %q exists in archive", u.Username)
	}
	doc.Users[u.Username] = u
	return nil
}

// Save создаёт или обновляет название и адрес филиала, id не меняется.
func (s *Branches) Save(ctx context.Context, id, name, location string) (domain.Branch, error) {
	name, location = strings.TrimSpace(name), strings.TrimSpace(location)
	if id == "" || name == "" || location == "" {
		return domain.Branch{}, errf(domain.ErrBadParams, "branch name and location are required")
	}
	var saved domain.Branch
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		if _, ok := doc.ArchivedBranches[id]; ok {
			return errf(domain.ErrConflict, "branch %q is archived", id)
		}
		b, ok := doc.Branches[id]
		if !ok {
			b = domain.Branch{ID: id, CreatedAt: s.now()}
		}
		b.Name, b.Location = name, location
		doc.Branches[id] = b
		saved = b
		return nil
	})
	return saved, err
}

// Rename переносит филиал под новый id и мигрирует всё, что на него ссылается.
// Если id не меняется, обновляются только название и адрес.
func (s *Branches) Rename(ctx context.Context, oldID string, in RenameBranchInput) (domain.Branch, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Branch{}, errf(domain.ErrBadParams, "new branch name is required")
	}
	newID := domain.BranchIDFromName(in.NewID)
	if newID == "" {
		newID = domain.BranchIDFromName(name)
	}

	var renamed domain.Branch
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		b, ok := doc.Branches[oldID]
		if !ok {
			return errf(domain.ErrNotFound, "branch %q not found", oldID)
		}
		b.Name = name
		if loc := strings.TrimSpace(in.Location); loc != "" {
			b.Location = loc
		}
		if newID == oldID {
			doc.Branches[oldID] = b
			renamed = b
			return nil
		}

		if doc.BranchKnown(newID) {
			return errf(domain.ErrConflict, "branch %q already exists", newID)
		}
		if _, ok := doc.Users[newID]; ok {
			return errf(domain.ErrConflict, "user %q already exists", newID)
		}
		if _, ok := doc.ArchivedUsers[newID]; ok {
			return errf(domain.ErrConflict, "user %q exists in archive", newID)
		}

		// пользователь магазина носит id филиала
		if u, ok := doc.Users[oldID]; ok && !domain.IsProtectedUsername(oldID) {
			delete(doc.Users, oldID)
			u.Username = newID
			doc.Users[newID] = u
		}
		for uname, u := range doc.Users {
			if u.BranchID() == oldID {
				u.Branch = strPtr(newID)
				doc.Users[uname] = u
			}
		}

		if list, ok := doc.Clients[oldID]; ok {
			doc.Clients[newID] = append(doc.Clients[newID], list...)
			delete(doc.Clients, oldID)
		}
		// архивные записи тоже ссылаются на филиал
		if list, ok := doc.ArchivedClients[oldID]; ok {
			doc.ArchivedClients[newID] = append(doc.ArchivedClients[newID], list...)
			delete(doc.ArchivedClients, oldID)
		}
		for uname, u := range doc.ArchivedUsers {
			if u.BranchID() == oldID {
				u.Branch = strPtr(newID)
				doc.ArchivedUsers[uname] = u
			}
		}
		moveBranchRef(doc.Purchases, oldID, newID)
		moveBranchRef(doc.ArchivedPurchases, oldID, newID)

		delete(doc.Branches, oldID)
		b.ID = newID
		doc.Branches[newID] = b
		renamed = b
		return nil
	})
	if err != nil {
		return domain.Branch{}, err
	}
	s.logger.Info("branch renamed", zap.String("from", oldID), zap.String("to", renamed.ID))
	return renamed, nil
}

func moveBranchRef(list []domain.Purchase, oldID, newID string) {
	for i := range list {
		p := &list[i]
		if !p.BelongsTo(oldID) {
			continue
		}
		p.BranchID = newID
		if p.ShopName == oldID {
			p.ShopName = newID
		}
	}
}

// Delete архивирует филиал, его пользователей (кроме системных), клиентов и покупки одной записью.
func (s *Branches) Delete(ctx context.Context, id string) (ArchiveCounts, error) {
	var cnt ArchiveCounts
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		b, ok := doc.Branches[id]
		if !ok {
			return errf(domain.ErrNotFound, "branch %q not found", id)
		}
		doc.ArchivedBranches[id] = b
		delete(doc.Branches, id)

		for name, u := range doc.Users {
			if domain.IsProtectedUsername(name) {
				continue
			}
			if u.BranchID() == id || name == id {
				doc.ArchivedUsers[name] = u
				delete(doc.Users, name)
				cnt.Users++
			}
		}

		if list, ok := doc.Clients[id]; ok {
			doc.ArchivedClients[id] = append(doc.ArchivedClients[id], list...)
			delete(doc.Clients, id)
			cnt.Clients = len(list)
		}

		keep := doc.Purchases[:0]
		for _, p := range doc.Purchases {
			if p.BelongsTo(id) {
				doc.ArchivedPurchases = append(doc.ArchivedPurchases, p)
				cnt.Purchases++
				continue
			}
			keep = append(keep, p)
		}
		doc.Purchases = keep
		return nil
	})
	if err != nil {
		return ArchiveCounts{}, err
	}
	s.logger.Info("branch archived",
		zap.String("branch", id),
		zap.Int("users", cnt.Users),
		zap.Int("clients", cnt.Clients),
		zap.Int("purchases", cnt.Purchases))
	return cnt, nil
}

// Restore возвращает филиал и его пользователей; клиентов и покупки только при withAll.
func (s *Branches) Restore(ctx context.Context, id string, withAll bool) (ArchiveCounts, error) {
	var cnt ArchiveCounts
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		b, ok := doc.ArchivedBranches[id]
		if !ok {
			return errf(domain.ErrNotFound, "archived branch %q not found", id)
		}
		if _, live := doc.Branches[id]; live {
			return errf(domain.ErrConflict, "branch %q already exists", id)
		}
		doc.Branches[id] = b
		delete(doc.ArchivedBranches, id)

		for name, u := range doc.ArchivedUsers {
			if u.BranchID() != id && name != id {
				continue
			}
			if _, taken := doc.Users[name]; taken {
				s.logger.Warn("archived user left in archive, name is taken",
					zap.String("branch", id), zap.String("user", name))
				continue
			}
			doc.Users[name] = u
			delete(doc.ArchivedUsers, name)
			cnt.Users++
		}

		if !withAll {
			return nil
		}
		if list, ok := doc.ArchivedClients[id]; ok {
			doc.Clients[id] = append(doc.Clients[id], list...)
			delete(doc.ArchivedClients, id)
			cnt.Clients = len(list)
		}
		keep := doc.ArchivedPurchases[:0]
		for _, p := range doc.ArchivedPurchases {
			if p.BelongsTo(id) {
				doc.Purchases = append(doc.Purchases, p)
				cnt.Purchases++
				continue
			}
			keep = append(keep, p)
		}
		doc.ArchivedPurchases = keep
		return nil
	})
	if err != nil {
		return ArchiveCounts{}, err
	}
	s.logger.Info("branch restored", zap.String("branch", id), zap.Bool("with_all", withAll))
	return cnt, nil
}

// Purge окончательно удаляет архивный филиал и его архивных пользователей;
// архивных клиентов и покупки только при withAll.
func (s *Branches) Purge(ctx context.Context, id string, withAll bool) (ArchiveCounts, error) {
	var cnt ArchiveCounts
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		if _, ok := doc.ArchivedBranches[id]; !ok {
			return errf(domain.ErrNotFound, "archived branch %q not found", id)
		}
		for name, u := range doc.ArchivedUsers {
			if u.BranchID() == id || name == id {
				delete(doc.ArchivedUsers, name)
				cnt.Users++
			}
		}
		if withAll {
			cnt.Clients = len(doc.ArchivedClients[id])
			delete(doc.ArchivedClients, id)

			keep := doc.ArchivedPurchases[:0]
			for _, p := range doc.ArchivedPurchases {
				if p.BelongsTo(id) {
					cnt.Purchases++
					continue
				}
				keep = append(keep, p)
			}
			doc.ArchivedPurchases = keep
		}
		delete(doc.ArchivedBranches, id)
		return nil
	})
	if err != nil {
		return ArchiveCounts{}, err
	}
	s.logger.Info("archived branch purged", zap.String("branch", id), zap.Bool("with_all", withAll))
	return cnt, nil
}
