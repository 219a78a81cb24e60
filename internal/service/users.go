package service

import (
	"context"
	"strings"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Users struct {
	base
}

func NewUsers(store domain.DocumentStore, logger *zap.Logger, nodeID string) *Users {
	return &Users{base: newBase(store, logger.Named("users"), nodeID)}
}

type CreateUserInput struct {
	Username string
	Password string
	Role     domain.Role
	Branch   *string
}

// UpdateUserInput: пустые строки означают «не менять».
// BranchSet отличает явный null от отсутствующего поля.
type UpdateUserInput struct {
	Password    string
	Role        domain.Role
	Branch      *string
	BranchSet   bool
	NewUsername string
}

type LoginResult struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	Branch   *string     `json:"branch"`
}

func (s *Users) List(ctx context.Context) (map[string]domain.User, error) {
	var out map[string]domain.User
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.Users
		return nil
	})
	return out, err
}

func (s *Users) ListArchived(ctx context.Context) (map[string]domain.User, error) {
	var out map[string]domain.User
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.ArchivedUsers
		return nil
	})
	return out, err
}

func (s *Users) Create(ctx context.Context, actor domain.Actor, in CreateUserInput) (domain.User, error) {
	username := domain.NormalizeUsername(in.Username)
	if username == "" || in.Password == "" || in.Role == "" {
		return domain.User{}, errf(domain.ErrBadParams, "username, password, and role are required")
	}
	if !in.Role.Valid() {
		return domain.User{}, errf(domain.ErrBadParams, "unknown role %q", in.Role)
	}
	if in.Role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return domain.User{}, errf(domain.ErrForbidden, "only a superadmin can create superadmins")
	}

	var created domain.User
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		if _, ok := doc.Users[username]; ok {
			return errf(domain.ErrConflict, "user %q already exists", username)
		}
		if _, ok := doc.ArchivedUsers[username]; ok {
			return errf(domain.ErrConflict, "user %q exists in archive", username)
		}
		branch, err := s.resolveBranch(doc, in.Branch)
		if err != nil {
			return err
		}
		u := domain.User{
			Username:  username,
			Password:  in.Password,
			Role:      in.Role,
			Branch:    branch,
			CreatedAt: s.now(),
		}
		if in.Role == domain.RoleSuperAdmin && username != domain.BootstrapSuperAdmin && actor.Username != "" {
			u.CreatedBy = strPtr(actor.Username)
		}
		doc.Users[username] = u
		created = u
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user created", zap.String("user", username), zap.String("role", string(in.Role)), zap.String("by", actor.Username))
	return created, nil
}

// resolveBranch: пустое значение = без филиала, иначе филиал должен быть живым.
func (s *Users) resolveBranch(doc *domain.Document, branch *string) (*string, error) {
	if branch == nil || strings.TrimSpace(*branch) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*branch)
	if s.branchLive(doc, id) {
		return strPtr(id), nil
	}
	if _, archived := doc.ArchivedBranches[id]; archived {
		return nil, errf(domain.ErrBadParams, "branch %q is archived", id)
	}
	return nil, errf(domain.ErrBadParams, "branch %q does not exist", id)
}

// canManage: superadmin-пользователей правит только исходный superadmin или их создатель,
// а сам исходный superadmin только сам себя.
func canManage(actor domain.Actor, username string, u domain.User) error {
	if u.Role != domain.RoleSuperAdmin {
		return nil
	}
	if username == domain.BootstrapSuperAdmin {
		if actor.Username != domain.BootstrapSuperAdmin {
			return errf(domain.ErrForbidden, "you are not allowed to edit the original superadmin")
		}
		return nil
	}
	if actor.Username == domain.BootstrapSuperAdmin {
		return nil
	}
	if u.CreatedBy != nil && *u.CreatedBy == actor.Username && actor.Username != "" {
		return nil
	}
	return errf(domain.ErrForbidden, "you are not allowed to edit this superadmin")
}

func (s *Users) Update(ctx context.Context, actor domain.Actor, username string, in UpdateUserInput) (domain.User, error) {
	newName := domain.NormalizeUsername(in.NewUsername)
	if in.Role != "" && !in.Role.Valid() {
		return domain.User{}, errf(domain.ErrBadParams, "unknown role %q", in.Role)
	}

	var updated domain.User
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		u, ok := doc.Users[username]
		if !ok {
			return errf(domain.ErrNotFound, "user %q not found", username)
		}
		if err := canManage(actor, username, u); err != nil {
			return err
		}

		if in.Password != "" {
			u.Password = in.Password
		}
		if in.Role != "" && in.Role != u.Role {
			if actor.Role != domain.RoleSuperAdmin {
				return errf(domain.ErrForbidden, "only a superadmin can change roles")
			}
			if domain.IsProtectedUsername(username) {
				return errf(domain.ErrForbidden, "role of system user %q cannot be changed", username)
			}
			u.Role = in.Role
		}
		if in.BranchSet {
			branch, err := s.resolveBranch(doc, in.Branch)
			if err != nil {
				return err
			}
			u.Branch = branch
		}

		if newName != "" && newName != username {
			if domain.IsProtectedUsername(username) {
				return errf(domain.ErrForbidden, "system user %q cannot be renamed", username)
			}
			if _, taken := doc.Users[newName]; taken {
				return errf(domain.ErrConflict, "new username %q already exists", newName)
			}
			if _, taken := doc.ArchivedUsers[newName]; taken {
				return errf(domain.ErrConflict, "new username %q exists in archive", newName)
			}
			delete(doc.Users, username)
			u.Username = newName
		}
		doc.Users[u.Username] = u
		updated = u
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user updated", zap.String("user", username), zap.String("now", updated.Username), zap.String("by", actor.Username))
	return updated, nil
}

func (s *Users) Delete(ctx context.Context, actor domain.Actor, username string) error {
	if domain.IsProtectedUsername(username) {
		return errf(domain.ErrForbidden, "protected system user account cannot be deleted")
	}
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		u, ok := doc.Users[username]
		if !ok {
			return errf(domain.ErrNotFound, "user %q not found", username)
		}
		if err := canManage(actor, username, u); err != nil {
			return err
		}
		doc.ArchivedUsers[username] = u
		delete(doc.Users, username)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("user archived", zap.String("user", username), zap.String("by", actor.Username))
	return nil
}

func (s *Users) Restore(ctx context.Context, username string) error {
	return s.store.Update(ctx, func(doc *domain.Document) error {
		u, ok := doc.ArchivedUsers[username]
		if !ok {
			return errf(domain.ErrNotFound, "archived user %q not found", username)
		}
		if _, taken := doc.Users[username]; taken {
			return errf(domain.ErrConflict, "user %q already exists", username)
		}
		doc.Users[username] = u
		delete(doc.ArchivedUsers, username)
		return nil
	})
}

func (s *Users) Purge(ctx context.Context, username string) error {
	return s.store.Update(ctx, func(doc *domain.Document) error {
		if _, ok := doc.ArchivedUsers[username]; !ok {
			return errf(domain.ErrNotFound, "archived user %q not found", username)
		}
		delete(doc.ArchivedUsers, username)
		return nil
	})
}

// Login проверяет пароль и всегда пишет запись в журнал входов.
func (s *Users) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = domain.NormalizeUsername(username)
	var (
		res LoginResult
		ok  bool
	)
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		entry := domain.LoginLog{
			ID:        uuid.NewString(),
			Username:  username,
			Timestamp: s.now().Format(timestampLayout),
		}
		u, found := doc.Users[username]
		if found && password != "" && u.Password == password {
			ok = true
			entry.Role = string(u.Role)
			entry.Branch = u.Branch
			entry.Status = domain.LoginSuccess
			res = LoginResult{Username: username, Role: u.Role, Branch: u.Branch}
		} else {
			entry.Role = "unknown"
			entry.Status = domain.LoginFailure
		}
		doc.LoginLogs = append(doc.LoginLogs, entry)
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		s.logger.Warn("login failed", zap.String("user", username))
		return LoginResult{}, errf(domain.ErrUnauth, "invalid username or password")
	}
	s.logger.Info("login", zap.String("user", username), zap.String("role", string(res.Role)))
	return res, nil
}

func (s *Users) LoginLogs(ctx context.Context) ([]domain.LoginLog, error) {
	var out []domain.LoginLog
	err := s.store.View(ctx, func(doc *domain.Document) error {
		out = doc.LoginLogs
		return nil
	})
	return out, err
}

// AppendLoginLog принимает запись журнала от клиента; id всегда выдаёт сервер.
func (s *Users) AppendLoginLog(ctx context.Context, entry domain.LoginLog) (string, error) {
	if entry.Username == "" || entry.Timestamp == "" || entry.Status == "" {
		return "", errf(domain.ErrBadParams, "missing required log fields")
	}
	entry.ID = uuid.NewString()
	err := s.store.Update(ctx, func(doc *domain.Document) error {
		doc.LoginLogs = append(doc.LoginLogs, entry)
		return nil
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}
