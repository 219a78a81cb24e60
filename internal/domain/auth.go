package domain

// Роли пользователей (значения совпадают с заголовком x-user-role)
type Role string

const (
	RoleSuperAdmin  Role = "superadmin"
	RoleMasterAdmin Role = "master-admin"
	RoleAdmin       Role = "admin"
	RoleBranch      Role = "branch"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleMasterAdmin, RoleAdmin, RoleBranch:
		return true
	}
	return false
}

// Системные учётки: удалить нельзя никогда.
const (
	BootstrapSuperAdmin  = "superadmin"
	BootstrapMasterAdmin = "masteradmin"
)

func IsProtectedUsername(username string) bool {
	return username == BootstrapSuperAdmin || username == BootstrapMasterAdmin
}

// Наборы ролей для маршрутов
var (
	AllRoles     = []Role{RoleSuperAdmin, RoleMasterAdmin, RoleAdmin, RoleBranch}
	ManagerRoles = []Role{RoleSuperAdmin, RoleMasterAdmin}
	AdminRoles   = []Role{RoleSuperAdmin, RoleMasterAdmin, RoleAdmin}
	SuperOnly    = []Role{RoleSuperAdmin}
)
