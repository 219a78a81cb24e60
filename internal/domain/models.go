package domain

import (
	"time"

	"github.com/google/uuid"
)

// Филиал (магазин). Ключ в документе совпадает с ID.
type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Пользователь. Пароль хранится как есть, ключ в документе — Username.
type User struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      Role      `json:"role"`
	Branch    *string   `json:"branch"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy *string   `json:"createdBy,omitempty"`
}

// BranchID возвращает филиал пользователя или пустую строку.
func (u User) BranchID() string {
	if u.Branch == nil {
		return ""
	}
	return *u.Branch
}

// Клиент филиала
type Client struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// Позиция в покупке
type LineItem struct {
	PurchasedItem string `json:"purchasedItem"`
	Variant       string `json:"variant"`
	Variant2      string `json:"variant2"`
	Amount        int    `json:"amount"`
	Money         string `json:"money"`
}

// Покупка (транзакция). После создания меняется только флаг Synced.
type Purchase struct {
	ID                       string     `json:"id"`
	BranchID                 string     `json:"branchId,omitempty"`
	ShopName                 string     `json:"shopName,omitempty"`
	Location                 string     `json:"location,omitempty"`
	ClientName               string     `json:"clientName"`
	PhoneNumber              string     `json:"phoneNumber"`
	DateTime                 string     `json:"dateTime,omitempty"`
	DateTimeISO              string     `json:"dateTimeISO,omitempty"`
	InvoiceNumber            string     `json:"invoiceNumber"`
	Comment                  string     `json:"comment"`
	InvoiceFileName          string     `json:"invoiceFileName,omitempty"`
	InvoiceFileData          string     `json:"invoiceFileData,omitempty"`
	PurchasedInvoiceFileName string     `json:"purchasedInvoiceFileName,omitempty"`
	PurchasedInvoiceFileData string     `json:"purchasedInvoiceFileData,omitempty"`
	Purchases                []LineItem `json:"purchases"`
	Synced                   *bool      `json:"synced,omitempty"`
}

// BelongsTo — покупка относится к филиалу по branchId или по старому полю shopName.
func (p Purchase) BelongsTo(branchID string) bool {
	return p.BranchID == branchID || p.ShopName == branchID
}

// IsSynced — nil считается «не синхронизировано».
func (p Purchase) IsSynced() bool {
	return p.Synced != nil && *p.Synced
}

// Запись журнала входов
type LoginLog struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Role      string  `json:"role"`
	Branch    *string `json:"branch"`
	Timestamp string  `json:"timestamp"`
	Status    string  `json:"status"`
}

const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Document — весь JSON-документ узла (HQ или магазина).
type Document struct {
	Users     map[string]User     `json:"users"`
	Branches  map[string]Branch   `json:"branches"`
	Clients   map[string][]Client `json:"clients"`
	Purchases []Purchase          `json:"purchases"`
	LoginLogs []LoginLog          `json:"loginLogs"`

	ArchivedBranches  map[string]Branch   `json:"archivedBranches"`
	ArchivedUsers     map[string]User     `json:"archivedUsers"`
	ArchivedClients   map[string][]Client `json:"archivedClients"`
	ArchivedPurchases []Purchase          `json:"archivedPurchases"`

	// Version увеличивается при каждой записи документа
	Version int64 `json:"version"`
}

// NewDocument создаёт документ с системными учётками, как при первом запуске.
func NewDocument(now time.Time) *Document {
	d := &Document{
		Users: map[string]User{
			BootstrapSuperAdmin: {
				Username:  BootstrapSuperAdmin,
				Password:  "admin123",
				Role:      RoleSuperAdmin,
				CreatedAt: now,
			},
			BootstrapMasterAdmin: {
				Username:  BootstrapMasterAdmin,
				Password:  "master123",
				Role:      RoleMasterAdmin,
				CreatedAt: now,
			},
		},
	}
	d.Normalize()
	return d
}

// Normalize инициализирует пустые коллекции и проставляет недостающие id.
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = map[string]User{}
	}
	if d.Branches == nil {
		d.Branches = map[string]Branch{}
	}
	if d.Clients == nil {
		d.Clients = map[string][]Client{}
	}
	if d.Purchases == nil {
		d.Purchases = []Purchase{}
	}
	if d.LoginLogs == nil {
		d.LoginLogs = []LoginLog{}
	}
	if d.ArchivedBranches == nil {
		d.ArchivedBranches = map[string]Branch{}
	}
	if d.ArchivedUsers == nil {
		d.ArchivedUsers = map[string]User{}
	}
	if d.ArchivedClients == nil {
		d.ArchivedClients = map[string][]Client{}
	}
	if d.ArchivedPurchases == nil {
		d.ArchivedPurchases = []Purchase{}
	}

	// ключи карт первичны, поля внутри записей подтягиваем к ним
	for name, u := range d.Users {
		if u.Username != name {
			u.Username = name
			d.Users[name] = u
		}
	}
	for name, u := range d.ArchivedUsers {
		if u.Username != name {
			u.Username = name
			d.ArchivedUsers[name] = u
		}
	}
	for id, b := range d.Branches {
		if b.ID != id {
			b.ID = id
			d.Branches[id] = b
		}
	}
	for id, b := range d.ArchivedBranches {
		if b.ID != id {
			b.ID = id
			d.ArchivedBranches[id] = b
		}
	}

	for i := range d.Purchases {
		if d.Purchases[i].ID == "" {
			d.Purchases[i].ID = uuid.NewString()
		}
	}
	for i := range d.ArchivedPurchases {
		if d.ArchivedPurchases[i].ID == "" {
			d.ArchivedPurchases[i].ID = uuid.NewString()
		}
	}
	for _, list := range d.Clients {
		fillClientIDs(list)
	}
	for _, list := range d.ArchivedClients {
		fillClientIDs(list)
	}
}

func fillClientIDs(list []Client) {
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = uuid.NewString()
		}
	}
}

// BranchKnown — филиал есть среди живых или архивных.
func (d *Document) BranchKnown(id string) bool {
	if _, ok := d.Branches[id]; ok {
		return true
	}
	_, ok := d.ArchivedBranches[id]
	return ok
}

// Синхронизация магазина с HQ
type SyncRequest struct {
	ShopID    string     `json:"shopId" validate:"required"`
	Purchases []Purchase `json:"purchases" validate:"required"`
	Clients   []Client   `json:"clients" validate:"required"`
}

type SyncResult struct {
	SyncedPurchases int `json:"syncedPurchases"`
	SyncedClients   int `json:"syncedClients"`
}
