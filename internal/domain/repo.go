package domain

import "context"

// DocumentStore — хранилище документа узла.
// Update читает документ целиком, применяет fn и записывает результат одной записью.
// Если fn вернул ошибку, ничего не пишется.
type DocumentStore interface {
	View(ctx context.Context, fn func(doc *Document) error) error
	Update(ctx context.Context, fn func(doc *Document) error) error
	Ping(ctx context.Context) error
	Close()
}

// Locker сериализует read-modify-write одного документа.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
