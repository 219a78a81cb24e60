package lock

import (
	"context"
	"sync"
)

// Local — блокировки внутри одного процесса (по ключу).
type Local struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{locks: map[string]chan struct{}{}}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

// Lock ждёт освобождения ключа либо отмены контекста.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
