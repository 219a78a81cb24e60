package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker — распределённая блокировка документа через SET NX PX.
// Нужна, когда несколько реплик узла пишут в общий том/БД.
type Locker struct {
	rdb    *redis.Client
	logger *zap.Logger
	ttl    time.Duration
	retry  time.Duration
}

type Config struct {
	Addr     string
	DB       int
	Password string
	LockTTL  time.Duration
}

// снимаем блокировку только если она всё ещё наша
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func New(cfg Config, logger *zap.Logger) *Locker {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{rdb: rdb, logger: logger, ttl: ttl, retry: 25 * time.Millisecond}
}

func (l *Locker) Ping(ctx context.Context) error {
	err := l.rdb.Ping(ctx).Err()
	if err != nil {
		l.logger.Warn("PING failed", zap.Error(err))
	} else {
		l.logger.Debug("PING ok")
	}
	return err
}

func (l *Locker) Close() {
	if l.rdb == nil {
		l.logger.Info("nothing to close")
		return
	}
	if err := l.rdb.Close(); err != nil {
		l.logger.Warn("error while closing", zap.Error(err))
		return
	}
	l.logger.Info("closed")
}

// Lock крутится на SETNX, пока не получит ключ или не отменят контекст.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			l.logger.Error("SETNX failed", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		if ok {
			l.logger.Debug("lock acquired", zap.String("key", key), zap.Duration("ttl", l.ttl))
			return func() { l.unlock(key, token) }, nil
		}

		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Locker) unlock(key, token string) {
	// отдельный контекст: запрос мог уже завершиться
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := unlockScript.Run(ctx, l.rdb, []string{key}, token).Int()
	if err != nil {
		l.logger.Error("unlock failed", zap.String("key", key), zap.Error(err))
		return
	}
	if n == 0 {
		l.logger.Warn("lock expired before unlock", zap.String("key", key))
	}
}
