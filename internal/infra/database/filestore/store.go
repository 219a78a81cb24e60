package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/EgorLis/retail-pos/internal/domain"
	"go.uber.org/zap"
)

// ---- JSON-файл как хранилище документа узла ----

type Store struct {
	logger  *zap.Logger
	path    string
	locker  domain.Locker
	lockKey string
	now     func() time.Time
}

// FileName: hq.json для HQ, shop-<id>.json для магазина.
func FileName(nodeID string) string {
	if nodeID == "" || nodeID == "hq" {
		return "hq.json"
	}
	return fmt.Sprintf("shop-%s.json", nodeID)
}

func New(logger *zap.Logger, dataDir, nodeID string, locker domain.Locker) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{
		logger:  logger,
		path:    filepath.Join(dataDir, FileName(nodeID)),
		locker:  locker,
		lockKey: domain.LockKeyDocument(nodeID),
		now:     func() time.Time { return time.Now().UTC() },
	}

	// первый запуск: создаём документ с системными учётками
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		logger.Info("document not found, seeding defaults", zap.String("path", s.path))
		if err := s.write(domain.NewDocument(s.now())); err != nil {
			return nil, fmt.Errorf("seed document: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	logger.Info("file store ready", zap.String("path", s.path))
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) View(ctx context.Context, fn func(doc *domain.Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (s *Store) Update(ctx context.Context, fn func(doc *domain.Document) error) error {
	unlock, err := s.locker.Lock(ctx, s.lockKey)
	if err != nil {
		return fmt.Errorf("lock document: %w", err)
	}
	defer unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	doc.Version++

	start := time.Now()
	if err := s.write(doc); err != nil {
		return err
	}
	s.logger.Debug("document written", zap.Int64("version", doc.Version), zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

func (s *Store) Close() {
	s.logger.Info("file store closed")
}

func (s *Store) load() (*domain.Document, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewDocument(s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc domain.Document
	if len(b) > 0 {
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
	}
	doc.Normalize()
	return &doc, nil
}

// write пишет во временный файл и переименовывает: документ никогда не бывает наполовину записан.
func (s *Store) write(doc *domain.Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // после успешного Rename файла уже нет

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
