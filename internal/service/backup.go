package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/EgorLis/retail-pos/internal/domain"
	"go.uber.org/zap"
)

// Backups выгружает снимок документа в объектное хранилище.
type Backups struct {
	base
	storage domain.BackupStorage
}

// storage может быть nil, если S3 не настроен.
func NewBackups(store domain.DocumentStore, logger *zap.Logger, nodeID string, storage domain.BackupStorage) *Backups {
	return &Backups{base: newBase(store, logger.Named("backup"), nodeID), storage: storage}
}

// BackupKey: backups/<node>/<UTC время>.json
func BackupKey(nodeID string, at time.Time) string {
	return fmt.Sprintf("backups/%s/%s.json", nodeID, at.UTC().Format("20060102T150405Z"))
}

func (s *Backups) Create(ctx context.Context) (domain.BlobPutResult, error) {
	if s.storage == nil {
		return domain.BlobPutResult{}, errf(domain.ErrNotImplemented, "backup storage is not configured")
	}

	var (
		body    []byte
		version int64
	)
	err := s.store.View(ctx, func(doc *domain.Document) error {
		var err error
		body, err = json.MarshalIndent(doc, "", "  ")
		version = doc.Version
		return err
	})
	if err != nil {
		return domain.BlobPutResult{}, err
	}

	key := BackupKey(s.nodeID, s.now())
	res, err := s.storage.Put(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json")
	if err != nil {
		return domain.BlobPutResult{}, fmt.Errorf("upload backup: %w", err)
	}
	s.logger.Info("backup uploaded", zap.String("key", res.StorageKey), zap.Int64("size", res.Size), zap.Int64("version", version))
	return res, nil
}
