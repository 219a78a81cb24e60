package domain

import (
	"context"
	"io"
)

// Объектное хранилище для резервных копий документа (S3/MinIO)
type BackupStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, mime string) (BlobPutResult, error)
	Ping(ctx context.Context) error
}

type BlobPutResult struct {
	StorageKey string `json:"key"`
	Size       int64  `json:"size"`
	ETag       string `json:"etag,omitempty"`
}
