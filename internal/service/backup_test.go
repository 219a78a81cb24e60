package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memBackups struct {
	key  string
	mime string
	body []byte
}

func (m *memBackups) Put(_ context.Context, key string, r io.Reader, size int64, mime string) (domain.BlobPutResult, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return domain.BlobPutResult{}, err
	}
	m.key, m.mime, m.body = key, mime, b
	return domain.BlobPutResult{StorageKey: key, Size: size}, nil
}

func (m *memBackups) Ping(context.Context) error { return nil }

func TestBackupKey(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "backups/hq/20240305T143000Z.json", BackupKey("hq", at))
}

func TestBackupCreate_UploadsDocument(t *testing.T) {
	e := newEnv(t, "hq", nil)
	e.createBranch(t, "Nairobi")
	mem := &memBackups{}
	svc := NewBackups(e.store, zap.NewNop(), "hq", mem)

	res, err := svc.Create(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.StorageKey, "backups/hq/"))
	assert.Equal(t, int64(len(mem.body)), res.Size)
	assert.Equal(t, "application/json", mem.mime)

	var doc domain.Document
	require.NoError(t, json.Unmarshal(mem.body, &doc))
	assert.Contains(t, doc.Branches, "nairobi")
}

func TestBackupCreate_NotConfigured(t *testing.T) {
	e := newEnv(t, "hq", nil)
	svc := NewBackups(e.store, zap.NewNop(), "hq", nil)
	_, err := svc.Create(context.Background())
	require.ErrorIs(t, err, domain.ErrNotImplemented)
}
