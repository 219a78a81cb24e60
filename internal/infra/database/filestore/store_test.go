package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/infra/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T, node string) *Store {
	t.Helper()
	s, err := New(zap.NewNop(), t.TempDir(), node, lock.NewLocal())
	require.NoError(t, err)
	return s
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "hq.json", FileName("hq"))
	assert.Equal(t, "hq.json", FileName(""))
	assert.Equal(t, "shop-nairobi.json", FileName("nairobi"))
}

func TestNew_SeedsBootstrapUsers(t *testing.T) {
	s := newStore(t, "hq")

	_, err := os.Stat(s.Path())
	require.NoError(t, err)

	err = s.View(context.Background(), func(doc *domain.Document) error {
		require.Contains(t, doc.Users, domain.BootstrapSuperAdmin)
		require.Contains(t, doc.Users, domain.BootstrapMasterAdmin)
		assert.Equal(t, domain.RoleSuperAdmin, doc.Users[domain.BootstrapSuperAdmin].Role)
		assert.Equal(t, domain.RoleMasterAdmin, doc.Users[domain.BootstrapMasterAdmin].Role)
		assert.NotNil(t, doc.Branches)
		assert.NotNil(t, doc.ArchivedPurchases)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdate_PersistsAndBumpsVersion(t *testing.T) {
	s := newStore(t, "hq")
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(doc *domain.Document) error {
		doc.Branches["nairobi"] = domain.Branch{ID: "nairobi", Name: "Nairobi", Location: "CBD"}
		return nil
	}))
	require.NoError(t, s.Update(ctx, func(doc *domain.Document) error { return nil }))

	require.NoError(t, s.View(ctx, func(doc *domain.Document) error {
		assert.Equal(t, "Nairobi", doc.Branches["nairobi"].Name)
		assert.Equal(t, int64(2), doc.Version)
		return nil
	}))
}

func TestUpdate_ErrorDiscardsChanges(t *testing.T) {
	s := newStore(t, "hq")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(doc *domain.Document) error {
		doc.Branches["x"] = domain.Branch{ID: "x", Name: "X"}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(doc *domain.Document) error {
		assert.NotContains(t, doc.Branches, "x")
		assert.Equal(t, int64(0), doc.Version)
		return nil
	}))

	// временных файлов не остаётся
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_NormalizesLegacyDocument(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
		"users": {"bob": {"password": "x", "role": "admin", "branch": "nairobi"}},
		"branches": {"nairobi": {"name": "Nairobi", "location": "CBD"}},
		"clients": {"nairobi": [{"name": "Amina", "phoneNumber": "0700"}]},
		"purchases": [{"branchId": "nairobi", "clientName": "Amina"}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop-nairobi.json"), []byte(legacy), 0o644))

	s, err := New(zap.NewNop(), dir, "nairobi", lock.NewLocal())
	require.NoError(t, err)

	require.NoError(t, s.View(context.Background(), func(doc *domain.Document) error {
		assert.Equal(t, "bob", doc.Users["bob"].Username)
		assert.Equal(t, "nairobi", doc.Branches["nairobi"].ID)
		assert.NotEmpty(t, doc.Clients["nairobi"][0].ID)
		assert.NotEmpty(t, doc.Purchases[0].ID)
		assert.NotNil(t, doc.ArchivedUsers)
		return nil
	}))
}
