package service

import (
	"context"
	"errors"
	"testing"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncPayload() domain.SyncRequest {
	return domain.SyncRequest{
		ShopID: "nairobi",
		Purchases: []domain.Purchase{
			{ID: "p1", BranchID: "nairobi", ClientName: "Amina"},
			{ID: "p2", ClientName: "Baraka"},
			{ID: "p1", BranchID: "nairobi", ClientName: "Amina"},
		},
		Clients: []domain.Client{
			{Name: "Amina", PhoneNumber: "0700"},
			{Name: "Amina again", PhoneNumber: "0700"},
			{Name: "No phone", PhoneNumber: ""},
			{Name: "Baraka", PhoneNumber: "0701"},
		},
	}
}

func TestSyncMerge_IsIdempotent(t *testing.T) {
	e := newEnv(t, "hq", nil)
	ctx := context.Background()
	e.createBranch(t, "nairobi")

	res, err := e.sync.Merge(ctx, syncPayload())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{SyncedPurchases: 2, SyncedClients: 2}, res)
	once := e.doc(t)

	res, err = e.sync.Merge(ctx, syncPayload())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{}, res)
	twice := e.doc(t)

	assert.Equal(t, once.Purchases, twice.Purchases)
	assert.Equal(t, once.Clients, twice.Clients)

	for _, p := range twice.Purchases {
		assert.True(t, p.BelongsTo("nairobi"))
		assert.True(t, p.IsSynced())
	}
}

func TestSyncMerge_SkipsArchived(t *testing.T) {
	e := newEnv(t, "hq", nil)
	ctx := context.Background()
	e.createBranch(t, "nairobi")

	_, err := e.sync.Merge(ctx, syncPayload())
	require.NoError(t, err)
	require.NoError(t, e.purchases.Delete(ctx, "p1"))
	require.NoError(t, e.clients.Delete(ctx, "nairobi", 0))

	res, err := e.sync.Merge(ctx, syncPayload())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{}, res, "archived records must not come back as live duplicates")
}

func TestSyncMerge_Validation(t *testing.T) {
	e := newEnv(t, "hq", nil)
	ctx := context.Background()
	e.createBranch(t, "nairobi")

	_, err := e.sync.Merge(ctx, domain.SyncRequest{ShopID: "nairobi", Purchases: []domain.Purchase{}})
	require.ErrorIs(t, err, domain.ErrBadParams)

	_, err = e.sync.Merge(ctx, domain.SyncRequest{ShopID: "nairobi", Purchases: []domain.Purchase{{}}, Clients: []domain.Client{}})
	require.ErrorIs(t, err, domain.ErrBadParams)

	_, err = e.sync.Merge(ctx, domain.SyncRequest{ShopID: "ghost", Purchases: []domain.Purchase{}, Clients: []domain.Client{}})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

type fakeHQ struct {
	calls []domain.SyncRequest
	err   error
}

func (f *fakeHQ) Sync(_ context.Context, req domain.SyncRequest) (domain.SyncResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return domain.SyncResult{}, f.err
	}
	return domain.SyncResult{SyncedPurchases: len(req.Purchases), SyncedClients: len(req.Clients)}, nil
}

func TestSyncPush_MarksPushedPurchases(t *testing.T) {
	hq := &fakeHQ{}
	e := newEnv(t, "nairobi", hq)
	ctx := context.Background()

	_, err := e.clients.Add(ctx, "nairobi", "Amina", "0700")
	require.NoError(t, err)
	p1, err := e.purchases.Create(ctx, domain.Purchase{BranchID: "nairobi"})
	require.NoError(t, err)
	synced := true
	_, err = e.purchases.Create(ctx, domain.Purchase{BranchID: "nairobi", Synced: &synced})
	require.NoError(t, err)

	res, err := e.sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Clients)
	require.Len(t, hq.calls, 1)
	assert.Equal(t, "nairobi", hq.calls[0].ShopID)
	require.Len(t, hq.calls[0].Purchases, 1)
	assert.Equal(t, p1.ID, hq.calls[0].Purchases[0].ID)

	for _, p := range e.doc(t).Purchases {
		assert.True(t, p.IsSynced())
	}

	res, err = e.sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
}

func TestSyncPush_FailureKeepsUnsynced(t *testing.T) {
	hq := &fakeHQ{err: errors.New("connection refused")}
	e := newEnv(t, "nairobi", hq)
	ctx := context.Background()
	_, err := e.purchases.Create(ctx, domain.Purchase{BranchID: "nairobi"})
	require.NoError(t, err)

	_, err = e.sync.Push(ctx)
	require.Error(t, err)
	assert.False(t, e.doc(t).Purchases[0].IsSynced())
}

func TestSyncPush_WithoutHQClient(t *testing.T) {
	e := newEnv(t, "hq", nil)
	_, err := e.sync.Push(context.Background())
	require.ErrorIs(t, err, domain.ErrNotImplemented)
}

// mergeClient замыкает Push магазина прямо на Merge HQ без HTTP.
type mergeClient struct{ hq *Sync }

func (m mergeClient) Sync(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error) {
	return m.hq.Merge(ctx, req)
}

// Shop pushes into a real HQ merge: replay after a lost ack changes nothing.
func TestSyncPush_IntoHQMerge(t *testing.T) {
	hqEnv := newEnv(t, "hq", nil)
	hqEnv.createBranch(t, "nairobi")
	shop := newEnv(t, "nairobi", mergeClient{hqEnv.sync})
	ctx := context.Background()

	_, err := shop.clients.Add(ctx, "nairobi", "Amina", "0700")
	require.NoError(t, err)
	_, err = shop.purchases.Create(ctx, domain.Purchase{BranchID: "nairobi", ClientName: "Amina"})
	require.NoError(t, err)

	res, err := shop.sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{SyncedPurchases: 1, SyncedClients: 1}, res.Accepted)

	res, err = shop.sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{}, res.Accepted)

	doc := hqEnv.doc(t)
	assert.Len(t, doc.Purchases, 1)
	assert.Len(t, doc.Clients["nairobi"], 1)
}
