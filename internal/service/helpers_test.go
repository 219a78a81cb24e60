package service

import (
	"context"
	"testing"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/infra/database/filestore"
	"github.com/EgorLis/retail-pos/internal/infra/lock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	store     *filestore.Store
	branches  *Branches
	users     *Users
	clients   *Clients
	purchases *Purchases
	sync      *Sync
}

func newEnv(t *testing.T, nodeID string, hq HQClient) *testEnv {
	t.Helper()
	log := zap.NewNop()
	st, err := filestore.New(log, t.TempDir(), nodeID, lock.NewLocal())
	require.NoError(t, err)
	return &testEnv{
		store:     st,
		branches:  NewBranches(st, log, nodeID),
		users:     NewUsers(st, log, nodeID),
		clients:   NewClients(st, log, nodeID),
		purchases: NewPurchases(st, log, nodeID),
		sync:      NewSync(st, log, nodeID, hq),
	}
}

func (e *testEnv) doc(t *testing.T) *domain.Document {
	t.Helper()
	var out *domain.Document
	require.NoError(t, e.store.View(context.Background(), func(doc *domain.Document) error {
		out = doc
		return nil
	}))
	return out
}

func (e *testEnv) createBranch(t *testing.T, name string) domain.Branch {
	t.Helper()
	id := domain.BranchIDFromName(name)
	b, err := e.branches.Create(context.Background(), CreateBranchInput{
		Name:             name,
		Location:         name + " CBD",
		ShopUserPassword: "shop-pass",
		AdminUsername:    id + "-manager",
		AdminPassword:    "manager-pass",
	})
	require.NoError(t, err)
	return b
}

var (
	superAdmin  = domain.Actor{Username: domain.BootstrapSuperAdmin, Role: domain.RoleSuperAdmin}
	masterAdmin = domain.Actor{Username: domain.BootstrapMasterAdmin, Role: domain.RoleMasterAdmin}
)

func clientSet(list []domain.Client) map[string]string {
	out := make(map[string]string, len(list))
	for _, c := range list {
		out[c.PhoneNumber] = c.Name
	}
	return out
}
