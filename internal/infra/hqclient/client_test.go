package hqclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSync_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sync", r.URL.Path)
		assert.Equal(t, "nairobi", r.Header.Get("X-Node-ID"))

		var req domain.SyncRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "nairobi", req.ShopID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(domain.OkData(domain.SyncResult{
			SyncedPurchases: len(req.Purchases),
			SyncedClients:   len(req.Clients),
		}))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, NodeID: "nairobi"}, zap.NewNop())
	res, err := c.Sync(context.Background(), domain.SyncRequest{
		ShopID:    "nairobi",
		Purchases: []domain.Purchase{{ID: "p1"}, {ID: "p2"}},
		Clients:   []domain.Client{{Name: "Amina", PhoneNumber: "0700"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{SyncedPurchases: 2, SyncedClients: 1}, res)
}

func TestSync_RejectedByHQ(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(domain.Fail("branch not found"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, NodeID: "ghost"}, zap.NewNop())
	_, err := c.Sync(context.Background(), domain.SyncRequest{ShopID: "ghost"})
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "branch not found")
}

func TestSync_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(domain.Fail("upstream"))
			return
		}
		_ = json.NewEncoder(w).Encode(domain.OkData(domain.SyncResult{}))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, NodeID: "x"}, zap.NewNop())
	_, err := c.Sync(context.Background(), domain.SyncRequest{ShopID: "x"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}
