package journal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusServer(t *testing.T) {
	source := new(MockTradeSource)
	store := new(MockTradeStore)
	loader := NewLoader(source, NewWalletTradeCache(), zap.NewNop())

	source.On("FetchTrades", mock.Anything, mock.Anything).Return(&FetchResult{Trades: page1, TotalCount: 2}, nil)
	store.On("SaveTrades", mock.Anything, mock.Anything).Return(2, nil)

	syncer := NewSyncer(zap.NewNop(), loader, store, []string{"wallet1"}, time.Minute)
	syncer.SyncAll(context.Background())

	srv := httptest.NewServer(NewStatusServer(syncer, 0, zap.NewNop()).Handler())
	defer srv.Close()

	t.Run("Health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Status", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Interval string             `json:"interval"`
			Wallets  []string           `json:"wallets"`
			Syncs    []WalletSyncStatus `json:"syncs"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "1m0s", body.Interval)
		assert.Equal(t, []string{"wallet1"}, body.Wallets)
		require.Len(t, body.Syncs, 1)
		assert.Equal(t, 2, body.Syncs[0].Fetched)
		assert.Equal(t, 2, body.Syncs[0].Inserted)
	})
}
