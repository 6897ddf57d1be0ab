package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-journal-go/internal/models"
)

func walletMatcher(wallet string) interface{} {
	return mock.MatchedBy(func(r FetchRequest) bool { return r.WalletAddress == wallet })
}

func TestSyncer_SyncWallet(t *testing.T) {
	ctx := context.Background()
	source := new(MockTradeSource)
	store := new(MockTradeStore)
	loader := NewLoader(source, NewWalletTradeCache(), zap.NewNop())

	source.On("FetchTrades", ctx, walletMatcher("wallet1")).Return(&FetchResult{Trades: page1, TotalCount: 2}, nil).Once()
	store.On("SaveTrades", ctx, mock.MatchedBy(func(trades []models.Trade) bool {
		return len(trades) == 2 && trades[0].Identifier == "sig1"
	})).Return(2, nil).Once()

	s := NewSyncer(zap.NewNop(), loader, store, []string{"wallet1"}, time.Minute)
	n, err := s.SyncWallet(ctx, "wallet1")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	store.AssertExpectations(t)
}

func TestSyncer_SyncAllContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	source := new(MockTradeSource)
	store := new(MockTradeStore)
	loader := NewLoader(source, NewWalletTradeCache(), zap.NewNop())

	source.On("FetchTrades", ctx, walletMatcher("wallet1")).
		Return(nil, NewError(KindRateLimited, "fetch trades", errors.New("429"))).Once()
	source.On("FetchTrades", ctx, walletMatcher("wallet2")).Return(&FetchResult{Trades: page3, TotalCount: 1}, nil).Once()
	store.On("SaveTrades", ctx, mock.Anything).Return(1, nil).Once()

	s := NewSyncer(zap.NewNop(), loader, store, []string{"wallet1", "wallet2"}, time.Minute)
	s.SyncAll(ctx)

	source.AssertExpectations(t)
	store.AssertExpectations(t)

	statuses := s.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "wallet1", statuses[0].Wallet)
	assert.Equal(t, "rate-limited", statuses[0].ErrorKind)
	assert.Nil(t, statuses[0].LastSuccessAt)
	assert.Equal(t, "wallet2", statuses[1].Wallet)
	assert.Empty(t, statuses[1].ErrorKind)
	assert.NotNil(t, statuses[1].LastSuccessAt)
	assert.Equal(t, 1, statuses[1].Inserted)
}

func TestSyncer_StoreFailure(t *testing.T) {
	ctx := context.Background()
	source := new(MockTradeSource)
	store := new(MockTradeStore)
	loader := NewLoader(source, NewWalletTradeCache(), zap.NewNop())

	source.On("FetchTrades", ctx, walletMatcher("wallet1")).Return(&FetchResult{Trades: page1, TotalCount: 2}, nil).Once()
	store.On("SaveTrades", ctx, mock.Anything).Return(0, errors.New("disk full")).Once()

	s := NewSyncer(zap.NewNop(), loader, store, []string{"wallet1"}, time.Minute)
	_, err := s.SyncWallet(ctx, "wallet1")
	assert.ErrorContains(t, err, "disk full")
}

func TestSyncer_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := new(MockTradeSource)
	store := new(MockTradeStore)
	loader := NewLoader(source, NewWalletTradeCache(), zap.NewNop())

	source.On("FetchTrades", mock.Anything, mock.Anything).Return(&FetchResult{TotalCount: 0}, nil)
	store.On("SaveTrades", mock.Anything, mock.Anything).Return(0, nil)

	s := NewSyncer(zap.NewNop(), loader, store, []string{"wallet1"}, time.Hour)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("syncer did not stop after cancel")
	}
}
