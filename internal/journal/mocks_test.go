package journal

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"trade-journal-go/internal/models"
)

// MockTradeSource is a mock implementation of TradeSource.
type MockTradeSource struct {
	mock.Mock
}

func (m *MockTradeSource) FetchTrades(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*FetchResult)
	return res, args.Error(1)
}

// MockPriceOracle is a mock implementation of PriceOracle.
type MockPriceOracle struct {
	mock.Mock
}

func (m *MockPriceOracle) CurrentUnitPrice(ctx context.Context, tokenAddress string) (decimal.Decimal, error) {
	args := m.Called(ctx, tokenAddress)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockTradeStore is a mock implementation of TradeStore.
type MockTradeStore struct {
	mock.Mock
}

func (m *MockTradeStore) ListTrades(ctx context.Context, walletAddress, tokenAddress string) ([]models.RawTrade, error) {
	args := m.Called(ctx, walletAddress, tokenAddress)
	trades, _ := args.Get(0).([]models.RawTrade)
	return trades, args.Error(1)
}

func (m *MockTradeStore) UpdateNote(ctx context.Context, walletAddress, tradeIdentifier, text string) error {
	args := m.Called(ctx, walletAddress, tradeIdentifier, text)
	return args.Error(0)
}

func (m *MockTradeStore) SaveTrades(ctx context.Context, trades []models.Trade) (int, error) {
	args := m.Called(ctx, trades)
	return args.Int(0), args.Error(1)
}

// MockLegacyNoteStore is a mock implementation of LegacyNoteStore.
type MockLegacyNoteStore struct {
	mock.Mock
}

func (m *MockLegacyNoteStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockLegacyNoteStore) Set(ctx context.Context, key, text string) error {
	args := m.Called(ctx, key, text)
	return args.Error(0)
}

func rawTrade(id, token, side string, qty, value float64, ts int64) models.RawTrade {
	return models.RawTrade{
		Identifier:    id,
		WalletAddress: "wallet1",
		TokenAddress:  token,
		Side:          side,
		Quantity:      qty,
		Value:         value,
		Timestamp:     ts,
	}
}

func trade(id, token string, dir models.Direction, qty, value string, ts int64) models.Trade {
	return models.Trade{
		Identifier:    id,
		WalletAddress: "wallet1",
		TokenAddress:  token,
		Direction:     dir,
		Quantity:      decimal.RequireFromString(qty),
		Value:         decimal.RequireFromString(value),
		Timestamp:     ts,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func keys(trades []models.Trade) []string {
	out := make([]string, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.Key())
	}
	return out
}
