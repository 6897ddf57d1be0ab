package journal

import (
	"context"
	"fmt"

	"trade-journal-go/internal/models"

	"github.com/shopspring/decimal"
)

// FetchRequest describes one page of trade history to pull from the upstream source.
type FetchRequest struct {
	WalletAddress string
	TokenAddress  string // optional
	Page          int    // 1-based
	PageSize      int
	MinTimestamp  *int64 // epoch ms, optional
}

// FetchResult is one page of raw trades plus the total number available upstream.
type FetchResult struct {
	Trades     []models.RawTrade
	TotalCount int
}

// TradeSource is the upstream trade history provider.
// Implementations return *Error values classified by ErrorKind.
type TradeSource interface {
	FetchTrades(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// PriceOracle returns the current unit price of a token. Values may be stale or zero.
type PriceOracle interface {
	CurrentUnitPrice(ctx context.Context, tokenAddress string) (decimal.Decimal, error)
}

// TradeStore is the authoritative per-trade store that also holds notes.
type TradeStore interface {
	// ListTrades returns all stored trades of a wallet, optionally restricted to one token.
	ListTrades(ctx context.Context, walletAddress, tokenAddress string) ([]models.RawTrade, error)

	// UpdateNote sets the note of a single trade.
	UpdateNote(ctx context.Context, walletAddress, tradeIdentifier, text string) error

	// SaveTrades inserts trades that are not stored yet. Existing rows are left untouched.
	SaveTrades(ctx context.Context, trades []models.Trade) (int, error)
}

// LegacyNoteStore is the key-value store per-token notes were kept in before they moved onto trades.
// Get returns "" and no error for a missing key.
type LegacyNoteStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, text string) error
}

// LegacyNoteKey is the legacy store key for a wallet/token pair.
func LegacyNoteKey(walletAddress, tokenAddress string) string {
	return fmt.Sprintf("%s:%s", walletAddress, tokenAddress)
}
