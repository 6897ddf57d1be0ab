package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// TradeStore is the authoritative trade and notes store backed by gorm.
type TradeStore struct {
	db  *gorm.DB
	now func() time.Time
}

// Compile-time interface check.
var _ journal.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates a new TradeStore.
func NewTradeStore(db *gorm.DB) *TradeStore {
	return &TradeStore{db: db, now: time.Now}
}

// ListTrades returns the stored trades of a wallet ordered by timestamp, optionally for one token.
func (s *TradeStore) ListTrades(ctx context.Context, walletAddress, tokenAddress string) ([]models.RawTrade, error) {
	q := s.db.WithContext(ctx).Where("wallet_address = ?", walletAddress)
	if tokenAddress != "" {
		q = q.Where("token_address = ?", tokenAddress)
	}

	var records []models.TradeRecord
	if err := q.Order("timestamp asc").Order("id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	out := make([]models.RawTrade, 0, len(records))
	for _, r := range records {
		out = append(out, toRaw(r))
	}
	return out, nil
}

// UpdateNote sets the note of the trade with the given signature.
func (s *TradeStore) UpdateNote(ctx context.Context, walletAddress, tradeIdentifier, text string) error {
	res := s.db.WithContext(ctx).
		Model(&models.TradeRecord{}).
		Where("wallet_address = ? AND signature = ?", walletAddress, tradeIdentifier).
		Updates(map[string]any{
			"note":            text,
			"note_updated_at": s.now().UnixMilli(),
		})
	if res.Error != nil {
		return fmt.Errorf("update note: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveTrades inserts trades that are not stored yet and returns how many were new.
// Trades already present, and the notes on them, are left untouched.
func (s *TradeStore) SaveTrades(ctx context.Context, trades []models.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	records := make([]models.TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, toRecord(t))
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet_address"}, {Name: "dedup_key"}},
			DoNothing: true,
		}).
		CreateInBatches(&records, 200)
	if res.Error != nil {
		return 0, fmt.Errorf("save trades: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func toRecord(t models.Trade) models.TradeRecord {
	return models.TradeRecord{
		WalletAddress: t.WalletAddress,
		DedupKey:      t.Key(),
		Signature:     t.Identifier,
		TokenAddress:  t.TokenAddress,
		Direction:     string(t.Direction),
		Quantity:      t.Quantity,
		Value:         t.Value,
		UnitPrice:     t.UnitPrice,
		Timestamp:     t.Timestamp,
		Note:          t.Note,
	}
}

func toRaw(r models.TradeRecord) models.RawTrade {
	return models.RawTrade{
		Identifier:    r.Signature,
		WalletAddress: r.WalletAddress,
		TokenAddress:  r.TokenAddress,
		Side:          r.Direction,
		Quantity:      r.Quantity.InexactFloat64(),
		Value:         r.Value.InexactFloat64(),
		UnitPrice:     r.UnitPrice.InexactFloat64(),
		Timestamp:     r.Timestamp,
		Note:          r.Note,
		NoteUpdatedAt: r.NoteUpdatedAt,
	}
}
