package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradeRecord is a trade persisted in the authoritative store.
// DedupKey mirrors Trade.Key() and only guards against importing the same trade twice;
// notes are addressed by Signature.
type TradeRecord struct {
	gorm.Model
	WalletAddress string          `gorm:"not null;uniqueIndex:idx_wallet_dedup;index:idx_wallet_token"`
	DedupKey      string          `gorm:"not null;uniqueIndex:idx_wallet_dedup"`
	Signature     string          `gorm:"index"`
	TokenAddress  string          `gorm:"not null;index:idx_wallet_token"`
	Direction     string          `gorm:"not null"`
	Quantity      decimal.Decimal `gorm:"type:numeric(38,18)"`
	Value         decimal.Decimal `gorm:"type:numeric(38,18)"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(38,18)"`
	Timestamp     int64           `gorm:"not null"`
	Note          string          `gorm:"type:text"`
	NoteUpdatedAt int64
}

// LegacyNote is a per-token note written by older versions, keyed by "{wallet}:{token}".
type LegacyNote struct {
	NoteKey   string `gorm:"primaryKey"`
	Text      string `gorm:"type:text"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`
}
