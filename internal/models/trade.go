package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is the side of a trade.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection accepts upstream side strings in any case ("buy", "Sell", ...).
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionBuy:
		return DirectionBuy, nil
	case DirectionSell:
		return DirectionSell, nil
	}
	return "", fmt.Errorf("unknown trade direction %q", s)
}

// RawTrade is a swap event as delivered by the upstream source or read back from the store.
// Amounts are signed as the source reports them and are not trusted to follow any convention.
type RawTrade struct {
	Identifier    string  `json:"identifier"`
	WalletAddress string  `json:"wallet_address"`
	TokenAddress  string  `json:"token_address"`
	Side          string  `json:"side"`
	Quantity      float64 `json:"quantity"`
	Value         float64 `json:"value_usd"`
	UnitPrice     float64 `json:"unit_price"`
	Timestamp     int64   `json:"timestamp"` // epoch ms
	Note          string  `json:"note,omitempty"`
	NoteUpdatedAt int64   `json:"note_updated_at,omitempty"` // epoch ms, zero when unknown
}

// Trade is one normalized ledger entry for a wallet/token pair.
// Quantity and Value are never negative.
type Trade struct {
	Identifier    string          `json:"identifier,omitempty"`
	WalletAddress string          `json:"wallet_address"`
	TokenAddress  string          `json:"token_address"`
	Direction     Direction       `json:"direction"`
	Quantity      decimal.Decimal `json:"quantity"`
	Value         decimal.Decimal `json:"value_usd"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Timestamp     int64           `json:"timestamp"` // epoch ms
	Note          string          `json:"note,omitempty"`
}

// Key returns the identity used for deduplication: the identifier when present,
// otherwise the composite fallback key.
func (t Trade) Key() string {
	if t.Identifier != "" {
		return t.Identifier
	}
	return FallbackKey(t)
}

// FallbackKey builds the composite key (token, timestamp, direction, quantity, value).
// Two distinct trades sharing all five fields in the same millisecond collapse into one.
func FallbackKey(t Trade) string {
	return fmt.Sprintf("%s|%d|%s|%s|%s",
		t.TokenAddress,
		t.Timestamp,
		t.Direction,
		t.Quantity.String(),
		t.Value.String(),
	)
}
