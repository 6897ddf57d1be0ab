package journal

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"trade-journal-go/internal/models"

	"github.com/shopspring/decimal"
)

// Normalize converts raw swap events into trades. Records that fail validation are
// skipped; the returned error (KindValidation) lists every rejected record while the
// valid trades are still returned in their original order.
func Normalize(raws []models.RawTrade) ([]models.Trade, error) {
	trades := make([]models.Trade, 0, len(raws))
	var errs []error

	for i, raw := range raws {
		t, err := normalizeOne(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		trades = append(trades, t)
	}

	if len(errs) > 0 {
		return trades, NewError(KindValidation, "normalize", errors.Join(errs...))
	}
	return trades, nil
}

func normalizeOne(raw models.RawTrade) (models.Trade, error) {
	wallet := strings.TrimSpace(raw.WalletAddress)
	token := strings.TrimSpace(raw.TokenAddress)
	if wallet == "" {
		return models.Trade{}, errors.New("missing wallet address")
	}
	if token == "" {
		return models.Trade{}, errors.New("missing token address")
	}

	dir, err := models.ParseDirection(raw.Side)
	if err != nil {
		return models.Trade{}, err
	}

	amounts := []struct {
		name string
		v    float64
	}{
		{"quantity", raw.Quantity},
		{"value", raw.Value},
		{"unit price", raw.UnitPrice},
	}
	for _, a := range amounts {
		if math.IsNaN(a.v) || math.IsInf(a.v, 0) {
			return models.Trade{}, fmt.Errorf("%s is not a finite number", a.name)
		}
	}
	if raw.Timestamp <= 0 {
		return models.Trade{}, fmt.Errorf("invalid timestamp %d", raw.Timestamp)
	}

	// Sources disagree on sign conventions for sells; only magnitudes are kept.
	qty := decimal.NewFromFloat(raw.Quantity).Abs()
	value := decimal.NewFromFloat(raw.Value).Abs()
	price := decimal.NewFromFloat(raw.UnitPrice).Abs()
	if price.IsZero() && qty.IsPositive() {
		price = value.Div(qty)
	}

	return models.Trade{
		Identifier:    strings.TrimSpace(raw.Identifier),
		WalletAddress: wallet,
		TokenAddress:  token,
		Direction:     dir,
		Quantity:      qty,
		Value:         value,
		UnitPrice:     price,
		Timestamp:     raw.Timestamp,
		Note:          raw.Note,
	}, nil
}

// Dedupe removes trades whose key was already seen. The first occurrence wins and
// survivors keep their relative order, so Dedupe(Dedupe(l)) equals Dedupe(l).
func Dedupe(trades []models.Trade) []models.Trade {
	seen := make(map[string]struct{}, len(trades))
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		key := t.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeAndDedupe runs Normalize followed by Dedupe.
func NormalizeAndDedupe(raws []models.RawTrade) ([]models.Trade, error) {
	trades, err := Normalize(raws)
	return Dedupe(trades), err
}
