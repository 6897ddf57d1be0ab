package journal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal-go/internal/models"
)

func TestNormalize_ValidRecords(t *testing.T) {
	raws := []models.RawTrade{
		rawTrade("sig1", "TokenA", "buy", 100, 1000, 1000),
		rawTrade("sig2", "TokenA", "SELL", -40, -500, 2000),
	}

	trades, err := Normalize(raws)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, models.DirectionBuy, trades[0].Direction)
	assertDecimal(t, "100", trades[0].Quantity)
	assertDecimal(t, "10", trades[0].UnitPrice, "price derived from value/quantity")

	// Signed upstream amounts are reduced to magnitudes
	assert.Equal(t, models.DirectionSell, trades[1].Direction)
	assertDecimal(t, "40", trades[1].Quantity)
	assertDecimal(t, "500", trades[1].Value)
	assertDecimal(t, "12.5", trades[1].UnitPrice)
}

func TestNormalize_KeepsSuppliedPrice(t *testing.T) {
	raw := rawTrade("sig1", "TokenA", "buy", 10, 100, 1000)
	raw.UnitPrice = 9.5

	trades, err := Normalize([]models.RawTrade{raw})
	require.NoError(t, err)
	assertDecimal(t, "9.5", trades[0].UnitPrice)
}

func TestNormalize_ZeroQuantityKeepsZeroPrice(t *testing.T) {
	trades, err := Normalize([]models.RawTrade{rawTrade("sig1", "TokenA", "buy", 0, 5, 1000)})
	require.NoError(t, err)
	assert.True(t, trades[0].UnitPrice.IsZero())
}

func TestNormalize_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawTrade
	}{
		{"missing wallet", func() models.RawTrade { r := rawTrade("a", "T", "buy", 1, 1, 1); r.WalletAddress = " "; return r }()},
		{"missing token", rawTrade("a", "", "buy", 1, 1, 1)},
		{"unknown side", rawTrade("a", "T", "swap", 1, 1, 1)},
		{"NaN quantity", rawTrade("a", "T", "buy", math.NaN(), 1, 1)},
		{"Inf value", rawTrade("a", "T", "sell", 1, math.Inf(1), 1)},
		{"zero timestamp", rawTrade("a", "T", "buy", 1, 1, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			valid := rawTrade("ok", "T", "buy", 1, 1, 1)
			trades, err := Normalize([]models.RawTrade{valid, tc.raw})

			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Contains(t, err.Error(), "record 1")
			// Valid records survive alongside rejected ones
			require.Len(t, trades, 1)
			assert.Equal(t, "ok", trades[0].Identifier)
		})
	}
}

func TestDedupe_SameIdentifier(t *testing.T) {
	trades := []models.Trade{
		trade("sig1", "TokenA", models.DirectionBuy, "1", "10", 1000),
		trade("sig1", "TokenA", models.DirectionBuy, "1", "10", 1000),
	}
	out := Dedupe(trades)
	require.Len(t, out, 1)
	assert.Equal(t, "sig1", out[0].Identifier)
}

func TestDedupe_FirstOccurrenceWins(t *testing.T) {
	first := trade("sig1", "TokenA", models.DirectionBuy, "1", "10", 1000)
	first.Note = "first"
	second := first
	second.Note = "second"

	out := Dedupe([]models.Trade{first, trade("sig2", "TokenA", models.DirectionSell, "1", "12", 2000), second})
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Note)
	assert.Equal(t, []string{"sig1", "sig2"}, keys(out))
}

func TestDedupe_FallbackKey(t *testing.T) {
	a := trade("", "TokenA", models.DirectionBuy, "5", "50", 1000)
	sameFields := trade("", "TokenA", models.DirectionBuy, "5", "50", 1000)
	otherTime := trade("", "TokenA", models.DirectionBuy, "5", "50", 1001)
	otherSide := trade("", "TokenA", models.DirectionSell, "5", "50", 1000)

	out := Dedupe([]models.Trade{a, sameFields, otherTime, otherSide})
	assert.Len(t, out, 3, "identical sub-millisecond trades without identifier collapse")
	assert.Equal(t, "TokenA|1000|BUY|5|50", out[0].Key())
}

func TestDedupe_Idempotent(t *testing.T) {
	list := []models.Trade{
		trade("sig1", "TokenA", models.DirectionBuy, "1", "10", 1000),
		trade("", "TokenB", models.DirectionBuy, "2", "20", 1000),
		trade("sig1", "TokenA", models.DirectionBuy, "1", "10", 1000),
		trade("sig3", "TokenA", models.DirectionSell, "1", "11", 3000),
		trade("", "TokenB", models.DirectionBuy, "2", "20", 1000),
	}
	once := Dedupe(list)
	assert.Equal(t, once, Dedupe(once))
}

func TestDedupe_DuplicateInsertedAnywhere(t *testing.T) {
	list := []models.Trade{
		trade("sig1", "TokenA", models.DirectionBuy, "1", "10", 1000),
		trade("", "TokenB", models.DirectionBuy, "2", "20", 1500),
		trade("sig3", "TokenA", models.DirectionSell, "1", "11", 3000),
	}
	want := keys(Dedupe(list))

	for i := range list {
		for pos := i + 1; pos <= len(list); pos++ {
			withDup := make([]models.Trade, 0, len(list)+1)
			withDup = append(withDup, list[:pos]...)
			withDup = append(withDup, list[i])
			withDup = append(withDup, list[pos:]...)

			assert.Equal(t, want, keys(Dedupe(withDup)), "duplicate of %d inserted at %d", i, pos)
		}
	}
}
