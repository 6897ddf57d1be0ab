package journal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"trade-journal-go/internal/models"
)

func TestComputePosition_BuyThenPartialSell(t *testing.T) {
	trades := []models.Trade{
		trade("t0", "TokenA", models.DirectionBuy, "100", "1000", 1000),
		trade("t1", "TokenA", models.DirectionSell, "40", "500", 2000),
	}

	p := ComputePosition(trades, decimal.Zero)

	assertDecimal(t, "100", p.TotalBought)
	assertDecimal(t, "40", p.TotalSold)
	assertDecimal(t, "60", p.Remaining)
	assertDecimal(t, "400", p.SoldCostBasis)
	assertDecimal(t, "100", p.RealizedPL)
	assertDecimal(t, "600", p.RemainingCostBasis)
	assertDecimal(t, "-600", p.UnrealizedPL, "no price known")
	assertDecimal(t, "10", p.AvgBuyPrice)
	assertDecimal(t, "12.5", p.AvgSellPrice)
	assert.Equal(t, 1, p.BuyCount)
	assert.Equal(t, 1, p.SellCount)
	assert.Equal(t, int64(1000), p.FirstTradeAt)
	assert.Equal(t, int64(2000), p.LastTradeAt)
	assert.Equal(t, "TokenA", p.TokenAddress)
}

func TestComputePosition_UnrealizedAtCurrentPrice(t *testing.T) {
	trades := []models.Trade{
		trade("t0", "TokenA", models.DirectionBuy, "100", "1000", 1000),
		trade("t1", "TokenA", models.DirectionSell, "40", "500", 2000),
	}

	p := ComputePosition(trades, decimal.RequireFromString("15"))

	// 60 * 15 - 600
	assertDecimal(t, "300", p.UnrealizedPL)
	assertDecimal(t, "15", p.CurrentUnitPrice)
}

func TestComputePosition_SellsOnly(t *testing.T) {
	trades := []models.Trade{
		trade("a1", "Airdrop", models.DirectionSell, "10", "25", 1000),
		trade("a2", "Airdrop", models.DirectionSell, "5", "15", 2000),
	}

	p := ComputePosition(trades, decimal.RequireFromString("2"))

	assertDecimal(t, "0", p.TotalBought)
	assertDecimal(t, "0", p.SoldCostBasis)
	assertDecimal(t, "40", p.RealizedPL)
	assertDecimal(t, "40", p.TotalSellValue)
	assertDecimal(t, "-15", p.Remaining)
	assertDecimal(t, "0", p.AvgBuyPrice)
}

func TestComputePosition_CostBasisConservation(t *testing.T) {
	tests := []struct {
		name   string
		trades []models.Trade
	}{
		{
			name: "non-terminating ratio",
			trades: []models.Trade{
				trade("b1", "T", models.DirectionBuy, "3", "100", 1),
				trade("s1", "T", models.DirectionSell, "1", "40", 2),
			},
		},
		{
			name: "many buys and sells",
			trades: []models.Trade{
				trade("b1", "T", models.DirectionBuy, "12.345", "123.45", 1),
				trade("b2", "T", models.DirectionBuy, "7", "91.7", 2),
				trade("s1", "T", models.DirectionSell, "3.3", "50", 3),
				trade("b3", "T", models.DirectionBuy, "0.001", "0.02", 4),
				trade("s2", "T", models.DirectionSell, "9.9", "101", 5),
			},
		},
		{
			name: "oversold",
			trades: []models.Trade{
				trade("b1", "T", models.DirectionBuy, "1", "7", 1),
				trade("s1", "T", models.DirectionSell, "2", "20", 2),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := ComputePosition(tc.trades, decimal.RequireFromString("1.5"))
			sum := p.SoldCostBasis.Add(p.RemainingCostBasis)
			assert.True(t, sum.Sub(p.TotalBuyValue).Abs().LessThan(decimal.New(1, -12)),
				"sold %s + remaining %s != total %s", p.SoldCostBasis, p.RemainingCostBasis, p.TotalBuyValue)
		})
	}
}

func TestComputePosition_Empty(t *testing.T) {
	p := ComputePosition(nil, decimal.RequireFromString("3"))

	assertDecimal(t, "0", p.Remaining)
	assertDecimal(t, "0", p.RealizedPL)
	assertDecimal(t, "0", p.UnrealizedPL)
	assert.Zero(t, p.FirstTradeAt)
}

func TestComputePosition_NegativeAmountsUseMagnitudes(t *testing.T) {
	buy := trade("b1", "T", models.DirectionBuy, "10", "100", 1)
	sell := trade("s1", "T", models.DirectionSell, "5", "60", 2)
	sell.Quantity = sell.Quantity.Neg()
	sell.Value = sell.Value.Neg()

	p := ComputePosition([]models.Trade{buy, sell}, decimal.Zero)

	assertDecimal(t, "5", p.TotalSold)
	assertDecimal(t, "60", p.TotalSellValue)
	assertDecimal(t, "10", p.RealizedPL)
}

func TestGroupAndFilterByToken(t *testing.T) {
	trades := []models.Trade{
		trade("1", "A", models.DirectionBuy, "1", "1", 1),
		trade("2", "B", models.DirectionBuy, "1", "1", 2),
		trade("3", "A", models.DirectionSell, "1", "1", 3),
	}

	assert.Equal(t, []string{"1", "3"}, keys(FilterByToken(trades, "A")))
	groups := GroupByToken(trades)
	assert.Len(t, groups, 2)
	assert.Equal(t, []string{"2"}, keys(groups["B"]))
	assert.Empty(t, FilterByToken(trades, "C"))
}
