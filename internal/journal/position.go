package journal

import (
	"github.com/shopspring/decimal"

	"trade-journal-go/internal/models"
)

// Position is the aggregate state of one wallet/token pair, derived from its trades and
// a current price. It is never stored.
type Position struct {
	WalletAddress string `json:"wallet_address"`
	TokenAddress  string `json:"token_address"`

	TotalBought    decimal.Decimal `json:"total_bought"`
	TotalSold      decimal.Decimal `json:"total_sold"`
	Remaining      decimal.Decimal `json:"remaining"`
	TotalBuyValue  decimal.Decimal `json:"total_buy_value"`
	TotalSellValue decimal.Decimal `json:"total_sell_value"`

	SoldCostBasis      decimal.Decimal `json:"sold_cost_basis"`
	RemainingCostBasis decimal.Decimal `json:"remaining_cost_basis"`
	RealizedPL         decimal.Decimal `json:"realized_pl"`
	UnrealizedPL       decimal.Decimal `json:"unrealized_pl"`

	CurrentUnitPrice decimal.Decimal `json:"current_unit_price"`
	AvgBuyPrice      decimal.Decimal `json:"avg_buy_price"`
	AvgSellPrice     decimal.Decimal `json:"avg_sell_price"`

	BuyCount     int   `json:"buy_count"`
	SellCount    int   `json:"sell_count"`
	FirstTradeAt int64 `json:"first_trade_at,omitempty"`
	LastTradeAt  int64 `json:"last_trade_at,omitempty"`
}

// ComputePosition aggregates deduplicated trades of a single wallet/token pair.
// A position with sells but no buys (airdrops) has a zero sold cost basis.
// No rounding is applied.
func ComputePosition(trades []models.Trade, currentUnitPrice decimal.Decimal) Position {
	p := Position{
		TotalBought:      decimal.Zero,
		TotalSold:        decimal.Zero,
		TotalBuyValue:    decimal.Zero,
		TotalSellValue:   decimal.Zero,
		CurrentUnitPrice: currentUnitPrice,
	}
	if len(trades) > 0 {
		p.WalletAddress = trades[0].WalletAddress
		p.TokenAddress = trades[0].TokenAddress
	}

	// 1. Partition by direction and sum magnitudes
	for _, t := range trades {
		switch t.Direction {
		case models.DirectionBuy:
			p.TotalBought = p.TotalBought.Add(t.Quantity.Abs())
			p.TotalBuyValue = p.TotalBuyValue.Add(t.Value.Abs())
			p.BuyCount++
		case models.DirectionSell:
			p.TotalSold = p.TotalSold.Add(t.Quantity.Abs())
			p.TotalSellValue = p.TotalSellValue.Add(t.Value.Abs())
			p.SellCount++
		default:
			continue
		}
		if p.FirstTradeAt == 0 || t.Timestamp < p.FirstTradeAt {
			p.FirstTradeAt = t.Timestamp
		}
		if t.Timestamp > p.LastTradeAt {
			p.LastTradeAt = t.Timestamp
		}
	}

	// 2. Cost basis split between sold and held quantity
	p.Remaining = p.TotalBought.Sub(p.TotalSold)
	p.SoldCostBasis = decimal.Zero
	if p.TotalBought.IsPositive() {
		p.SoldCostBasis = p.TotalBuyValue.Mul(p.TotalSold).Div(p.TotalBought)
	}
	p.RemainingCostBasis = p.TotalBuyValue.Sub(p.SoldCostBasis)

	// 3. P&L
	p.RealizedPL = p.TotalSellValue.Sub(p.SoldCostBasis)
	p.UnrealizedPL = p.Remaining.Mul(currentUnitPrice).Sub(p.RemainingCostBasis)

	p.AvgBuyPrice = averagePrice(p.TotalBuyValue, p.TotalBought)
	p.AvgSellPrice = averagePrice(p.TotalSellValue, p.TotalSold)
	return p
}

func averagePrice(value, qty decimal.Decimal) decimal.Decimal {
	if !qty.IsPositive() {
		return decimal.Zero
	}
	return value.Div(qty)
}

// FilterByToken returns the trades of one token, keeping their order.
func FilterByToken(trades []models.Trade, tokenAddress string) []models.Trade {
	var out []models.Trade
	for _, t := range trades {
		if t.TokenAddress == tokenAddress {
			out = append(out, t)
		}
	}
	return out
}

// GroupByToken splits a wallet's trades per token, keeping the order within each group.
func GroupByToken(trades []models.Trade) map[string][]models.Trade {
	groups := make(map[string][]models.Trade)
	for _, t := range trades {
		groups[t.TokenAddress] = append(groups[t.TokenAddress], t)
	}
	return groups
}
