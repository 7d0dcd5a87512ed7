package cryptovault

import "time"

// Stats are the aggregate metrics of a portfolio.
type Stats struct {
	TotalValue       Money   `json:"totalValue"`
	TotalInvested    Money   `json:"totalInvested"`
	TotalGainLoss    Money   `json:"totalGainLoss"`
	TotalGainLossPct Percent `json:"totalGainLossPercentage"`
}

// ComputeStats values holdings against a snapshot.
//
// Only holdings whose coin is quoted in the snapshot count: an unknown coin contributes
// neither value nor invested amount. The percentage is 0 when nothing is invested.
func ComputeStats(holdings []Holding, snap *Snapshot) Stats {
	currency := snap.Currency()
	value, invested := M(0, currency), M(0, currency)
	for _, h := range holdings {
		q, ok := snap.Lookup(h.CoinID)
		if !ok {
			continue
		}
		value = value.Add(q.CurrentPrice.Mul(h.Amount))
		invested = invested.Add(h.Invested().In(currency))
	}
	s := Stats{
		TotalValue:    value,
		TotalInvested: invested,
		TotalGainLoss: value.Sub(invested),
	}
	if invested.IsPositive() {
		s.TotalGainLossPct = s.TotalGainLoss.Ratio(invested)
	}
	return s
}

// HoldingValue is the valuation of a single holding.
type HoldingValue struct {
	Holding
	Price       Money    `json:"price"`
	MarketValue Money    `json:"marketValue"`
	Invested    Money    `json:"investedValue"`
	GainLoss    Money    `json:"gainLoss"`
	GainLossPct *Percent `json:"gainLossPercentage"` // nil when nothing is invested
	Live        bool     `json:"live"`              // false when Price is the fallback captured at add time
}

// ValueHolding values one holding. Unlike ComputeStats, a coin missing from the snapshot
// is still valued, at the price captured when the holding was added.
func ValueHolding(h Holding, snap *Snapshot) HoldingValue {
	currency := snap.Currency()
	v := HoldingValue{Holding: h, Price: h.CurrentPrice.In(currency)}
	if q, ok := snap.Lookup(h.CoinID); ok {
		v.Price, v.Live = q.CurrentPrice, true
	}
	v.MarketValue = v.Price.Mul(h.Amount)
	v.Invested = h.Invested().In(currency)
	v.GainLoss = v.MarketValue.Sub(v.Invested)
	if !v.Invested.IsZero() {
		pct := v.GainLoss.Ratio(v.Invested)
		v.GainLossPct = &pct
	}
	return v
}

// Valuation is a consistent view of a portfolio against one snapshot.
type Valuation struct {
	Currency string `json:"currency"`
	Seq      uint64 `json:"seq"`
	// FetchedAt is when the market data was fetched, zero without any.
	FetchedAt time.Time      `json:"fetchedAt"`
	Rows      []HoldingValue `json:"rows"`
	Stats     Stats          `json:"stats"`
	// Stale is true when the snapshot is not quoted in the display currency yet.
	Stale bool `json:"stale"`
}

// Value computes the per-holding rows and the aggregate stats from the same snapshot.
func Value(holdings []Holding, snap *Snapshot, display Display) Valuation {
	v := Valuation{
		Currency: display.Code,
		Seq:       snap.Seq(),
		FetchedAt: snap.FetchedAt(),
		Rows:     make([]HoldingValue, 0, len(holdings)),
		Stats:    ComputeStats(holdings, snap),
		Stale:    snap.Currency() != display.Code,
	}
	for _, h := range holdings {
		v.Rows = append(v.Rows, ValueHolding(h, snap))
	}
	return v
}
