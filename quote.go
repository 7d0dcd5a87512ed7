package cryptovault

import (
	"context"
	"time"
)

// CoinQuote is the market data of a single coin, in the snapshot's currency.
type CoinQuote struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Image          string  `json:"image"`
	CurrentPrice   Money   `json:"current_price"`
	PriceChange24h Percent `json:"price_change_percentage_24h"`
	MarketCap      Money   `json:"market_cap"`
	MarketCapRank  int     `json:"market_cap_rank,omitempty"`
}

// CoinDetail is the detailed market data of a single coin.
type CoinDetail struct {
	CoinQuote
	Description       string   `json:"description"`
	TotalVolume       Money    `json:"total_volume"`
	CirculatingSupply Quantity `json:"circulating_supply"`
}

// MarketSource provides the market data for the full tracked universe of coins.
type MarketSource interface {
	Markets(ctx context.Context, currency string) ([]CoinQuote, error)
}

// Snapshot is an immutable view of the price feed at one point in time.
//
// A snapshot is never patched: a refresh builds a new one that replaces it.
type Snapshot struct {
	currency  string
	seq       uint64
	fetchedAt time.Time
	quotes    []CoinQuote
	index     map[string]int
}

// NewSnapshot builds a snapshot from quotes in their received order.
// Quotes without an id are ignored, and only the first quote of a given id is kept.
func NewSnapshot(currency string, seq uint64, fetchedAt time.Time, quotes []CoinQuote) *Snapshot {
	s := &Snapshot{
		currency:  currency,
		seq:       seq,
		fetchedAt: fetchedAt,
		quotes:    make([]CoinQuote, 0, len(quotes)),
		index:     make(map[string]int, len(quotes)),
	}
	for _, q := range quotes {
		if q.ID == "" {
			continue
		}
		if _, exists := s.index[q.ID]; exists {
			continue
		}
		q.CurrentPrice = q.CurrentPrice.In(currency)
		q.MarketCap = q.MarketCap.In(currency)
		s.index[q.ID] = len(s.quotes)
		s.quotes = append(s.quotes, q)
	}
	return s
}

// A nil snapshot is a valid empty snapshot.

func (s *Snapshot) Currency() string {
	if s == nil {
		return ""
	}
	return s.currency
}

func (s *Snapshot) Seq() uint64 {
	if s == nil {
		return 0
	}
	return s.seq
}

func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.quotes)
}

// Lookup returns the quote of a coin, ok is false when the coin is unknown.
func (s *Snapshot) Lookup(id string) (CoinQuote, bool) {
	if s == nil {
		return CoinQuote{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return CoinQuote{}, false
	}
	return s.quotes[i], true
}

// Quotes returns a copy of all quotes in feed order.
func (s *Snapshot) Quotes() []CoinQuote {
	if s == nil {
		return nil
	}
	return append([]CoinQuote(nil), s.quotes...)
}
