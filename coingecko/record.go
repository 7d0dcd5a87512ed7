package coingecko

import (
	"github.com/etnz/cryptovault"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// marketRecord is one element of the /coins/markets response.
type marketRecord struct {
	ID                       string           `json:"id" validate:"required"`
	Symbol                   string           `json:"symbol" validate:"required"`
	Name                     string           `json:"name" validate:"required"`
	Image                    string           `json:"image" validate:"omitempty,url"`
	CurrentPrice             *decimal.Decimal `json:"current_price" validate:"required"`
	MarketCap                *decimal.Decimal `json:"market_cap"`
	MarketCapRank            *int             `json:"market_cap_rank"`
	PriceChangePercentage24h *decimal.Decimal `json:"price_change_percentage_24h"`
}

// shape turns valid records into quotes. Invalid records are logged and dropped.
func (c *Client) shape(records []marketRecord, currency string) []cryptovault.CoinQuote {
	quotes := make([]cryptovault.CoinQuote, 0, len(records))
	for i, r := range records {
		if err := c.validate.Struct(r); err != nil {
			c.log.Warn("dropping invalid market record", zap.Int("index", i), zap.String("id", r.ID), zap.Error(err))
			continue
		}
		q := cryptovault.CoinQuote{
			ID:           r.ID,
			Symbol:       r.Symbol,
			Name:         r.Name,
			Image:        r.Image,
			CurrentPrice: cryptovault.M(*r.CurrentPrice, currency),
			MarketCap:    cryptovault.M(0, currency),
		}
		if r.MarketCap != nil {
			q.MarketCap = cryptovault.M(*r.MarketCap, currency)
		}
		if r.MarketCapRank != nil {
			q.MarketCapRank = *r.MarketCapRank
		}
		if r.PriceChangePercentage24h != nil {
			q.PriceChange24h = cryptovault.P(*r.PriceChangePercentage24h)
		}
		quotes = append(quotes, q)
	}
	return quotes
}
