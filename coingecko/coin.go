package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/cryptovault"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// plainText removes every tag from coin descriptions.
var plainText = bluemonday.StrictPolicy()

// Coin returns the detailed market data of one coin, quoted in currency.
func (c *Client) Coin(ctx context.Context, id, currency string) (cryptovault.CoinDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return cryptovault.CoinDetail{}, fmt.Errorf("empty coin id")
	}
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")

	var doc any
	if err := c.jget(ctx, "/coins/"+url.PathEscape(id), q, &doc); err != nil {
		if errors.Is(err, errNotFound) {
			return cryptovault.CoinDetail{}, fmt.Errorf("%w %q", cryptovault.ErrUnknownCoin, id)
		}
		return cryptovault.CoinDetail{}, err
	}
	return coinDetail(doc, currency)
}

// coinDetail extracts the detail of a coin from a decoded /coins/{id} document.
func coinDetail(doc any, currency string) (cryptovault.CoinDetail, error) {
	cur := strings.ToLower(currency)
	currency = strings.ToUpper(currency)

	var d cryptovault.CoinDetail
	d.ID = text(doc, "$.id")
	d.Symbol = text(doc, "$.symbol")
	d.Name = text(doc, "$.name")
	d.Image = text(doc, "$.image.large")
	d.Description = firstSentence(text(doc, "$.description.en"))
	if d.ID == "" || d.Name == "" {
		return cryptovault.CoinDetail{}, fmt.Errorf("coin record has no id or name")
	}

	price, ok := number(doc, "$.market_data.current_price."+cur)
	if !ok {
		return cryptovault.CoinDetail{}, fmt.Errorf("coin %q has no price in %s", d.ID, currency)
	}
	d.CurrentPrice = cryptovault.M(price, currency)

	marketCap, _ := number(doc, "$.market_data.market_cap."+cur)
	d.MarketCap = cryptovault.M(marketCap, currency)
	volume, _ := number(doc, "$.market_data.total_volume."+cur)
	d.TotalVolume = cryptovault.M(volume, currency)
	supply, _ := number(doc, "$.market_data.circulating_supply")
	d.CirculatingSupply = cryptovault.Q(supply)
	change, _ := number(doc, "$.market_data.price_change_percentage_24h")
	d.PriceChange24h = cryptovault.P(change)
	if rank, ok := number(doc, "$.market_cap_rank"); ok {
		d.MarketCapRank = int(rank.IntPart())
	}
	return d, nil
}

// lookup evaluates path against doc.
func lookup(doc any, path string) (any, bool) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, false
	}
	// because jsonpath is never clear about whether it returns a list of 1 answer, or a single answer:
	// by this call I keep the first one if any
	if l, ok := v.([]any); ok {
		if len(l) == 0 {
			return nil, false
		}
		v = l[0]
	}
	return v, v != nil
}

func text(doc any, path string) string {
	v, _ := lookup(doc, path)
	s, _ := v.(string)
	return s
}

func number(doc any, path string) (decimal.Decimal, bool) {
	v, ok := lookup(doc, path)
	if !ok {
		return decimal.Zero, false
	}
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	default:
		return decimal.Zero, false
	}
}

// firstSentence returns the plain text of an HTML description up to its first ". ".
func firstSentence(text string) string {
	text = html.UnescapeString(plainText.Sanitize(text))
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1]
	}
	return strings.TrimSpace(text)
}
