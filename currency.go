package cryptovault

import (
	"fmt"
	"strings"
)

// DefaultCurrency is the display currency of a fresh install.
const DefaultCurrency = "USD"

// Currencies lists the display currencies offered by the currency selector.
// Any other ISO code known to go-money is accepted too.
var Currencies = []string{"INR", "USD", "EUR"}

// Display is the active display currency: its ISO code and the symbol used to render it.
type Display struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// NewDisplay returns the display context for an ISO currency code (case-insensitive).
func NewDisplay(code string) (Display, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	c := knownCurrency(code)
	if c == nil {
		return Display{}, fmt.Errorf("unsupported display currency %q", code)
	}
	return Display{Code: code, Symbol: c.Grapheme}, nil
}

// Lower returns the currency code the way market data APIs expect it ("usd").
func (d Display) Lower() string { return strings.ToLower(d.Code) }
