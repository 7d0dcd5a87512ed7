package cryptovault

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a display currency.
//
// The currency is not persisted: stored prices are denominated in whatever currency
// was active when they were entered. An empty currency is "weak" and adopts the
// currency of the other operand.
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// ParseMoney parses a user-typed amount of money in the given currency.
func ParseMoney(text, currency string) (Money, error) {
	d, err := parseDecimal(text)
	if err != nil {
		return Money{}, err
	}
	return Money{value: d, cur: currency}, nil
}

func (m Money) Currency() string         { return m.cur }
func (m Money) Decimal() decimal.Decimal { return m.value }
func (m Money) Equal(n Money) bool       { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) IsPositive() bool         { return m.value.IsPositive() }
func (m Money) IsNegative() bool         { return m.value.IsNegative() }
func (m Money) Mul(q Quantity) Money     { return Money{value: m.value.Mul(q.value), cur: m.cur} }

// In returns the same value tagged with another currency.
func (m Money) In(currency string) Money { return Money{value: m.value, cur: currency} }

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// Ratio returns m/n as a percentage.
func (m Money) Ratio(n Money) Percent {
	return Percent{value: m.value.Div(n.value).Mul(hundred)}
}

// makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + "!=" + b.cur)
	}
	return a.cur
}

// String returns the money formatted for display: currency symbol, thousands
// separators and the currency's fraction digits, e.g. "$1,234.56".
// Without a known currency it falls back to a plain 2 decimals number.
func (m Money) String() string {
	c := knownCurrency(m.cur)
	if c == nil {
		return groupThousands(m.value.StringFixed(2))
	}
	minor := m.value.Shift(int32(c.Fraction)).Round(0)
	if minor.Abs().GreaterThan(maxMinor) {
		return formatDecimal(c, m.value)
	}
	return c.Formatter().Format(minor.IntPart())
}

// maxMinor is the largest amount of minor units go-money can format.
var maxMinor = decimal.NewFromInt(math.MaxInt64)

// formatDecimal formats d the way go-money formats c amounts, without the int64 limit.
func formatDecimal(c *money.Currency, d decimal.Decimal) string {
	s := groupDigits(d.Abs().StringFixed(int32(c.Fraction)), c.Thousand, c.Decimal)
	s = strings.Replace(c.Template, "1", s, 1)
	s = strings.Replace(s, "$", c.Grapheme, 1)
	if d.IsNegative() {
		s = "-" + s
	}
	return s
}

// SignedString is like String but positive values and zero are prefixed with a "+".
func (m Money) SignedString() string {
	if m.value.IsNegative() {
		return m.String()
	}
	return "+" + m.String()
}

// Millions returns the value as a whole number of millions, e.g. "$1,234M".
// The remainder is truncated.
func (m Money) Millions() string {
	millions := m.value.Div(decimal.New(1, 6)).Truncate(0)
	s := groupThousands(millions.String()) + "M"
	if c := knownCurrency(m.cur); c != nil {
		s = c.Grapheme + s
	}
	return s
}

// MarshalJSON writes the money as a bare JSON number with all its digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.String()), nil
}

func (m *Money) UnmarshalJSON(decimalBytes []byte) error {
	return m.value.UnmarshalJSON(decimalBytes)
}

// knownCurrency returns the go-money definition of code, or nil when go-money
// cannot format it.
func knownCurrency(code string) *money.Currency {
	if code == "" {
		return nil
	}
	c := money.GetCurrency(code)
	if c == nil || c.Template == "" {
		return nil
	}
	return c
}

// groupThousands inserts a "," every 3 digits in the integer part of a decimal string.
func groupThousands(s string) string { return groupDigits(s, ",", ".") }

// groupDigits inserts thousand every 3 digits in the integer part of a decimal string
// and uses point as the decimal mark.
func groupDigits(s, thousand, point string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], point+s[i+1:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousand)
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}
