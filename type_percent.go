package cryptovault

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percent is a percentage, 25 means 25%.
type Percent struct {
	value decimal.Decimal
}

func P[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Percent {
	return Percent{value: newDecimal(value)}
}

func (p Percent) Decimal() decimal.Decimal { return p.value }
func (p Percent) Equal(q Percent) bool     { return p.value.Equal(q.value) }
func (p Percent) IsNegative() bool         { return p.value.IsNegative() }
func (p Percent) IsZero() bool             { return p.value.IsZero() }

func (p Percent) String() string {
	return p.value.StringFixed(2) + "%"
}

// SignedString is like String but positive values and zero are prefixed with a "+".
func (p Percent) SignedString() string {
	if p.value.IsNegative() {
		return p.String()
	}
	return "+" + p.String()
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.value.String()), nil
}

func (p *Percent) UnmarshalJSON(decimalBytes []byte) error {
	return p.value.UnmarshalJSON(decimalBytes)
}
