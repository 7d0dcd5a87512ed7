package cryptovault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PortfolioKey is the store key of the portfolio collection.
const PortfolioKey = "cryptovault-portfolio"

var (
	// ErrInvalidHolding is wrapped by every holding validation error.
	ErrInvalidHolding = errors.New("invalid holding")
	// ErrUnknownCoin is returned when a coin id cannot be resolved in the current snapshot.
	ErrUnknownCoin = errors.New("unknown coin")
)

// ValidationError describes a rejected holding field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid holding %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidHolding }

// Holding is a recorded purchase of an amount of one coin.
//
// Prices are stored without currency: they are denominated in the display currency
// active when the holding was added. CurrentPrice is the price observed at that time,
// used only when the coin is missing from later snapshots.
type Holding struct {
	ID            int64    `json:"id"`
	CoinID        string   `json:"coinId"`
	Name          string   `json:"name"`
	Symbol        string   `json:"symbol"`
	Image         string   `json:"image"`
	Amount        Quantity `json:"amount"`
	PurchasePrice Money    `json:"purchasePrice"`
	CurrentPrice  Money    `json:"currentPrice"`
}

// Invested returns the cost basis of the holding.
func (h Holding) Invested() Money { return h.PurchasePrice.Mul(h.Amount) }

// Portfolio is the ordered list of holdings.
//
// Holdings are never edited: they are added and removed. Every mutation re-saves the
// whole collection after the in-memory change, and a failed save is only logged.
type Portfolio struct {
	mu       sync.Mutex
	holdings []Holding
	lastID   int64
	coll     *Collection[Holding]
	log      *zap.Logger
	now      func() time.Time
}

// LoadPortfolio reads the portfolio from s. An absent or malformed collection gives an empty portfolio.
func LoadPortfolio(ctx context.Context, s Store, log *zap.Logger) *Portfolio {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Portfolio{
		coll: NewCollection[Holding](s, PortfolioKey, log),
		log:  log,
		now:  time.Now,
	}
	p.holdings, _ = p.coll.Load(ctx)
	for _, h := range p.holdings {
		p.lastID = max(p.lastID, h.ID)
	}
	return p
}

// ValidateHolding parses user input for a new holding.
// coinID must not be empty, amount must be a positive number and price a non-negative number.
func ValidateHolding(coinID, amount, price string) (Quantity, Money, error) {
	if strings.TrimSpace(coinID) == "" {
		return Quantity{}, Money{}, &ValidationError{Field: "coin", Value: coinID, Reason: "no coin selected"}
	}
	q, err := ParseQuantity(amount)
	if err != nil {
		return Quantity{}, Money{}, &ValidationError{Field: "amount", Value: amount, Reason: "not a number"}
	}
	if !q.IsPositive() {
		return Quantity{}, Money{}, &ValidationError{Field: "amount", Value: amount, Reason: "must be positive"}
	}
	m, err := ParseMoney(price, "")
	if err != nil {
		return Quantity{}, Money{}, &ValidationError{Field: "price", Value: price, Reason: "not a number"}
	}
	if m.IsNegative() {
		return Quantity{}, Money{}, &ValidationError{Field: "price", Value: price, Reason: "must not be negative"}
	}
	return q, m, nil
}

// AddHolding records a purchase of amount coins at price per unit, and persists the portfolio.
// meta provides the display metadata and the current price kept as fallback.
//
// Invalid input is rejected with a *ValidationError and nothing is changed nor written.
func (p *Portfolio) AddHolding(ctx context.Context, coinID, amount, price string, meta CoinQuote) (Holding, error) {
	q, m, err := ValidateHolding(coinID, amount, price)
	if err != nil {
		return Holding{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	h := Holding{
		ID:            p.nextID(),
		CoinID:        strings.TrimSpace(coinID),
		Name:          meta.Name,
		Symbol:        meta.Symbol,
		Image:         meta.Image,
		Amount:        q,
		PurchasePrice: m,
		CurrentPrice:  meta.CurrentPrice.In(""),
	}
	p.holdings = append(p.holdings, h)
	p.save(ctx)
	return h, nil
}

// nextID returns the creation time in milliseconds, strictly greater than any previous id.
func (p *Portfolio) nextID() int64 {
	id := p.now().UnixMilli()
	if id <= p.lastID {
		id = p.lastID + 1
	}
	p.lastID = id
	return id
}

// RemoveHolding removes the holding with the given id and persists the portfolio.
// Removing an unknown id is a successful no-op.
func (p *Portfolio) RemoveHolding(ctx context.Context, id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := make([]Holding, 0, len(p.holdings))
	for _, h := range p.holdings {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	removed := len(kept) != len(p.holdings)
	p.holdings = kept
	p.save(ctx)
	return removed
}

// Holdings returns a copy of the holdings in insertion order.
func (p *Portfolio) Holdings() []Holding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Holding{}, p.holdings...)
}

func (p *Portfolio) save(ctx context.Context) {
	if err := p.coll.Save(ctx, p.holdings); err != nil {
		p.log.Warn("portfolio not persisted", zap.Error(err))
	}
}
