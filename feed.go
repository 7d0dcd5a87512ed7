package cryptovault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrNoSnapshot is returned when market data is needed before any fetch succeeded.
var ErrNoSnapshot = errors.New("no market data yet")

// Ticket identifies one market data fetch.
type Ticket struct {
	Seq      uint64
	Currency string
}

// Feed holds the current price snapshot.
//
// Fetches are tagged with increasing sequence numbers: a result is applied only if no
// later fetch has been applied yet, and only if the display currency did not change while
// it was in flight. Readers always get a complete snapshot, never a mix of two.
type Feed struct {
	current atomic.Pointer[Snapshot]

	mu       sync.Mutex
	currency string
	issued   uint64
	applied  uint64
	subs     map[int]func(*Snapshot)
	nextSub  int

	log *zap.Logger
	now func() time.Time
}

// NewFeed returns an empty feed quoting in currency.
func NewFeed(currency string, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		currency: currency,
		subs:     make(map[int]func(*Snapshot)),
		log:      log,
		now:      time.Now,
	}
}

// Snapshot returns the last applied snapshot, nil before the first one.
func (f *Feed) Snapshot() *Snapshot { return f.current.Load() }

// Currency returns the currency new fetches are made in.
func (f *Feed) Currency() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currency
}

// SetCurrency changes the currency of the next fetches. Fetches already in flight for
// another currency will be discarded. The current snapshot is kept until a fetch in the
// new currency lands.
func (f *Feed) SetCurrency(currency string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currency = currency
}

// Begin issues the ticket of a new fetch.
func (f *Feed) Begin() Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	return Ticket{Seq: f.issued, Currency: f.currency}
}

// Apply replaces the snapshot with the result of the fetch t.
// It returns false, and keeps the current snapshot, when the result is superseded.
func (f *Feed) Apply(t Ticket, quotes []CoinQuote) (*Snapshot, bool) {
	f.mu.Lock()
	if t.Seq <= f.applied || t.Currency != f.currency {
		f.mu.Unlock()
		f.log.Debug("discarding superseded market data",
			zap.Uint64("seq", t.Seq), zap.Uint64("applied", f.applied), zap.String("currency", t.Currency))
		return f.current.Load(), false
	}
	snap := NewSnapshot(t.Currency, t.Seq, f.now(), quotes)
	f.applied = t.Seq
	f.current.Store(snap)
	subs := make([]func(*Snapshot), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	f.log.Debug("market data applied", zap.Uint64("seq", t.Seq), zap.Int("coins", snap.Len()))
	for _, fn := range subs {
		fn(snap)
	}
	return snap, true
}

// Refresh fetches the markets from src and applies them.
// A superseded result is not an error.
func (f *Feed) Refresh(ctx context.Context, src MarketSource) error {
	t := f.Begin()
	quotes, err := src.Markets(ctx, t.Currency)
	if err != nil {
		return fmt.Errorf("cannot fetch markets in %s: %w", t.Currency, err)
	}
	f.Apply(t, quotes)
	return nil
}

// Subscribe registers fn to be called with every applied snapshot.
// The returned function unregisters it.
func (f *Feed) Subscribe(fn func(*Snapshot)) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Start refreshes the feed now and then every interval, until ctx is done or cancel is called.
func (f *Feed) Start(ctx context.Context, src MarketSource, interval time.Duration) (cancel func()) {
	ctx, cancel = context.WithCancel(ctx)

	refresh := func() {
		if err := f.Refresh(ctx, src); err != nil && ctx.Err() == nil {
			f.log.Warn("market refresh failed", zap.Error(err))
		}
	}

	go func() {
		refresh()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				refresh()
			case <-ctx.Done():
				return
			}
		}
	}()

	return cancel
}
