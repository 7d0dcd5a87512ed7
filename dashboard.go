package cryptovault

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Options configure a Dashboard.
type Options struct {
	Store    Store       // durable medium of the watchlist and portfolio, required
	Currency string      // display currency, DefaultCurrency when empty
	Logger   *zap.Logger // nil disables logging
}

// Dashboard ties the display currency, the price feed, the watchlist and the portfolio
// together. It is built once and handed to the presentation layers.
type Dashboard struct {
	mu      sync.Mutex
	display Display
	subs    map[int]func(Valuation)
	nextSub int

	feed      *Feed
	watchlist *Watchlist
	portfolio *Portfolio
	log       *zap.Logger
}

// New loads the persisted collections and returns a dashboard without market data yet.
func New(ctx context.Context, opts Options) (*Dashboard, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("dashboard needs a store")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	code := opts.Currency
	if code == "" {
		code = DefaultCurrency
	}
	display, err := NewDisplay(code)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		display:   display,
		subs:      make(map[int]func(Valuation)),
		feed:      NewFeed(display.Code, log.Named("feed")),
		watchlist: LoadWatchlist(ctx, opts.Store, log.Named("watchlist")),
		portfolio: LoadPortfolio(ctx, opts.Store, log.Named("portfolio")),
		log:       log,
	}
	d.feed.Subscribe(func(*Snapshot) { d.notify() })
	return d, nil
}

// Feed returns the price feed of the dashboard.
func (d *Dashboard) Feed() *Feed { return d.feed }

// Display returns the active display currency.
func (d *Dashboard) Display() Display {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.display
}

// SetCurrency switches the display currency. Market data must be refreshed afterwards:
// until then the valuation is flagged stale.
func (d *Dashboard) SetCurrency(code string) (Display, error) {
	display, err := NewDisplay(code)
	if err != nil {
		return Display{}, err
	}
	d.mu.Lock()
	d.display = display
	d.mu.Unlock()
	d.feed.SetCurrency(display.Code)
	d.log.Info("display currency changed", zap.String("currency", display.Code))
	return display, nil
}

// Refresh fetches the markets in the display currency.
func (d *Dashboard) Refresh(ctx context.Context, src MarketSource) error {
	return d.feed.Refresh(ctx, src)
}

// Quote returns the current quote of a coin.
func (d *Dashboard) Quote(id string) (CoinQuote, error) {
	snap := d.feed.Snapshot()
	if snap == nil {
		return CoinQuote{}, ErrNoSnapshot
	}
	q, ok := snap.Lookup(id)
	if !ok {
		return CoinQuote{}, fmt.Errorf("%w %q", ErrUnknownCoin, id)
	}
	return q, nil
}

// Watchlist returns the watched coins.
func (d *Dashboard) Watchlist() []WatchlistEntry { return d.watchlist.Entries() }

// IsWatched reports whether a coin is in the watchlist.
func (d *Dashboard) IsWatched(id string) bool { return d.watchlist.Contains(id) }

// AddToWatchlist adds an entry, it returns false if the coin was already watched.
func (d *Dashboard) AddToWatchlist(ctx context.Context, e WatchlistEntry) bool {
	return d.watchlist.Add(ctx, e)
}

// Watch adds a coin of the current snapshot to the watchlist. added is false if the
// coin was already watched.
func (d *Dashboard) Watch(ctx context.Context, id string) (e WatchlistEntry, added bool, err error) {
	q, err := d.Quote(id)
	if err != nil {
		return WatchlistEntry{}, false, err
	}
	e = EntryFor(q)
	return e, d.AddToWatchlist(ctx, e), nil
}

// ToggleWatch watches a coin of the current snapshot, or unwatches it if it is watched.
// It returns whether the coin is watched afterwards.
func (d *Dashboard) ToggleWatch(ctx context.Context, id string) (bool, error) {
	if d.watchlist.Contains(id) {
		d.watchlist.Remove(ctx, id)
		return false, nil
	}
	if _, _, err := d.Watch(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveFromWatchlist removes a coin from the watchlist. It returns false if it was not watched.
func (d *Dashboard) RemoveFromWatchlist(ctx context.Context, id string) bool {
	return d.watchlist.Remove(ctx, id)
}

// Holdings returns the recorded holdings.
func (d *Dashboard) Holdings() []Holding { return d.portfolio.Holdings() }

// AddHolding records a purchase of a coin of the current snapshot.
// Invalid input is rejected before the coin is resolved.
func (d *Dashboard) AddHolding(ctx context.Context, coinID, amount, price string) (Holding, error) {
	if _, _, err := ValidateHolding(coinID, amount, price); err != nil {
		return Holding{}, err
	}
	q, err := d.Quote(coinID)
	if err != nil {
		return Holding{}, err
	}
	h, err := d.portfolio.AddHolding(ctx, coinID, amount, price, q)
	if err != nil {
		return Holding{}, err
	}
	d.notify()
	return h, nil
}

// RemoveHolding removes a holding. It returns false if there was none with that id.
func (d *Dashboard) RemoveHolding(ctx context.Context, id int64) bool {
	removed := d.portfolio.RemoveHolding(ctx, id)
	if removed {
		d.notify()
	}
	return removed
}

// Stats returns the aggregate metrics of the holdings against the current snapshot.
func (d *Dashboard) Stats() Stats {
	return ComputeStats(d.portfolio.Holdings(), d.feed.Snapshot())
}

// Valuation returns the rows and stats of the holdings against the current snapshot.
func (d *Dashboard) Valuation() Valuation {
	return Value(d.portfolio.Holdings(), d.feed.Snapshot(), d.Display())
}

// OnChange registers fn to be called with a fresh valuation whenever the snapshot or the
// holdings change. The returned function unregisters it.
func (d *Dashboard) OnChange(fn func(Valuation)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

func (d *Dashboard) notify() {
	d.mu.Lock()
	if len(d.subs) == 0 {
		d.mu.Unlock()
		return
	}
	subs := make([]func(Valuation), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	v := d.Valuation()
	for _, fn := range subs {
		fn(v)
	}
}
