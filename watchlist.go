package cryptovault

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WatchlistKey is the store key of the watchlist collection.
const WatchlistKey = "cryptovault-watchlist"

// WatchlistEntry is a coin the user monitors, with the display metadata captured when it was added.
type WatchlistEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image"`
}

// EntryFor returns the watchlist entry of a quoted coin.
func EntryFor(q CoinQuote) WatchlistEntry {
	return WatchlistEntry{ID: q.ID, Name: q.Name, Symbol: q.Symbol, Image: q.Image}
}

// Watchlist is the ordered set of coins the user monitors.
//
// Ids are unique. Every mutation re-saves the whole collection, after the in-memory
// change: a failed save is logged and the in-memory state stays authoritative.
type Watchlist struct {
	mu      sync.Mutex
	entries []WatchlistEntry
	coll    *Collection[WatchlistEntry]
	log     *zap.Logger
}

// LoadWatchlist reads the watchlist from s. An absent or malformed collection gives an empty watchlist.
func LoadWatchlist(ctx context.Context, s Store, log *zap.Logger) *Watchlist {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watchlist{
		coll: NewCollection[WatchlistEntry](s, WatchlistKey, log),
		log:  log,
	}
	entries, _ := w.coll.Load(ctx)
	// stored data may predate deduplication.
	for _, e := range entries {
		if e.ID != "" && w.index(e.ID) < 0 {
			w.entries = append(w.entries, e)
		}
	}
	return w
}

func (w *Watchlist) index(id string) int {
	for i, e := range w.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Add appends e to the watchlist and persists it.
// It returns false, and changes nothing, when e.ID is empty or already watched.
func (w *Watchlist) Add(ctx context.Context, e WatchlistEntry) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e.ID == "" || w.index(e.ID) >= 0 {
		return false
	}
	w.entries = append(w.entries, e)
	w.save(ctx)
	return true
}

// Remove removes every entry with the given id and persists the result.
// Removing an id that is not watched is a successful no-op.
func (w *Watchlist) Remove(ctx context.Context, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := make([]WatchlistEntry, 0, len(w.entries))
	for _, e := range w.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(w.entries)
	w.entries = kept
	w.save(ctx)
	return removed
}

// Toggle removes the coin when it is watched and adds it otherwise.
// It returns whether the coin is watched afterwards.
func (w *Watchlist) Toggle(ctx context.Context, e WatchlistEntry) bool {
	if w.Contains(e.ID) {
		w.Remove(ctx, e.ID)
		return false
	}
	return w.Add(ctx, e)
}

// Contains reports whether the coin id is watched.
func (w *Watchlist) Contains(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index(id) >= 0
}

// Entries returns a copy of the watchlist in insertion order.
func (w *Watchlist) Entries() []WatchlistEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]WatchlistEntry{}, w.entries...)
}

func (w *Watchlist) save(ctx context.Context) {
	if err := w.coll.Save(ctx, w.entries); err != nil {
		w.log.Warn("watchlist not persisted", zap.Error(err))
	}
}
