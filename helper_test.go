package cryptovault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"
)

var testTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// NO is a helper for test to create money from const with no currency set
func NO(v float64) Money { return M(v, "") }

// mapStore is an in-memory Store that counts writes and can be made to fail.
type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
	fail bool
}

func newMapStore() *mapStore { return &mapStore{data: make(map[string][]byte)} }

func (s *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, fs.ErrNotExist)
	}
	return v, nil
}

func (s *mapStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("quota exceeded")
	}
	s.puts++
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *mapStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// fakeSource is a MarketSource serving fixed quotes per currency.
type fakeSource struct {
	quotes map[string][]CoinQuote
	err    error
}

func (f *fakeSource) Markets(_ context.Context, currency string) ([]CoinQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes[currency], nil
}

func quote(id string, price float64) CoinQuote {
	return CoinQuote{ID: id, Symbol: id, Name: id, Image: id + ".png", CurrentPrice: NO(price)}
}

func snapshot(currency string, quotes ...CoinQuote) *Snapshot {
	return NewSnapshot(currency, 1, testTime, quotes)
}
