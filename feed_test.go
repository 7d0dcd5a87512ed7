package cryptovault

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFeed_ApplyInOrder(t *testing.T) {
	f := NewFeed("USD", nil)
	if f.Snapshot() != nil {
		t.Fatalf("Snapshot() = %v, want nil before the first fetch", f.Snapshot())
	}

	t1 := f.Begin()
	snap, ok := f.Apply(t1, []CoinQuote{quote("btc", 50000)})
	if !ok {
		t.Fatalf("Apply(t1) = false, want true")
	}
	if snap.Seq() != t1.Seq || snap.Currency() != "USD" {
		t.Errorf("snapshot = seq %d %s, want seq %d USD", snap.Seq(), snap.Currency(), t1.Seq)
	}
	if q, ok := f.Snapshot().Lookup("btc"); !ok || !q.CurrentPrice.Equal(USD(50000)) {
		t.Errorf("Lookup(btc) = %v, %v, want %v", q.CurrentPrice, ok, USD(50000))
	}
}

func TestFeed_OutOfOrderResponseIsDiscarded(t *testing.T) {
	f := NewFeed("USD", nil)
	older := f.Begin()
	newer := f.Begin()

	if _, ok := f.Apply(newer, []CoinQuote{quote("btc", 60000)}); !ok {
		t.Fatalf("Apply(newer) = false, want true")
	}
	if _, ok := f.Apply(older, []CoinQuote{quote("btc", 50000)}); ok {
		t.Errorf("Apply(older) = true, want false")
	}
	if q, _ := f.Snapshot().Lookup("btc"); !q.CurrentPrice.Equal(USD(60000)) {
		t.Errorf("btc price = %v, want the newer %v", q.CurrentPrice, USD(60000))
	}
	// replaying an applied ticket is a no-op too.
	if _, ok := f.Apply(newer, nil); ok {
		t.Errorf("Apply(newer) twice = true, want false")
	}
}

func TestFeed_FullReplacement(t *testing.T) {
	f := NewFeed("USD", nil)
	f.Apply(f.Begin(), []CoinQuote{quote("btc", 50000), quote("eth", 2000)})
	f.Apply(f.Begin(), []CoinQuote{quote("btc", 51000)})

	if _, ok := f.Snapshot().Lookup("eth"); ok {
		t.Errorf("Lookup(eth) = true, a coin missing from the new snapshot must be unknown")
	}
	if got := f.Snapshot().Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestFeed_CurrencyChangeDiscardsInFlight(t *testing.T) {
	f := NewFeed("USD", nil)
	inFlight := f.Begin()
	f.SetCurrency("EUR")

	if _, ok := f.Apply(inFlight, []CoinQuote{quote("btc", 50000)}); ok {
		t.Errorf("Apply(USD ticket) = true after switching to EUR, want false")
	}
	t2 := f.Begin()
	if t2.Currency != "EUR" {
		t.Errorf("Begin().Currency = %s, want EUR", t2.Currency)
	}
	if _, ok := f.Apply(t2, []CoinQuote{quote("btc", 46000)}); !ok {
		t.Errorf("Apply(EUR ticket) = false, want true")
	}
}

func TestFeed_Subscribe(t *testing.T) {
	f := NewFeed("USD", nil)
	var got []uint64
	cancel := f.Subscribe(func(s *Snapshot) { got = append(got, s.Seq()) })

	f.Apply(f.Begin(), nil)
	stale := f.Begin()
	f.Apply(f.Begin(), nil)
	f.Apply(stale, nil)
	cancel()
	f.Apply(f.Begin(), nil)

	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("notified seqs = %v, want [1 3]", got)
	}
}

func TestFeed_Refresh(t *testing.T) {
	src := &fakeSource{quotes: map[string][]CoinQuote{"USD": {quote("btc", 50000)}}}
	f := NewFeed("USD", nil)
	if err := f.Refresh(context.Background(), src); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if f.Snapshot().Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Snapshot().Len())
	}

	src.err = errors.New("rate limited")
	if err := f.Refresh(context.Background(), src); err == nil {
		t.Errorf("Refresh() error = nil, want an error")
	}
	if f.Snapshot().Len() != 1 {
		t.Errorf("a failed refresh must keep the previous snapshot")
	}
}

func TestFeed_Start(t *testing.T) {
	src := &fakeSource{quotes: map[string][]CoinQuote{"USD": {quote("btc", 50000)}}}
	f := NewFeed("USD", nil)

	var once sync.Once
	done := make(chan struct{})
	f.Subscribe(func(*Snapshot) { once.Do(func() { close(done) }) })

	cancel := f.Start(context.Background(), src, time.Hour)
	defer cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not refresh the feed")
	}
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot("USD", 7, testTime, []CoinQuote{
		quote("btc", 1),
		{Name: "no id"},
		quote("eth", 2),
		quote("btc", 3),
	})
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if q, _ := s.Lookup("btc"); !q.CurrentPrice.Equal(USD(1)) {
		t.Errorf("Lookup(btc) = %v, want the first quote %v", q.CurrentPrice, USD(1))
	}
	quotes := s.Quotes()
	if quotes[0].ID != "btc" || quotes[1].ID != "eth" {
		t.Errorf("Quotes() order = %s, %s, want btc, eth", quotes[0].ID, quotes[1].ID)
	}
	quotes[0].ID = "mutated"
	if _, ok := s.Lookup("btc"); !ok {
		t.Errorf("mutating Quotes() must not change the snapshot")
	}
}
