package cryptovault

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPortfolio_AddHolding(t *testing.T) {
	ctx := context.Background()
	s := newMapStore()
	p := LoadPortfolio(ctx, s, nil)
	p.now = func() time.Time { return testTime }

	meta := CoinQuote{ID: "btc", Name: "Bitcoin", Symbol: "btc", Image: "btc.png", CurrentPrice: USD(50000)}
	h, err := p.AddHolding(ctx, "btc", "2", "40000", meta)
	if err != nil {
		t.Fatalf("AddHolding() error = %v", err)
	}

	want := Holding{
		ID:            testTime.UnixMilli(),
		CoinID:        "btc",
		Name:          "Bitcoin",
		Symbol:        "btc",
		Image:         "btc.png",
		Amount:        Q(2),
		PurchasePrice: NO(40000),
		CurrentPrice:  NO(50000),
	}
	if !equalHolding(h, want) {
		t.Errorf("AddHolding() = %+v, want %+v", h, want)
	}
	if got := p.Holdings(); len(got) != 1 || !equalHolding(got[0], want) {
		t.Errorf("Holdings() = %+v, want [%+v]", got, want)
	}
	if got := s.writes(); got != 1 {
		t.Errorf("store writes = %d, want 1", got)
	}
}

func TestPortfolio_AddHoldingRejects(t *testing.T) {
	tests := []struct {
		name      string
		coin      string
		amount    string
		price     string
		wantField string
	}{
		{"not a number", "btc", "abc", "100", "amount"},
		{"trailing garbage", "btc", "12abc", "100", "amount"},
		{"empty amount", "btc", "", "100", "amount"},
		{"zero amount", "btc", "0", "100", "amount"},
		{"negative amount", "btc", "-1", "100", "amount"},
		{"bad price", "btc", "1", "ten", "price"},
		{"negative price", "btc", "1", "-5", "price"},
		{"no coin", "", "1", "100", "coin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newMapStore()
			p := LoadPortfolio(ctx, s, nil)

			_, err := p.AddHolding(ctx, tt.coin, tt.amount, tt.price, CoinQuote{ID: tt.coin})
			if !errors.Is(err, ErrInvalidHolding) {
				t.Fatalf("AddHolding() error = %v, want ErrInvalidHolding", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Errorf("AddHolding() error = %v, want a %s validation error", err, tt.wantField)
			}
			if got := p.Holdings(); len(got) != 0 {
				t.Errorf("Holdings() = %v, want unchanged", got)
			}
			if got := s.writes(); got != 0 {
				t.Errorf("store writes = %d, want none", got)
			}
		})
	}
}

func TestPortfolio_AddHoldingLenientInput(t *testing.T) {
	ctx := context.Background()
	p := LoadPortfolio(ctx, newMapStore(), nil)
	// a zero price and surrounding spaces are fine.
	if _, err := p.AddHolding(ctx, "btc", " 0.5 ", "0", CoinQuote{ID: "btc"}); err != nil {
		t.Errorf("AddHolding() error = %v", err)
	}
}

func TestPortfolio_IDsAreUnique(t *testing.T) {
	ctx := context.Background()
	p := LoadPortfolio(ctx, newMapStore(), nil)
	p.now = func() time.Time { return testTime } // the clock does not move

	seen := make(map[int64]bool)
	for i := 0; i < 5; i++ {
		h, err := p.AddHolding(ctx, "btc", "1", "1", CoinQuote{ID: "btc"})
		if err != nil {
			t.Fatalf("AddHolding() error = %v", err)
		}
		if seen[h.ID] {
			t.Fatalf("duplicate holding id %d", h.ID)
		}
		seen[h.ID] = true
	}
}

func TestPortfolio_RemoveHolding(t *testing.T) {
	ctx := context.Background()
	s := newMapStore()
	p := LoadPortfolio(ctx, s, nil)
	a, _ := p.AddHolding(ctx, "btc", "1", "1", CoinQuote{ID: "btc"})
	b, _ := p.AddHolding(ctx, "eth", "1", "1", CoinQuote{ID: "eth"})

	if !p.RemoveHolding(ctx, a.ID) {
		t.Errorf("RemoveHolding(%d) = false, want true", a.ID)
	}
	if p.RemoveHolding(ctx, 42) {
		t.Errorf("RemoveHolding(42) = true, want false")
	}
	got := p.Holdings()
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("Holdings() = %v, want only %d", got, b.ID)
	}
}

func TestPortfolio_Reload(t *testing.T) {
	ctx := context.Background()
	s := newMapStore()
	p := LoadPortfolio(ctx, s, nil)
	p.AddHolding(ctx, "btc", "2", "40000.5", CoinQuote{ID: "btc", Name: "Bitcoin", Symbol: "btc", Image: "i", CurrentPrice: USD(50000)})
	p.AddHolding(ctx, "eth", "0.125", "1999.99", CoinQuote{ID: "eth", Name: "Ethereum", Symbol: "eth", Image: "j", CurrentPrice: USD(2100)})

	want := p.Holdings()
	got := LoadPortfolio(ctx, s, nil).Holdings()
	if len(got) != len(want) {
		t.Fatalf("reloaded %d holdings, want %d", len(got), len(want))
	}
	for i := range want {
		if !equalHolding(got[i], want[i]) {
			t.Errorf("reloaded holding %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// the next id keeps increasing across sessions.
	q := LoadPortfolio(ctx, s, nil)
	q.now = func() time.Time { return time.UnixMilli(0) }
	h, _ := q.AddHolding(ctx, "btc", "1", "1", CoinQuote{ID: "btc"})
	if h.ID <= want[1].ID {
		t.Errorf("new id %d, want greater than %d", h.ID, want[1].ID)
	}
}

func TestPortfolio_StoredLayout(t *testing.T) {
	ctx := context.Background()
	s := newMapStore()
	p := LoadPortfolio(ctx, s, nil)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }
	p.AddHolding(ctx, "btc", "2", "40000", CoinQuote{ID: "btc", Name: "Bitcoin", Symbol: "btc", Image: "i", CurrentPrice: USD(50000)})

	want := `[{"id":1700000000000,"coinId":"btc","name":"Bitcoin","symbol":"btc","image":"i","amount":2,"purchasePrice":40000,"currentPrice":50000}]`
	if got := string(s.data[PortfolioKey]); got != want {
		t.Errorf("stored portfolio = %s, want %s", got, want)
	}
}

func TestPortfolio_LoadMalformed(t *testing.T) {
	ctx := context.Background()
	s := newMapStore()
	s.data[PortfolioKey] = []byte(`[{"id":1,"coinId":"btc","amount":`)

	p := LoadPortfolio(ctx, s, nil)
	if got := p.Holdings(); len(got) != 0 {
		t.Errorf("Holdings() = %v, want empty on malformed data", got)
	}
}

func equalHolding(a, b Holding) bool {
	return a.ID == b.ID && a.CoinID == b.CoinID && a.Name == b.Name && a.Symbol == b.Symbol && a.Image == b.Image &&
		a.Amount.Equal(b.Amount) && a.PurchasePrice.Equal(b.PurchasePrice) && a.CurrentPrice.Equal(b.CurrentPrice)
}
