package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/etnz/cryptovault"
	"github.com/etnz/cryptovault/store"
	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// fakeSource serves fixed quotes per currency and fixed coin details.
type fakeSource struct {
	quotes map[string][]cryptovault.CoinQuote
	coins  map[string]cryptovault.CoinDetail
	err    error
}

func (f *fakeSource) Markets(_ context.Context, currency string) ([]cryptovault.CoinQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes[currency], nil
}

func (f *fakeSource) Coin(_ context.Context, id, currency string) (cryptovault.CoinDetail, error) {
	if f.err != nil {
		return cryptovault.CoinDetail{}, f.err
	}
	d, ok := f.coins[id]
	if !ok {
		return cryptovault.CoinDetail{}, fmt.Errorf("%w %q", cryptovault.ErrUnknownCoin, id)
	}
	return d, nil
}

func quote(id, name string, price float64) cryptovault.CoinQuote {
	return cryptovault.CoinQuote{ID: id, Symbol: id, Name: name, CurrentPrice: cryptovault.M(price, "")}
}

func newTestServer(t *testing.T) (*Server, *fakeSource) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	d, err := cryptovault.New(context.Background(), cryptovault.Options{Store: store.NewMemory()})
	if err != nil {
		t.Fatalf("cryptovault.New() error = %v", err)
	}
	src := &fakeSource{
		quotes: map[string][]cryptovault.CoinQuote{
			"USD": {quote("btc", "Bitcoin", 50000), quote("eth", "Ethereum", 2000)},
			"EUR": {quote("btc", "Bitcoin", 46000), quote("eth", "Ethereum", 1840)},
		},
		coins: map[string]cryptovault.CoinDetail{
			"btc": {CoinQuote: quote("btc", "Bitcoin", 50000), Description: "The first one."},
		},
	}
	return New(d, src, nil, "*"), src
}

func (s *Server) refresh(t *testing.T, src *fakeSource) {
	t.Helper()
	if err := s.Dashboard.Refresh(context.Background(), src); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.R.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("cannot decode %s: %v", w.Body.String(), err)
	}
}

// request is one step of an API scenario.
type request struct {
	method, path, body string
	wantStatus         int
}

func run(t *testing.T, s *Server, steps []request) {
	t.Helper()
	for _, r := range steps {
		w := do(s, r.method, r.path, r.body)
		if w.Code != r.wantStatus {
			t.Errorf("%s %s %s = %d %s, want %d", r.method, r.path, r.body, w.Code, w.Body.String(), r.wantStatus)
		}
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"ok":true}` {
		t.Errorf("GET /health = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Errorf("GET /health has no %s header", RequestIDHeader)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	s.R.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc" {
		t.Errorf("%s = %q, want the client's abc", RequestIDHeader, got)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(s, http.MethodOptions, "/api/holdings", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestWatchlist(t *testing.T) {
	s, src := newTestServer(t)
	run(t, s, []request{
		{"POST", "/api/watchlist", `{"id":"eth"}`, http.StatusServiceUnavailable},
	})
	s.refresh(t, src)
	run(t, s, []request{
		{"POST", "/api/watchlist", `{"id":"eth"}`, http.StatusCreated},
		{"POST", "/api/watchlist", `{"id":"eth"}`, http.StatusOK},
		{"POST", "/api/watchlist", `{"id":"doge"}`, http.StatusNotFound},
		{"POST", "/api/watchlist", `{}`, http.StatusBadRequest},
		{"POST", "/api/watchlist", `not json`, http.StatusBadRequest},
	})

	var entries []cryptovault.WatchlistEntry
	decode(t, do(s, "GET", "/api/watchlist", ""), &entries)
	if len(entries) != 1 || entries[0].ID != "eth" || entries[0].Name != "Ethereum" {
		t.Errorf("GET /api/watchlist = %v, want [eth]", entries)
	}

	run(t, s, []request{
		{"DELETE", "/api/watchlist/eth", "", http.StatusNoContent},
		{"DELETE", "/api/watchlist/eth", "", http.StatusNotFound},
	})
	if w := do(s, "GET", "/api/watchlist", ""); strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("GET /api/watchlist = %s, want []", w.Body.String())
	}
}

func TestHoldings(t *testing.T) {
	s, src := newTestServer(t)
	s.refresh(t, src)

	w := do(s, "POST", "/api/holdings", `{"coinId":"btc","amount":2,"price":"40000"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/holdings = %d %s, want 201", w.Code, w.Body.String())
	}
	var h struct {
		ID     int64  `json:"id"`
		CoinID string `json:"coinId"`
		Name   string `json:"name"`
	}
	decode(t, w, &h)
	if h.CoinID != "btc" || h.Name != "Bitcoin" || h.ID == 0 {
		t.Errorf("created holding = %+v", h)
	}

	w = do(s, "POST", "/api/holdings", `{"coinId":"btc","amount":"abc","price":"40000"}`)
	var apiErr apiError
	decode(t, w, &apiErr)
	if w.Code != http.StatusBadRequest || apiErr.Field != "amount" {
		t.Errorf("POST invalid amount = %d %+v, want 400 on amount", w.Code, apiErr)
	}
	run(t, s, []request{
		{"POST", "/api/holdings", `{"coinId":"doge","amount":1,"price":1}`, http.StatusNotFound},
		{"POST", "/api/holdings", `{"coinId":"btc","amount":1,"price":-1}`, http.StatusBadRequest},
		{"POST", "/api/holdings", `{"coinId":"btc","amount":[1]}`, http.StatusBadRequest},
	})

	var v struct {
		Currency string `json:"currency"`
		Rows     []struct {
			MarketValue float64 `json:"marketValue"`
		} `json:"rows"`
	}
	decode(t, do(s, "GET", "/api/holdings", ""), &v)
	if v.Currency != "USD" || len(v.Rows) != 1 {
		t.Errorf("GET /api/holdings = %+v, want one USD row", v)
	}

	var stats struct {
		TotalValue    float64 `json:"totalValue"`
		TotalInvested float64 `json:"totalInvested"`
		Pct           float64 `json:"totalGainLossPercentage"`
	}
	decode(t, do(s, "GET", "/api/stats", ""), &stats)
	if stats.TotalValue != 100000 || stats.TotalInvested != 80000 || stats.Pct != 25 {
		t.Errorf("GET /api/stats = %+v, want 100000 / 80000 / 25", stats)
	}

	run(t, s, []request{
		{"DELETE", "/api/holdings/xyz", "", http.StatusBadRequest},
		{"DELETE", fmt.Sprintf("/api/holdings/%d", h.ID), "", http.StatusNoContent},
		{"DELETE", fmt.Sprintf("/api/holdings/%d", h.ID), "", http.StatusNotFound},
	})
}

func TestMarkets(t *testing.T) {
	s, src := newTestServer(t)
	run(t, s, []request{{"GET", "/api/markets", "", http.StatusServiceUnavailable}})
	s.refresh(t, src)

	var p cryptovault.Page
	decode(t, do(s, "GET", "/api/markets?q=BIT&page=3", ""), &p)
	if p.Total != 1 || p.Number != 1 || len(p.Quotes) != 1 || p.Quotes[0].ID != "btc" {
		t.Errorf("GET /api/markets?q=BIT = %+v, want btc alone on page 1", p)
	}
	if w := do(s, "GET", "/api/markets?q=zzz", ""); !strings.Contains(w.Body.String(), `"quotes":[]`) {
		t.Errorf("GET /api/markets?q=zzz = %s, want an empty quotes array", w.Body.String())
	}
	run(t, s, []request{{"GET", "/api/markets?page=x", "", http.StatusBadRequest}})
}

func TestCoin(t *testing.T) {
	s, src := newTestServer(t)
	var d struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	decode(t, do(s, "GET", "/api/coins/btc", ""), &d)
	if d.Name != "Bitcoin" || d.Description != "The first one." {
		t.Errorf("GET /api/coins/btc = %+v", d)
	}
	run(t, s, []request{{"GET", "/api/coins/doge", "", http.StatusNotFound}})

	src.err = errors.New("rate limited")
	run(t, s, []request{{"GET", "/api/coins/btc", "", http.StatusBadGateway}})
}

func TestCurrency(t *testing.T) {
	s, src := newTestServer(t)
	s.refresh(t, src)

	var c currencyResponse
	decode(t, do(s, "GET", "/api/currency", ""), &c)
	if c.Code != "USD" || c.Symbol != "$" || len(c.Available) != len(cryptovault.Currencies) {
		t.Errorf("GET /api/currency = %+v", c)
	}

	run(t, s, []request{{"PUT", "/api/currency", `{"code":"xyz"}`, http.StatusBadRequest}})

	decode(t, do(s, "PUT", "/api/currency", `{"code":"eur"}`), &c)
	if c.Code != "EUR" || c.Symbol != "€" {
		t.Errorf("PUT /api/currency = %+v, want EUR €", c)
	}
	if got := s.Dashboard.Feed().Snapshot().Currency(); got != "EUR" {
		t.Errorf("snapshot currency = %s after the switch, want EUR", got)
	}

	// a failed refetch still switches, the valuation is stale until the next one.
	src.err = errors.New("offline")
	w := do(s, "PUT", "/api/currency", `{"code":"INR"}`)
	if w.Code != http.StatusOK {
		t.Errorf("PUT /api/currency offline = %d, want 200", w.Code)
	}
	if !s.Dashboard.Valuation().Stale {
		t.Errorf("valuation is not stale after a failed refetch")
	}
}

func TestStream(t *testing.T) {
	s, src := newTestServer(t)
	srv := httptest.NewServer(s.R)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	type streamed struct {
		Seq  uint64            `json:"seq"`
		Rows []json.RawMessage `json:"rows"`
	}
	var v streamed
	if err := conn.ReadJSON(&v); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if v.Seq != 0 || len(v.Rows) != 0 {
		t.Errorf("first valuation = %+v, want the empty one", v)
	}

	s.refresh(t, src)
	if _, err := s.Dashboard.AddHolding(context.Background(), "btc", "1", "40000"); err != nil {
		t.Fatalf("AddHolding() error = %v", err)
	}
	// only the latest valuation is guaranteed to be delivered.
	for len(v.Rows) != 1 {
		if err := conn.ReadJSON(&v); err != nil {
			t.Fatalf("ReadJSON() error = %v, want a valuation with the holding", err)
		}
	}
	if v.Seq != 1 {
		t.Errorf("streamed valuation seq = %d, want 1", v.Seq)
	}
}

func TestLatest(t *testing.T) {
	l := newLatest()
	if _, ok := l.take(); ok {
		t.Errorf("take() on an empty latest ok = true")
	}

	steps := []struct {
		seq  uint64
		rows int
		want bool
	}{
		{seq: 2, rows: 0, want: true},
		{seq: 1, rows: 0, want: false}, // a slower refresh of older market data
		{seq: 2, rows: 1, want: true},  // a holding change on the same market data
		{seq: 3, rows: 1, want: true},
	}
	for _, s := range steps {
		v := cryptovault.Valuation{Seq: s.seq, Rows: make([]cryptovault.HoldingValue, s.rows)}
		if got := l.put(v); got != s.want {
			t.Errorf("put(seq %d) = %v, want %v", s.seq, got, s.want)
		}
	}

	select {
	case <-l.ready:
	default:
		t.Fatalf("latest is not ready after put")
	}
	v, ok := l.take()
	if !ok || v.Seq != 3 || len(v.Rows) != 1 {
		t.Errorf("take() = seq %d rows %d, %v, want seq 3 rows 1", v.Seq, len(v.Rows), ok)
	}
	if _, ok := l.take(); ok {
		t.Errorf("take() twice ok = true, want false")
	}
	if l.put(cryptovault.Valuation{Seq: 2}) {
		t.Errorf("put(seq 2) after seq 3 was sent = true, want false")
	}
}
