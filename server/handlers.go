package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/etnz/cryptovault"
	gin "github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// numberText is a number given either as a JSON number or as a JSON string.
// Parsing is left to the portfolio so that both forms are validated alike.
type numberText string

func (n *numberText) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = numberText(s)
		return nil
	}
	if string(data) == "null" {
		*n = ""
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = numberText(num)
	return nil
}

type watchRequest struct {
	ID string `json:"id"`
}

type holdingRequest struct {
	CoinID string     `json:"coinId"`
	Amount numberText `json:"amount"`
	Price  numberText `json:"price"`
}

type currencyRequest struct {
	Code string `json:"code"`
}

type currencyResponse struct {
	cryptovault.Display
	Available []string `json:"available"`
}

// --- Handlers ---

func (s *Server) getWatchlist(c *gin.Context) {
	entries := s.Dashboard.Watchlist()
	if entries == nil {
		entries = []cryptovault.WatchlistEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) postWatchlist(c *gin.Context) {
	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid body: "+err.Error())
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		s.badRequest(c, "missing coin id")
		return
	}
	e, added, err := s.Dashboard.Watch(c.Request.Context(), id)
	if err != nil {
		s.domainError(c, "Watch", err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, e)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) deleteWatchlist(c *gin.Context) {
	if !s.Dashboard.RemoveFromWatchlist(c.Request.Context(), c.Param("id")) {
		s.notFound(c, "coin is not watched")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getHoldings(c *gin.Context) {
	v := s.Dashboard.Valuation()
	if v.Rows == nil {
		v.Rows = []cryptovault.HoldingValue{}
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) postHolding(c *gin.Context) {
	var req holdingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid body: "+err.Error())
		return
	}
	h, err := s.Dashboard.AddHolding(c.Request.Context(), req.CoinID, string(req.Amount), string(req.Price))
	if err != nil {
		s.domainError(c, "AddHolding", err)
		return
	}
	c.JSON(http.StatusCreated, h)
}

func (s *Server) deleteHolding(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.badRequest(c, "invalid holding id")
		return
	}
	if !s.Dashboard.RemoveHolding(c.Request.Context(), id) {
		s.notFound(c, "no such holding")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.Stats())
}

func (s *Server) getMarkets(c *gin.Context) {
	snap := s.Dashboard.Feed().Snapshot()
	if snap == nil {
		s.domainError(c, "Markets", cryptovault.ErrNoSnapshot)
		return
	}
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.badRequest(c, "invalid page")
			return
		}
		page = n
	}
	p := cryptovault.Paginate(cryptovault.FilterQuotes(snap.Quotes(), c.Query("q")), page)
	if p.Quotes == nil {
		p.Quotes = []cryptovault.CoinQuote{}
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getCoin(c *gin.Context) {
	d, err := s.Source.Coin(c.Request.Context(), c.Param("id"), s.Dashboard.Display().Code)
	if err != nil {
		if errors.Is(err, cryptovault.ErrUnknownCoin) {
			s.notFound(c, err.Error())
			return
		}
		s.Logger.Warn("coin detail unavailable", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusBadGateway, apiError{Code: "upstream_error", Message: "market data provider failed"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) getCurrency(c *gin.Context) {
	c.JSON(http.StatusOK, currencyResponse{Display: s.Dashboard.Display(), Available: cryptovault.Currencies})
}

// putCurrency switches the display currency and refetches the markets in it.
// A failed refetch leaves the valuation stale, it is not an error of the request.
func (s *Server) putCurrency(c *gin.Context) {
	var req currencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid body: "+err.Error())
		return
	}
	display, err := s.Dashboard.SetCurrency(req.Code)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	if err := s.Dashboard.Refresh(c.Request.Context(), s.Source); err != nil {
		s.Logger.Warn("cannot refresh markets", zap.String("currency", display.Code), zap.Error(err))
	}
	c.JSON(http.StatusOK, currencyResponse{Display: display, Available: cryptovault.Currencies})
}
