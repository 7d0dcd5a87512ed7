// Package server exposes a Dashboard over a JSON HTTP API, with a WebSocket stream of
// live valuations.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/cryptovault"
	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RequestIDHeader carries the id of a request, it is generated when the client sends none.
const RequestIDHeader = "X-Request-ID"

// CoinSource provides the market data the API needs beyond the dashboard snapshot.
type CoinSource interface {
	cryptovault.MarketSource
	Coin(ctx context.Context, id, currency string) (cryptovault.CoinDetail, error)
}

// Server serves the API of a Dashboard.
type Server struct {
	R         *gin.Engine
	Dashboard *cryptovault.Dashboard
	Source    CoinSource
	Logger    *zap.Logger

	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// New wires the router, the middleware and the handlers.
func New(d *cryptovault.Dashboard, src CoinSource, logger *zap.Logger, corsOrigin string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := gin.New()

	// Request id
	g.Use(func(cn *gin.Context) {
		id := cn.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		cn.Set("request_id", id)
		cn.Writer.Header().Set(RequestIDHeader, id)
		cn.Next()
	})

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", cn.GetString("request_id")),
		)
	})

	g.Use(gin.Recovery())

	// CORS
	g.Use(func(cn *gin.Context) {
		origin := cn.GetHeader("Origin")
		cn.Writer.Header().Set("Vary", "Origin")
		cn.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		cn.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		cn.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if corsOrigin == "*" {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && origin == corsOrigin {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", corsOrigin)
		}
		if cn.Request.Method == http.MethodOptions {
			cn.AbortWithStatus(http.StatusNoContent)
			return
		}
		cn.Next()
	})

	s := &Server{
		R:            g,
		Dashboard:    d,
		Source:       src,
		Logger:       logger,
		pingInterval: 30 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return corsOrigin == "*" || origin == "" || origin == corsOrigin
			},
		},
	}

	g.GET("/health", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := g.Group("/api")
	api.GET("/watchlist", s.getWatchlist)
	api.POST("/watchlist", s.postWatchlist)
	api.DELETE("/watchlist/:id", s.deleteWatchlist)
	api.GET("/holdings", s.getHoldings)
	api.POST("/holdings", s.postHolding)
	api.DELETE("/holdings/:id", s.deleteHolding)
	api.GET("/stats", s.getStats)
	api.GET("/markets", s.getMarkets)
	api.GET("/coins/:id", s.getCoin)
	api.GET("/currency", s.getCurrency)
	api.PUT("/currency", s.putCurrency)
	api.GET("/ws", s.stream)

	return s
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.R}
	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("http listening", zap.String("addr", addr))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	err := server.Shutdown(ctxShut)
	if lerr := <-errc; lerr != nil && !errors.Is(lerr, http.ErrServerClosed) {
		return lerr
	}
	s.Logger.Info("shutdown complete")
	return err
}

// --- Helpers ---

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

func (s *Server) notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, apiError{Code: "not_found", Message: msg})
}

func (s *Server) internalError(c *gin.Context, where string, err error) {
	s.Logger.Error("internal_error", zap.String("where", where), zap.Error(err))
	c.JSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
}

// domainError maps the dashboard errors to a response.
func (s *Server) domainError(c *gin.Context, where string, err error) {
	var verr *cryptovault.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_holding", Message: verr.Error(), Field: verr.Field})
	case errors.Is(err, cryptovault.ErrUnknownCoin):
		s.notFound(c, err.Error())
	case errors.Is(err, cryptovault.ErrNoSnapshot):
		c.JSON(http.StatusServiceUnavailable, apiError{Code: "no_market_data", Message: "market data is not available yet"})
	default:
		s.internalError(c, where, err)
	}
}
