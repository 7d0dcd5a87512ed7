package server

import (
	"sync"
	"time"

	"github.com/etnz/cryptovault"
	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

// stream pushes the current valuation, then a new one on every change, until the client
// goes away. A slow client only ever receives the latest valuation.
func (s *Server) stream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	pending := newLatest()
	cancel := s.Dashboard.OnChange(func(v cryptovault.Valuation) { pending.put(v) })
	defer cancel()
	pending.put(s.Dashboard.Valuation())

	// the client sends nothing, reading only detects that it is gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-pending.ready:
			v, ok := pending.take()
			if !ok {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(v); err != nil {
				s.Logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				s.Logger.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

// latest holds the newest valuation not yet sent to a client. Valuations computed from
// older market data than the last one accepted are dropped, whatever order the
// notifications arrive in.
type latest struct {
	mu    sync.Mutex
	v     *cryptovault.Valuation
	seq   uint64
	ready chan struct{}
}

func newLatest() *latest { return &latest{ready: make(chan struct{}, 1)} }

// put replaces the pending valuation with v. It returns false if v is outdated.
func (l *latest) put(v cryptovault.Valuation) bool {
	l.mu.Lock()
	if v.Seq < l.seq {
		l.mu.Unlock()
		return false
	}
	l.seq = v.Seq
	l.v = &v
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
	return true
}

// take returns the pending valuation, ok is false if there is none.
func (l *latest) take() (v cryptovault.Valuation, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.v == nil {
		return cryptovault.Valuation{}, false
	}
	v, l.v = *l.v, nil
	return v, true
}
