// Package signal is the realtime channel adapter: one websocket per
// client, multiplexing every party through a single endpoint. It
// decodes inbound envelopes, drives the orchestrator and fans events
// back out. Failures are per-message; a bad frame never drops the
// connection.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/app/orch"
	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const sendBuffer = 32

type SignalWSController struct {
	Orch      *orch.Orchestrator
	ChatRate  *ChatRateLimiter
	ReadLimit int64
}

func NewSignalWSController(o *orch.Orchestrator, rate *ChatRateLimiter, readLimit int64) *SignalWSController {
	if rate == nil {
		rate = NewChatRateLimiter(10, 10*time.Second)
	}
	return &SignalWSController{
		Orch:      o,
		ChatRate:  rate,
		ReadLimit: readLimit,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and binds the connection into the
// registry. Identity is asserted per message, not per connection; at
// this point the session only has an anonymous member shell.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, sendBuffer),
	}

	meta := domain.NewMember(&domain.User{})
	sess := core.NewMemberSession(meta).UpdateSignal(conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
