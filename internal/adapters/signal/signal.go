// Package signal is the websocket adapter: it owns the transport
// connections and translates wire events into presence-router calls.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pages/internal/app"
	"github.com/dkeye/Pages/internal/core"
	"github.com/dkeye/Pages/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Registry *app.Registry
	Presence *app.Presence

	readLimit  int64
	pingPeriod time.Duration
	upgrader   websocket.Upgrader
}

func NewController(registry *app.Registry, presence *app.Presence, readLimit int64, pingPeriod time.Duration, allowedOrigin string) *Controller {
	return &Controller{
		Registry:   registry,
		Presence:   presence,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
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

func (c *wsConn) Close() {
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

// HandleWS upgrades an already-authenticated request. The auth
// middleware put the resolved user into the gin context; a request
// that failed authentication never reaches this point.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	user := c.MustGet("user").(*domain.User)
	connID := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("user", string(user.ID)).Str("conn", string(connID)).Msg("new WS connection")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.readLimit)

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	sess := core.NewClientSession(user, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Register(connID, sess)

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, user.ID, connID, conn)
	}()
}
