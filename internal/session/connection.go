// ABOUTME: WebSocket connection lifecycle for one session: dial, read loop, teardown.
// ABOUTME: Schedules capped-backoff reconnects on unexpected closes, never after Disconnect.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ErrNotConnected indicates a send was attempted without an open connection.
// The payload is not transmitted; the caller surfaces this to the user.
var ErrNotConnected = errors.New("not connected")

// ConnState is the externally observable connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

const (
	defaultReconnectDelay    = 3 * time.Second
	defaultMaxReconnectDelay = 48 * time.Second
	dialTimeout              = 10 * time.Second
)

// ConnectionConfig configures a Connection.
type ConnectionConfig struct {
	// BaseURL is the WebSocket base, e.g. "ws://localhost:8000". The session
	// endpoint /ws/{clientID} is appended.
	BaseURL string

	// ClientID binds the connection to server-side conversational context.
	// Reused across every reconnect attempt.
	ClientID string

	// AuthToken, when set, is sent as a bearer token on the dial request.
	AuthToken string

	// ReconnectDelay is the initial delay before a reconnect attempt.
	// Defaults to 3s.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential escalation. Defaults to 48s.
	MaxReconnectDelay time.Duration
}

// FrameHandler receives raw inbound frames in delivery order.
type FrameHandler func(raw []byte)

// StateHandler observes connection state transitions.
type StateHandler func(ConnState)

// Connection owns one session's socket, its lifecycle, and the reconnect
// timer. It never inspects message content.
type Connection struct {
	cfg     ConnectionConfig
	logger  *slog.Logger
	onFrame FrameHandler
	onState StateHandler

	mu     sync.Mutex
	ctx    context.Context
	ws     *websocket.Conn
	state  ConnState
	timer  *time.Timer
	delay  time.Duration
	gen    uint64
	closed bool
}

// NewConnection creates a Connection. onFrame must be non-nil; onState may
// be nil.
func NewConnection(cfg ConnectionConfig, onFrame FrameHandler, onState StateHandler, logger *slog.Logger) *Connection {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = defaultMaxReconnectDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		cfg:     cfg,
		logger:  logger,
		onFrame: onFrame,
		onState: onState,
		delay:   cfg.ReconnectDelay,
	}
}

// URL returns the full session endpoint this connection dials.
func (c *Connection) URL() string {
	return fmt.Sprintf("%s/ws/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.ClientID)
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts a connection attempt. It is idempotent: a no-op while
// Connecting or Connected, and permanently inert after Disconnect. The
// context governs the connection's whole lifetime, reconnects included.
//
// The attempt itself runs asynchronously; outcomes surface through the
// state handler.
func (c *Connection) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.ctx == nil {
		c.ctx = ctx
	}
	gen := c.gen
	notify := c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	notify()

	go c.dial(gen)
}

// dial performs one connection attempt for the given generation.
func (c *Connection) dial(gen uint64) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	var opts *websocket.DialOptions
	if c.cfg.AuthToken != "" {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
		opts = &websocket.DialOptions{HTTPHeader: header}
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	ws, _, err := websocket.Dial(dialCtx, c.URL(), opts)
	cancel()

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		if err == nil {
			ws.Close(websocket.StatusNormalClosure, "stale dial")
		}
		return
	}
	if err != nil {
		notify := c.setStateLocked(StateDisconnected)
		delay := c.scheduleReconnectLocked()
		c.mu.Unlock()
		notify()
		c.logger.Warn("connect failed, retry scheduled",
			"url", c.URL(),
			"delay", delay,
			"error", err,
		)
		return
	}

	c.ws = ws
	c.delay = c.cfg.ReconnectDelay
	notify := c.setStateLocked(StateConnected)
	c.mu.Unlock()
	notify()

	c.logger.Info("connected", "url", c.URL())
	go c.readLoop(ctx, ws, gen)
}

// readLoop delivers inbound frames in order until the socket closes.
func (c *Connection) readLoop(ctx context.Context, ws *websocket.Conn, gen uint64) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		c.onFrame(data)
	}
}

// handleClose reacts to a socket close observed by the read loop. Closes
// belonging to a superseded generation (explicit Disconnect, replaced
// socket) are ignored.
func (c *Connection) handleClose(gen uint64, err error) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.ws = nil
	notify := c.setStateLocked(StateDisconnected)
	delay := c.scheduleReconnectLocked()
	c.mu.Unlock()
	notify()

	c.logger.Warn("connection closed, reconnect scheduled",
		"close_status", int(websocket.CloseStatus(err)),
		"delay", delay,
		"error", err,
	)
}

// scheduleReconnectLocked arms the reconnect timer and returns the delay it
// will wait. The fired callback re-checks desired state so a stale timer
// never acts after teardown.
func (c *Connection) scheduleReconnectLocked() time.Duration {
	if c.timer != nil {
		c.timer.Stop()
	}
	delay := c.delay
	gen := c.gen
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		stale := c.closed || gen != c.gen || c.state != StateDisconnected
		ctx := c.ctx
		c.mu.Unlock()
		if stale || ctx == nil || ctx.Err() != nil {
			return
		}
		c.Connect(ctx)
	})

	// Escalate for the next attempt, capped.
	next := delay * 2
	if next > c.cfg.MaxReconnectDelay {
		next = c.cfg.MaxReconnectDelay
	}
	c.delay = next

	return delay
}

// Send transmits one payload. Fails with ErrNotConnected unless the
// connection is currently open; nothing is buffered or retried.
func (c *Connection) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	ws, state := c.ws, c.state
	c.mu.Unlock()

	if state != StateConnected || ws == nil {
		return ErrNotConnected
	}
	if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Disconnect tears the connection down for good: the reconnect timer is
// cancelled, in-flight dials are invalidated, and no further attempts are
// made. Safe to call at any time, repeatedly.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	ws := c.ws
	c.ws = nil
	notify := c.setStateLocked(StateDisconnected)
	c.mu.Unlock()
	notify()

	if ws != nil {
		ws.Close(websocket.StatusNormalClosure, "client disconnect")
	}
}

// setStateLocked records a transition and returns the observer callback to
// run once the lock is released. Callers must hold c.mu.
func (c *Connection) setStateLocked(state ConnState) func() {
	if c.state == state || c.onState == nil {
		c.state = state
		return func() {}
	}
	c.state = state
	handler := c.onState
	return func() { handler(state) }
}
