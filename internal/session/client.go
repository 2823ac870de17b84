// ABOUTME: Composes identity, connection, dispatcher, and state into one owned session client.
// ABOUTME: Explicitly constructed and handed to the presentation layer; no singletons.

package session

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nimesha-dev/vmarket/internal/protocol"
)

// Client is the lifetime-scoped object coordinating one connection, one
// client identity, and one conversation log.
type Client struct {
	sess   *Session
	conn   *Connection
	logger *slog.Logger
}

// NewClient builds a session client for the given client identity. The
// connection is not opened until Connect is called.
func NewClient(cfg ConnectionConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	sess := NewSession(cfg.ClientID, logger)
	dispatcher := NewDispatcher(sess, logger)
	conn := NewConnection(cfg, dispatcher.HandleFrame, sess.setConnState, logger)
	return &Client{
		sess:   sess,
		conn:   conn,
		logger: logger,
	}
}

// Session exposes the conversation state for observation.
func (c *Client) Session() *Session {
	return c.sess
}

// Connection exposes the connection manager, mainly for state queries.
func (c *Client) Connection() *Connection {
	return c.conn
}

// Connect opens the session's connection. Idempotent; see
// Connection.Connect.
func (c *Client) Connect(ctx context.Context) {
	c.conn.Connect(ctx)
}

// Send validates and transmits one user message, optimistically appending
// it to the conversation log first.
//
// Fails with protocol.ErrEmptyMessage on blank input and ErrNotConnected
// when the connection is down; in both cases nothing is appended or sent.
// Delivery is best-effort at-most-once: a message accepted here may still
// be lost if the connection drops before the server reads it.
func (c *Client) Send(ctx context.Context, text string) error {
	payload, err := protocol.EncodeOutbound(text)
	if err != nil {
		return err
	}
	if c.conn.State() != StateConnected {
		return ErrNotConnected
	}

	c.sess.AppendUser(strings.TrimSpace(text))
	if err := c.conn.Send(ctx, payload); err != nil {
		// The optimistic append stands; the log is append-only.
		c.logger.Warn("send failed after append", "error", err)
		return err
	}
	return nil
}

// Close tears the session's connection down. The conversation log remains
// readable afterwards.
func (c *Client) Close() {
	c.conn.Disconnect()
}
