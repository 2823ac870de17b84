// ABOUTME: Bridges raw inbound frames to typed session transitions.
// ABOUTME: Malformed and unknown frames are logged and discarded, never fatal.

package session

import (
	"errors"
	"log/slog"

	"github.com/nimesha-dev/vmarket/internal/protocol"
)

// Dispatcher decodes raw frames and applies them to a Session, one at a
// time in delivery order. One bad frame never crashes the session.
type Dispatcher struct {
	sess   *Session
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher feeding the given session.
func NewDispatcher(sess *Session, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sess: sess, logger: logger}
}

// HandleFrame processes one raw inbound frame. Suitable as a
// Connection FrameHandler.
func (d *Dispatcher) HandleFrame(raw []byte) {
	ev, err := protocol.DecodeFrame(raw)
	switch {
	case errors.Is(err, protocol.ErrUnknownFrameType):
		d.logger.Warn("discarding frame of unknown type", "error", err)
		return
	case err != nil:
		d.logger.Warn("discarding malformed frame", "error", err, "size", len(raw))
		return
	}
	d.sess.Apply(ev)
}
