// Package session implements the client side of a conversational session
// with the vehicle-market agent service.
//
// # Overview
//
// A session couples one client identity, one WebSocket connection, and one
// append-only conversation log. The package is split along those lines:
//
//   - Connection: socket lifecycle, reconnection policy
//   - Dispatcher: raw frame -> typed event -> session transition
//   - Session: the conversation log and UI-observable flags
//   - Client: composition root tying the pieces together
//
// # Connection lifecycle
//
// The connection is a three-state machine:
//
//	Disconnected --Connect()--> Connecting --dial ok--> Connected
//	Connecting   --dial fail--> Disconnected (reconnect scheduled)
//	Connected    --socket close--> Disconnected (reconnect scheduled)
//	any state    --Disconnect()--> Disconnected (terminal)
//
// Unexpected closes schedule exactly one reconnect attempt per close, with
// the delay doubling from ReconnectDelay up to MaxReconnectDelay and
// resetting after a successful dial. Attempts continue indefinitely until a
// dial succeeds or Disconnect is called. Every attempt reuses the same
// client ID so the server resumes the same conversational context.
//
// Disconnect is terminal for the Connection instance. It cancels the
// reconnect timer and bumps a generation counter; a timer that already
// fired, or a close event from the discarded socket, checks the generation
// and does nothing. Callers wanting a fresh connection construct a new
// Client.
//
// # Ordering
//
// One read-loop goroutine serves each live socket, so frames are decoded
// and applied in the order the transport delivered them: no reordering,
// batching, or deduplication. Across a reconnect no ordering holds between
// the old and new socket, and an unacknowledged send may simply be lost;
// the client does not buffer or replay.
//
// # Session state
//
// Session is a pure state container. The conversation log is append-only:
// entries come from local user input (optimistic, before the server reply)
// or from decoded inbound events, and are never mutated or removed. The
// pendingResponse flag is true exactly while a sent user message awaits a
// terminal (response or error) frame; a typing frame also raises it.
//
// Presentation layers observe the session through Snapshot copies or the
// OnMessage/OnPending callbacks; they never mutate it.
package session
