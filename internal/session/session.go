// ABOUTME: Append-only conversation log and derived UI flags for one session.
// ABOUTME: Mutated only by local user appends and decoded inbound events.

package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nimesha-dev/vmarket/internal/protocol"
)

// Role identifies who authored a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// errorPrefix marks server-reported failures in the rendered log.
const errorPrefix = "Error: "

// Message is one immutable conversation entry. Once appended it is never
// mutated or removed; the UI renders history, not a mutable buffer.
type Message struct {
	Role       Role
	Content    string
	Vehicles   []protocol.VehicleListing
	Comparison map[string]protocol.ModelStats
	IsError    bool
	At         time.Time
}

// Snapshot is a read-only view of the session for presentation layers.
type Snapshot struct {
	ClientID        string
	ConnState       ConnState
	PendingResponse bool
	Messages        []Message
}

// Session holds the ordered conversation log for one client identity.
//
// It applies the documented event transitions and nothing else; it performs
// no network I/O itself.
type Session struct {
	clientID string
	logger   *slog.Logger

	// notifyMu serializes each append with its observer notification, so
	// observers see entries in log order even when appends race across
	// goroutines.
	notifyMu sync.Mutex

	mu       sync.RWMutex
	messages []Message
	state    ConnState
	pending  bool

	// onMessage, if set, observes each appended entry. Invoked outside the
	// lock so observers may read the session back.
	onMessage   func(Message)
	onPending   func(bool)
	onConnState func(ConnState)
}

// NewSession creates an empty session bound to a client identity.
func NewSession(clientID string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		clientID: clientID,
		logger:   logger,
	}
}

// ClientID returns the immutable per-session client identifier.
func (s *Session) ClientID() string {
	return s.clientID
}

// OnMessage registers an observer for appended entries, invoked in log
// order. Set before the connection starts delivering frames. The callback
// may read the session but must not append to it.
func (s *Session) OnMessage(fn func(Message)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// OnPending registers an observer for pendingResponse changes.
func (s *Session) OnPending(fn func(bool)) {
	s.mu.Lock()
	s.onPending = fn
	s.mu.Unlock()
}

// OnConnState registers an observer for connection state transitions.
func (s *Session) OnConnState(fn func(ConnState)) {
	s.mu.Lock()
	s.onConnState = fn
	s.mu.Unlock()
}

// AppendUser optimistically appends a local user message and marks the
// session as awaiting a terminal reply. The caller is responsible for the
// actual transmission.
func (s *Session) AppendUser(text string) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	msg := Message{
		Role:    RoleUser,
		Content: text,
		At:      time.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	changed := !s.pending
	s.pending = true
	onMessage, onPending := s.onMessage, s.onPending
	s.mu.Unlock()

	if onMessage != nil {
		onMessage(msg)
	}
	if changed && onPending != nil {
		onPending(true)
	}
}

// Apply performs the transition for one decoded inbound event. Events must
// be applied in the order the transport delivered them, exactly once each.
func (s *Session) Apply(ev *protocol.Event) {
	switch ev.Type {
	case protocol.FrameSystem:
		s.appendAssistant(Message{
			Role:    RoleAssistant,
			Content: ev.Text,
			At:      time.Now(),
		}, nil)

	case protocol.FrameTyping:
		s.setPending(true)

	case protocol.FrameResponse:
		pending := false
		s.appendAssistant(Message{
			Role:       RoleAssistant,
			Content:    ev.Text,
			Vehicles:   ev.Vehicles,
			Comparison: ev.Comparison,
			At:         time.Now(),
		}, &pending)

	case protocol.FrameError:
		pending := false
		s.appendAssistant(Message{
			Role:    RoleAssistant,
			Content: errorPrefix + ev.Text,
			IsError: true,
			At:      time.Now(),
		}, &pending)

	default:
		// Dispatcher filters unknown types before they reach here.
		s.logger.Warn("ignoring event with unhandled type", "type", string(ev.Type))
	}
}

// appendAssistant appends one assistant entry and optionally updates the
// pendingResponse flag in the same critical section.
func (s *Session) appendAssistant(msg Message, pending *bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	var pendingChanged bool
	if pending != nil {
		pendingChanged = s.pending != *pending
		s.pending = *pending
	}
	onMessage, onPending := s.onMessage, s.onPending
	s.mu.Unlock()

	if onMessage != nil {
		onMessage(msg)
	}
	if pendingChanged && onPending != nil {
		onPending(*pending)
	}
}

func (s *Session) setPending(v bool) {
	s.mu.Lock()
	changed := s.pending != v
	s.pending = v
	onPending := s.onPending
	s.mu.Unlock()

	if changed && onPending != nil {
		onPending(v)
	}
}

// setConnState records the connection state for snapshots. Called by the
// owning Client when the connection reports a transition.
func (s *Session) setConnState(state ConnState) {
	s.mu.Lock()
	s.state = state
	onConnState := s.onConnState
	s.mu.Unlock()

	if onConnState != nil {
		onConnState(state)
	}
}

// Pending reports whether a sent user message is still awaiting a terminal
// reply.
func (s *Session) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// ConnState returns the last observed connection state.
func (s *Session) ConnState() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Len returns the number of entries in the conversation log.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Snapshot returns a copy of the session suitable for rendering. Mutating
// the returned slice does not affect the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		ClientID:        s.clientID,
		ConnState:       s.state,
		PendingResponse: s.pending,
		Messages:        msgs,
	}
}

// History projects the conversation log into the {role, content} shape the
// backend's synchronous query endpoint expects.
func (s *Session) History() []protocol.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]protocol.HistoryEntry, 0, len(s.messages))
	for _, m := range s.messages {
		entries = append(entries, protocol.HistoryEntry{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return entries
}
