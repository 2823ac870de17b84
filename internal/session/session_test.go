// ABOUTME: Tests for session state transitions: pending flag, append-only log, snapshots.
// ABOUTME: Exercises the per-event-type effects and observer callbacks.

package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimesha-dev/vmarket/internal/protocol"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession("client-test", nil)
}

func TestSession_Empty(t *testing.T) {
	sess := newTestSession(t)

	assert.Equal(t, "client-test", sess.ClientID())
	assert.Zero(t, sess.Len())
	assert.False(t, sess.Pending())
	assert.Equal(t, StateDisconnected, sess.ConnState())
}

func TestSession_AppendUser(t *testing.T) {
	sess := newTestSession(t)

	sess.AppendUser("how much is a Toyota Aqua?")

	require.Equal(t, 1, sess.Len())
	assert.True(t, sess.Pending())

	snap := sess.Snapshot()
	assert.Equal(t, RoleUser, snap.Messages[0].Role)
	assert.Equal(t, "how much is a Toyota Aqua?", snap.Messages[0].Content)
	assert.False(t, snap.Messages[0].At.IsZero())
}

func TestSession_ApplySystem(t *testing.T) {
	sess := newTestSession(t)

	sess.Apply(&protocol.Event{Type: protocol.FrameSystem, Text: "welcome"})

	require.Equal(t, 1, sess.Len())
	snap := sess.Snapshot()
	assert.Equal(t, RoleAssistant, snap.Messages[0].Role)
	assert.Equal(t, "welcome", snap.Messages[0].Content)
	assert.False(t, snap.Messages[0].IsError)
	// System frames do not touch the pending flag.
	assert.False(t, sess.Pending())
}

func TestSession_ApplySystemPreservesPending(t *testing.T) {
	sess := newTestSession(t)

	sess.AppendUser("hello")
	sess.Apply(&protocol.Event{Type: protocol.FrameSystem, Text: "reconnected"})

	assert.True(t, sess.Pending())
	assert.Equal(t, 2, sess.Len())
}

func TestSession_ApplyTyping(t *testing.T) {
	sess := newTestSession(t)

	sess.Apply(&protocol.Event{Type: protocol.FrameTyping, Text: "Agent is thinking..."})

	// Typing sets pending without appending anything.
	assert.True(t, sess.Pending())
	assert.Zero(t, sess.Len())
}

func TestSession_ApplyResponse(t *testing.T) {
	sess := newTestSession(t)
	sess.AppendUser("price of a Honda Fit")

	sess.Apply(&protocol.Event{
		Type:     protocol.FrameResponse,
		Text:     "Found 2 listings",
		Vehicles: []protocol.VehicleListing{{Title: "Honda Fit GP5 2015", Price: 9_200_000}},
		Intent:   "price_check",
	})

	assert.False(t, sess.Pending())
	require.Equal(t, 2, sess.Len())

	snap := sess.Snapshot()
	last := snap.Messages[1]
	assert.Equal(t, RoleAssistant, last.Role)
	assert.Equal(t, "Found 2 listings", last.Content)
	require.Len(t, last.Vehicles, 1)
	assert.Equal(t, "Honda Fit GP5 2015", last.Vehicles[0].Title)
	assert.False(t, last.IsError)
}

func TestSession_ApplyError(t *testing.T) {
	sess := newTestSession(t)
	sess.AppendUser("hello")

	sess.Apply(&protocol.Event{Type: protocol.FrameError, Text: "scrape failed"})

	assert.False(t, sess.Pending())
	require.Equal(t, 2, sess.Len())

	last := sess.Snapshot().Messages[1]
	assert.True(t, last.IsError)
	assert.Equal(t, "Error: scrape failed", last.Content)
}

func TestSession_LogOnlyGrows(t *testing.T) {
	sess := newTestSession(t)

	events := []*protocol.Event{
		{Type: protocol.FrameSystem, Text: "welcome"},
		{Type: protocol.FrameTyping},
		{Type: protocol.FrameResponse, Text: "answer"},
		{Type: protocol.FrameError, Text: "oops"},
		{Type: protocol.FrameTyping},
	}

	prev := sess.Len()
	for _, ev := range events {
		sess.Apply(ev)
		assert.GreaterOrEqual(t, sess.Len(), prev)
		prev = sess.Len()
	}
}

func TestSession_SnapshotIsolation(t *testing.T) {
	sess := newTestSession(t)
	sess.AppendUser("one")

	snap := sess.Snapshot()
	snap.Messages[0].Content = "mutated"

	assert.Equal(t, "one", sess.Snapshot().Messages[0].Content)
}

func TestSession_History(t *testing.T) {
	sess := newTestSession(t)
	sess.AppendUser("how much is an Alto?")
	sess.Apply(&protocol.Event{Type: protocol.FrameResponse, Text: "Around Rs 4,850,000"})

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, protocol.HistoryEntry{Role: "user", Content: "how much is an Alto?"}, history[0])
	assert.Equal(t, protocol.HistoryEntry{Role: "assistant", Content: "Around Rs 4,850,000"}, history[1])
}

func TestSession_OnMessageObserver(t *testing.T) {
	sess := newTestSession(t)

	var seen []Message
	sess.OnMessage(func(m Message) {
		seen = append(seen, m)
		// Observers may read the session back without deadlocking.
		_ = sess.Len()
	})

	sess.AppendUser("hello")
	sess.Apply(&protocol.Event{Type: protocol.FrameTyping})
	sess.Apply(&protocol.Event{Type: protocol.FrameResponse, Text: "hi there"})

	require.Len(t, seen, 2)
	assert.Equal(t, RoleUser, seen[0].Role)
	assert.Equal(t, RoleAssistant, seen[1].Role)
}

func TestSession_OnPendingObserver(t *testing.T) {
	sess := newTestSession(t)

	var transitions []bool
	sess.OnPending(func(v bool) {
		transitions = append(transitions, v)
	})

	sess.AppendUser("q1")
	sess.Apply(&protocol.Event{Type: protocol.FrameTyping}) // already pending, no callback
	sess.Apply(&protocol.Event{Type: protocol.FrameResponse, Text: "a1"})

	assert.Equal(t, []bool{true, false}, transitions)
}

func TestSession_OnMessageOrderUnderConcurrentAppends(t *testing.T) {
	sess := newTestSession(t)

	var seen []string
	sess.OnMessage(func(m Message) {
		seen = append(seen, m.Content)
	})

	// Local appends and inbound events race from separate goroutines, as
	// they do between the input loop and the read loop.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			sess.AppendUser(fmt.Sprintf("user-%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			sess.Apply(&protocol.Event{Type: protocol.FrameResponse, Text: fmt.Sprintf("agent-%d", i)})
		}
	}()
	wg.Wait()

	snap := sess.Snapshot()
	require.Len(t, seen, len(snap.Messages))
	for i, m := range snap.Messages {
		assert.Equal(t, m.Content, seen[i])
	}
}

func TestSession_OnConnStateObserver(t *testing.T) {
	sess := newTestSession(t)

	var states []ConnState
	sess.OnConnState(func(s ConnState) {
		states = append(states, s)
	})

	sess.setConnState(StateConnecting)
	sess.setConnState(StateConnected)

	assert.Equal(t, []ConnState{StateConnecting, StateConnected}, states)
	assert.Equal(t, StateConnected, sess.ConnState())
}
