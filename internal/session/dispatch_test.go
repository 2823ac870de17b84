// ABOUTME: Tests for the frame dispatcher: bad frames are dropped, good ones applied in order.
// ABOUTME: Verifies session state is untouched by malformed or unknown frames.

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_AppliesFramesInOrder(t *testing.T) {
	sess := newTestSession(t)
	d := NewDispatcher(sess, nil)

	d.HandleFrame([]byte(`{"type":"system","message":"welcome"}`))
	d.HandleFrame([]byte(`{"type":"typing","message":"Agent is thinking..."}`))
	d.HandleFrame([]byte(`{"type":"response","message":"Found 1 listings"}`))

	snap := sess.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "welcome", snap.Messages[0].Content)
	assert.Equal(t, "Found 1 listings", snap.Messages[1].Content)
	assert.False(t, snap.PendingResponse)
}

func TestDispatcher_DropsMalformedFrame(t *testing.T) {
	sess := newTestSession(t)
	sess.AppendUser("hello")
	d := NewDispatcher(sess, nil)

	before := sess.Snapshot()
	d.HandleFrame([]byte("not json"))
	d.HandleFrame([]byte(`{"message":"no type"}`))
	after := sess.Snapshot()

	assert.Equal(t, before.Messages, after.Messages)
	assert.Equal(t, before.PendingResponse, after.PendingResponse)
}

func TestDispatcher_DropsUnknownFrameType(t *testing.T) {
	sess := newTestSession(t)
	d := NewDispatcher(sess, nil)

	d.HandleFrame([]byte(`{"type":"heartbeat","message":"ping"}`))

	assert.Zero(t, sess.Len())
	assert.False(t, sess.Pending())
}

func TestDispatcher_RecoversAfterBadFrame(t *testing.T) {
	sess := newTestSession(t)
	d := NewDispatcher(sess, nil)

	d.HandleFrame([]byte("garbage"))
	d.HandleFrame([]byte(`{"type":"response","message":"still alive"}`))

	require.Equal(t, 1, sess.Len())
	assert.Equal(t, "still alive", sess.Snapshot().Messages[0].Content)
}
