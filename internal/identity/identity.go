// ABOUTME: Generates the stable per-session client identifier.
// ABOUTME: Timestamp plus random suffix; unique enough within a run, not a security boundary.

// Package identity produces the client identifier that binds a session's
// connection to server-side conversational context.
package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewClientID returns an identifier like "client-1756347300123-9f2c41aa".
//
// Generated once at session start and held for the session's lifetime. A
// millisecond timestamp plus a random suffix makes collisions between two
// sessions started in the same millisecond vanishingly unlikely, which is
// the accepted risk here; cryptographic uniqueness is not required.
func NewClientID() string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("client-%d-%s", time.Now().UnixMilli(), suffix)
}
