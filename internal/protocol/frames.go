// ABOUTME: Wire types and codec for the vehicle-agent WebSocket protocol.
// ABOUTME: Decodes inbound frames into typed events and encodes outbound user messages.

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedFrame indicates an inbound frame that could not be parsed.
// The frame must be discarded; session state is left unchanged.
var ErrMalformedFrame = errors.New("malformed frame")

// ErrUnknownFrameType indicates a well-formed frame with a type outside the
// documented set. Unknown types are discarded for forward compatibility.
var ErrUnknownFrameType = errors.New("unknown frame type")

// ErrEmptyMessage indicates an outbound message that is empty after trimming.
var ErrEmptyMessage = errors.New("message is empty")

// FrameType discriminates inbound frames.
type FrameType string

const (
	FrameSystem   FrameType = "system"
	FrameTyping   FrameType = "typing"
	FrameResponse FrameType = "response"
	FrameError    FrameType = "error"
)

// Terminal reports whether the frame type ends a pending request cycle.
func (t FrameType) Terminal() bool {
	return t == FrameResponse || t == FrameError
}

// VehicleListing is a read-only projection of one server-reported listing.
// Prices are LKR with no minor units. Listings carry no identity beyond
// display position and are not deduplicated by the client.
type VehicleListing struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Year      int     `json:"year,omitempty"`
	Make      string  `json:"make,omitempty"`
	Model     string  `json:"model,omitempty"`
	Mileage   string  `json:"mileage,omitempty"`
	Condition string  `json:"condition,omitempty"`
	Location  string  `json:"location,omitempty"`
	URL       string  `json:"url,omitempty"`
	Source    string  `json:"source"`
	ImageURL  string  `json:"image_url,omitempty"`
}

// ModelStats holds aggregate price statistics for one vehicle model.
type ModelStats struct {
	Count    int      `json:"count"`
	AvgPrice float64  `json:"avg_price"`
	MinPrice float64  `json:"min_price"`
	MaxPrice float64  `json:"max_price"`
	Sources  []string `json:"sources,omitempty"`
}

// Comparison maps vehicle-model labels to aggregate statistics.
type Comparison struct {
	Summary map[string]ModelStats `json:"summary"`
}

// HistoryEntry is one conversation turn in the shape the backend's
// synchronous query endpoint expects.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Event is the decoded form of an inbound frame. Vehicles and Comparison are
// never nil after a successful decode.
type Event struct {
	Type       FrameType
	Text       string
	Vehicles   []VehicleListing
	Comparison map[string]ModelStats
	Intent     string
}

// inboundFrame mirrors the server's JSON frame. Fields outside this shape
// are ignored.
type inboundFrame struct {
	Type       string           `json:"type"`
	Message    string           `json:"message"`
	Vehicles   []VehicleListing `json:"vehicles"`
	Comparison *Comparison      `json:"comparison"`
	Intent     string           `json:"intent"`
}

// outboundFrame is the single client-to-server message shape.
type outboundFrame struct {
	Message string `json:"message"`
}

// DecodeFrame parses a raw inbound frame into an Event.
//
// Returns ErrMalformedFrame for payloads that are not valid JSON objects or
// lack a type, and ErrUnknownFrameType for types outside the documented set.
// Callers discard the frame in both cases.
func DecodeFrame(raw []byte) (*Event, error) {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	typ := FrameType(f.Type)
	switch typ {
	case FrameSystem, FrameTyping, FrameResponse, FrameError:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, f.Type)
	}

	ev := &Event{
		Type:     typ,
		Text:     f.Message,
		Vehicles: f.Vehicles,
		Intent:   f.Intent,
	}
	if ev.Vehicles == nil {
		ev.Vehicles = []VehicleListing{}
	}
	if f.Comparison != nil {
		ev.Comparison = f.Comparison.Summary
	}
	if ev.Comparison == nil {
		ev.Comparison = map[string]ModelStats{}
	}
	return ev, nil
}

// EncodeOutbound wraps user text into the outbound frame. The text is
// trimmed; empty input fails with ErrEmptyMessage and nothing is sent.
func EncodeOutbound(userText string) ([]byte, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, ErrEmptyMessage
	}
	return json.Marshal(outboundFrame{Message: userText})
}
