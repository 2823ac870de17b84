// Package protocol defines the wire shapes exchanged with the
// vehicle-market agent service and the codec between raw JSON frames and
// typed events.
//
// Inbound frames are JSON objects discriminated by "type":
//
//	{"type": "system",   "message": "..."}
//	{"type": "typing"}
//	{"type": "response", "message": "...", "vehicles": [...], "comparison": {"summary": {...}}, "intent": "..."}
//	{"type": "error",    "message": "..."}
//
// The single outbound shape is {"message": "..."}. Unknown fields are
// ignored and unknown types are reported as ErrUnknownFrameType so callers
// can discard them without disturbing session state.
package protocol
