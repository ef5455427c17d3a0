package sse

import (
	"encoding/json"
	"strings"

	"github.com/parleychat/parley"
)

// Recognized event names. Data lines with no preceding event field default
// to a token event.
const (
	eventToken    = "token"
	eventMetadata = "metadata"
	eventError    = "error"
	eventDone     = "done"
)

// Classify turns one frame into zero or one event. Rules:
//
//   - An "event:" line sets the pending event type. It is cleared after the
//     next data line and never persists into subsequent frames.
//   - A "data:" line supplies the payload; its event type is whatever the
//     frame set earlier, defaulting to "token". A single space after the
//     colon is consumed; further whitespace is part of the payload.
//   - Blank lines and unrecognized field prefixes are ignored.
//   - When a frame carries several data lines, the last one wins: a frame
//     yields at most one event, decided by its final data line.
//
// Malformed metadata payloads and unknown event names classify to nil.
// Returns nil when the frame yields no event.
func Classify(frame string) parley.Event {
	pending := ""
	var result parley.Event

	for _, raw := range strings.Split(frame, "\n") {
		line := strings.TrimSuffix(raw, "\r")
		if line == "" {
			continue
		}

		if value, ok := strings.CutPrefix(line, "event:"); ok {
			pending = strings.TrimSpace(trimLeadingSpace(value))
			continue
		}

		if value, ok := strings.CutPrefix(line, "data:"); ok {
			eventType := pending
			if eventType == "" {
				eventType = eventToken
			}
			pending = ""
			result = classifyData(eventType, trimLeadingSpace(value))
		}
	}

	return result
}

func classifyData(eventType, data string) parley.Event {
	switch eventType {
	case eventToken:
		return parley.EventToken{Text: data}
	case eventMetadata:
		var md parley.GenerationMetadata
		if err := json.Unmarshal([]byte(data), &md); err != nil {
			// Tolerance policy: malformed metadata is dropped, not surfaced.
			return nil
		}
		return parley.EventMetadata{
			TokensGenerated: md.TokensGenerated,
			ElapsedSeconds:  md.ElapsedSeconds,
		}
	case eventError:
		return parley.EventError{Message: data}
	case eventDone:
		// Payload ignored.
		return parley.EventDone{}
	default:
		return nil
	}
}

// trimLeadingSpace removes at most one space after the field colon, per the
// SSE field syntax.
func trimLeadingSpace(s string) string {
	if strings.HasPrefix(s, " ") {
		return s[1:]
	}
	return s
}
