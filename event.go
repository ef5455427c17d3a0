package parley

// Event is a sealed interface representing a classified stream event.
// Events are purely semantic. Transport failures come from the session's
// error channel, not from events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventToken carries one generated text fragment, possibly empty.
type EventToken struct {
	Text string
}

func (EventToken) event() {}

// EventMetadata carries generation statistics for the current turn.
type EventMetadata struct {
	TokensGenerated int
	ElapsedSeconds  float64
}

func (EventMetadata) event() {}

// EventError carries an application-level generation error from the server.
type EventError struct {
	Message string
}

func (EventError) event() {}

// EventDone signals normal completion of the stream.
type EventDone struct{}

func (EventDone) event() {}

// Interface compliance checks.
var (
	_ Event = EventToken{}
	_ Event = EventMetadata{}
	_ Event = EventError{}
	_ Event = EventDone{}
)
