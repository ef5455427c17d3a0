package parley

// Outcome is the terminal result of a stream session. Cancellation is a
// distinct outcome, never surfaced through the error channel.
type Outcome string

const (
	// OutcomeCompleted means the stream was consumed to its end. An
	// application-level error event still completes the stream.
	OutcomeCompleted Outcome = "completed"
	// OutcomeCancelled means the caller cancelled the session.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeFailed means a transport or protocol failure ended the session.
	OutcomeFailed Outcome = "failed"
)
