package parley_test

import (
	"testing"

	"github.com/parleychat/parley"
	"github.com/stretchr/testify/assert"
)

func TestEventToken_ImplementsEvent(t *testing.T) {
	t.Parallel()
	var e parley.Event = parley.EventToken{Text: "hello"}
	assert.NotNil(t, e)
}

func TestEventToken_EmptyTextIsValid(t *testing.T) {
	t.Parallel()
	var e parley.Event = parley.EventToken{}
	assert.NotNil(t, e)
}

func TestEventMetadata_ImplementsEvent(t *testing.T) {
	t.Parallel()
	var e parley.Event = parley.EventMetadata{TokensGenerated: 42, ElapsedSeconds: 1.5}
	assert.NotNil(t, e)
}

func TestEventError_ImplementsEvent(t *testing.T) {
	t.Parallel()
	var e parley.Event = parley.EventError{Message: "generation failed"}
	assert.NotNil(t, e)
}

func TestEventDone_ImplementsEvent(t *testing.T) {
	t.Parallel()
	var e parley.Event = parley.EventDone{}
	assert.NotNil(t, e)
}

func TestEventTypeSwitch_Exhaustive(t *testing.T) {
	t.Parallel()
	events := []parley.Event{
		parley.EventToken{Text: "hello"},
		parley.EventMetadata{TokensGenerated: 1, ElapsedSeconds: 0.1},
		parley.EventError{Message: "boom"},
		parley.EventDone{},
	}
	assert.Len(t, events, 4, "update slice and switch when adding new Event types")
	for _, e := range events {
		switch e.(type) {
		case parley.EventToken:
		case parley.EventMetadata:
		case parley.EventError:
		case parley.EventDone:
		default:
			t.Fatalf("unexpected event type: %T", e)
		}
	}
}
