package parley_test

import (
	"testing"

	"github.com/parleychat/parley"
	"github.com/stretchr/testify/assert"
)

func TestCallbacks_NilFieldsAreSkipped(t *testing.T) {
	t.Parallel()

	var cb parley.Callbacks
	assert.NotPanics(t, func() {
		cb.Token("hello")
		cb.Metadata(parley.GenerationMetadata{TokensGenerated: 1})
		cb.Error("boom")
		cb.Done()
	})
}

func TestCallbacks_Dispatch(t *testing.T) {
	t.Parallel()

	var got []string
	cb := parley.Callbacks{
		OnToken:    func(s string) { got = append(got, "token:"+s) },
		OnMetadata: func(md parley.GenerationMetadata) { got = append(got, "metadata") },
		OnError:    func(s string) { got = append(got, "error:"+s) },
		OnDone:     func() { got = append(got, "done") },
	}

	cb.Token("a")
	cb.Metadata(parley.GenerationMetadata{})
	cb.Error("x")
	cb.Done()

	assert.Equal(t, []string{"token:a", "metadata", "error:x", "done"}, got)
}
