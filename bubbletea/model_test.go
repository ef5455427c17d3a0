package bubbletea_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/parleychat/parley"
	bt "github.com/parleychat/parley/bubbletea"
	"github.com/parleychat/parley/chat"
	"github.com/parleychat/parley/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture couples a model with the machine and captured stream sessions
// behind it.
type fixture struct {
	model    bt.Model
	machine  *chat.Machine
	sessions []parley.Callbacks
}

func newFixture(t *testing.T, health bt.HealthFunc) *fixture {
	t.Helper()
	f := &fixture{}
	streamer := &mock.Streamer{
		StreamFn: func(ctx context.Context, conversationID, message string, cb parley.Callbacks) parley.Handle {
			f.sessions = append(f.sessions, cb)
			return &mock.Handle{}
		},
	}
	changes, notify := bt.NewChangeSignal()
	f.machine = chat.New(streamer, chat.WithOnChange(notify))
	f.model = bt.New(f.machine, health, parley.DefaultTheme(), changes)
	return f
}

// initModel sends a WindowSizeMsg so the viewport exists.
func initModel(t *testing.T, f *fixture) bt.Model {
	t.Helper()
	return updateModel(t, f.model, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

func TestNew(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	assert.False(t, f.model.Streaming())
}

func TestModel_WindowSize(t *testing.T) {
	t.Parallel()

	t.Run("initializes viewport", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		assert.NotEmpty(t, m.View())
		assert.Equal(t, 55, m.Viewport.Width) // 80 - sidebar(24) - margin(1)
		assert.Equal(t, 20, m.Viewport.Height)
	})

	t.Run("resize updates dimensions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
		assert.Equal(t, 95, m.Viewport.Width)
		assert.Equal(t, 36, m.Viewport.Height)
	})

	t.Run("renders placeholder before first size", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		assert.Equal(t, "Initializing...", f.model.View())
	})
}

func TestModel_Send(t *testing.T) {
	t.Parallel()

	t.Run("enter sends the input text", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("hello")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		assert.True(t, m.Streaming())
		assert.Empty(t, m.Input.Value())
		assert.Len(t, f.sessions, 1)
		assert.Contains(t, m.View(), "hello")
	})

	t.Run("blank enter is a no-op", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("   ")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.False(t, m.Streaming())
		assert.Empty(t, f.sessions)
	})

	t.Run("enter while streaming is a no-op", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("first")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		m.Input.SetValue("second")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.Len(t, f.sessions, 1)
	})

	t.Run("enter while the model is not loaded is a no-op", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m = updateModel(t, m, bt.HealthMsg{ModelLoaded: false})
		m.Input.SetValue("hello")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.False(t, m.Streaming())
		assert.Empty(t, f.sessions)
	})
}

func TestModel_Stop(t *testing.T) {
	t.Parallel()

	t.Run("esc stops streaming", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("hello")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		require.True(t, m.Streaming())

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		assert.False(t, m.Streaming())
	})

	t.Run("ctrl+c stops streaming instead of quitting", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("hello")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		model := updated.(bt.Model)
		assert.False(t, model.Streaming())
		assert.Nil(t, cmd)
	})

	t.Run("ctrl+c quits when idle", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})
}

func TestModel_Conversations(t *testing.T) {
	t.Parallel()

	t.Run("ctrl+n opens a fresh conversation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("hello")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		f.sessions[0].Done()
		before := f.machine.ActiveID()

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
		assert.NotEqual(t, before, f.machine.ActiveID())
		assert.Empty(t, f.machine.Active().Messages)
	})

	t.Run("ctrl+j cycles to the next conversation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("first")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		f.sessions[0].Done()
		first := f.machine.ActiveID()
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
		m.Input.SetValue("second")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		f.sessions[1].Done()
		second := f.machine.ActiveID()

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlJ})
		assert.Equal(t, first, f.machine.ActiveID())
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlK})
		assert.Equal(t, second, f.machine.ActiveID())
	})

	t.Run("ctrl+x deletes the active conversation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("doomed")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		f.sessions[0].Done()
		id := f.machine.ActiveID()

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
		assert.NotContains(t, f.machine.Conversations(), id)
	})

	t.Run("sidebar lists conversation titles", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m.Input.SetValue("what is go")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		f.sessions[0].Done()
		m = updateModel(t, m, bt.StateChangedMsg{})

		assert.Contains(t, m.View(), "what is go")
	})
}

func TestModel_StateChanged(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	m := initModel(t, f)
	m.Input.SetValue("hi")
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	f.sessions[0].Token("streamed reply")
	f.sessions[0].Done()

	updated, cmd := m.Update(bt.StateChangedMsg{})
	m = updated.(bt.Model)
	assert.Contains(t, m.View(), "streamed reply")
	assert.NotNil(t, cmd, "must keep listening for changes")
}

func TestModel_Health(t *testing.T) {
	t.Parallel()

	t.Run("not loaded shows a warning", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m = updateModel(t, m, bt.HealthMsg{ModelLoaded: false})
		assert.Contains(t, m.View(), "model not loaded")
	})

	t.Run("loaded shows no warning", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		m := initModel(t, f)
		m = updateModel(t, m, bt.HealthMsg{ModelLoaded: true})
		assert.NotContains(t, m.View(), "model not loaded")
	})
}

func TestModel_ErrorMessageStyling(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	m := initModel(t, f)
	m.Input.SetValue("hi")
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	f.sessions[0].Error("backend down")
	f.sessions[0].Done()
	m = updateModel(t, m, bt.StateChangedMsg{})

	assert.Contains(t, m.View(), "Error: backend down")
	assert.False(t, m.Streaming())
}

func TestModel_Teatest(t *testing.T) {
	t.Parallel()

	t.Run("full generation cycle", func(t *testing.T) {
		t.Parallel()
		streamer := &mock.Streamer{
			StreamFn: func(ctx context.Context, conversationID, message string, cb parley.Callbacks) parley.Handle {
				go func() {
					cb.Token("Hello from the model!")
					cb.Metadata(parley.GenerationMetadata{TokensGenerated: 4, ElapsedSeconds: 0.1})
					cb.Done()
				}()
				return &mock.Handle{}
			},
		}
		changes, notify := bt.NewChangeSignal()
		machine := chat.New(streamer, chat.WithOnChange(notify))
		m := bt.New(machine, nil, parley.DefaultTheme(), changes)

		tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))
		tm.Type("hi")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("Hello from the model!")) && !machine.Streaming()
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)
		assert.False(t, final.Streaming())

		c := machine.Active()
		require.Len(t, c.Messages, 2)
		assert.True(t, strings.HasPrefix(c.Messages[1].Content, "Hello"))
	})
}
