package bubbletea

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/parleychat/parley"
	"github.com/parleychat/parley/chat"
	"github.com/parleychat/parley/goldmark"
)

var _ tea.Model = Model{}

const (
	sidebarWidth   = 24
	healthInterval = 5 * time.Second
	healthTimeout  = 3 * time.Second
)

// Model is the Bubble Tea model for the parley TUI. All conversation state
// lives in the chat.Machine; the model is a projection plus input handling.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript area. Exported for test access.
	Viewport viewport.Model

	machine  *chat.Machine
	health   HealthFunc
	renderer *goldmark.Renderer
	styles   Styles
	changes  <-chan struct{}

	modelLoaded bool
	healthKnown bool
	ready       bool
	width       int
}

// New creates a TUI Model. changes is the signal channel paired with the
// machine's on-change hook, from NewChangeSignal. health may be nil to
// disable backend probing.
func New(machine *chat.Machine, health HealthFunc, theme parley.Theme, changes <-chan struct{}) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:    ti,
		machine:  machine,
		health:   health,
		renderer: goldmark.New(theme),
		styles:   NewStyles(theme),
		changes:  changes,
	}
}

// Streaming reports whether a generation is in flight.
func (m Model) Streaming() bool { return m.machine.Streaming() }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, listenForChange(m.changes)}
	if m.health != nil {
		cmds = append(cmds, checkHealth(m.health))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg:
		var cmds []tea.Cmd
		m = m.refresh()
		if !m.machine.Streaming() && !m.Input.Focused() {
			cmds = append(cmds, m.Input.Focus())
		}
		cmds = append(cmds, listenForChange(m.changes))
		return m, tea.Batch(cmds...)

	case HealthMsg:
		m.healthKnown = msg.Err == nil
		m.modelLoaded = msg.ModelLoaded
		return m, tea.Tick(healthInterval, func(time.Time) tea.Msg {
			return healthTickMsg{}
		})

	case healthTickMsg:
		return m, checkHealth(m.health)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var main strings.Builder
	main.WriteString(m.Viewport.View())
	main.WriteString("\n")
	main.WriteString(m.statusLine())
	main.WriteString("\n")
	main.WriteString(m.Input.View())

	sidebar := m.renderSidebar(m.Viewport.Height + 2)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main.String())
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	mainWidth := msg.Width - sidebarWidth - 1
	if mainWidth < 20 {
		mainWidth = 20
	}
	// input 1, status 1, and the newlines between sections.
	vpHeight := msg.Height - 4
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(mainWidth, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = mainWidth
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = mainWidth
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.machine.Streaming() {
			m.machine.Stop()
			return m.refresh(), nil
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if m.machine.Streaming() {
			m.machine.Stop()
			return m.refresh(), nil
		}
		return m, nil

	case tea.KeyEnter:
		if m.machine.Streaming() {
			return m, nil
		}
		if m.healthKnown && !m.modelLoaded {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		m.Input.SetValue("")
		m.machine.Send(text)
		return m.refresh(), nil

	case tea.KeyCtrlR:
		if !m.machine.Streaming() {
			m.machine.Regenerate()
		}
		return m.refresh(), nil

	case tea.KeyCtrlN:
		m.machine.NewConversation()
		return m.refresh(), nil

	case tea.KeyCtrlJ:
		m.switchBy(1)
		return m.refresh(), nil

	case tea.KeyCtrlK:
		m.switchBy(-1)
		return m.refresh(), nil

	case tea.KeyCtrlX:
		m.machine.Delete(m.machine.ActiveID())
		return m.refresh(), nil
	}

	// Non-character keys also reach the viewport so PgUp/PgDn scroll the
	// transcript while typing.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// switchBy activates the conversation offset steps away in the sidebar
// ordering, wrapping around.
func (m Model) switchBy(offset int) {
	summaries := m.machine.Summaries()
	if len(summaries) < 2 {
		return
	}
	active := m.machine.ActiveID()
	for i, s := range summaries {
		if s.ID == active {
			next := (i + offset + len(summaries)) % len(summaries)
			m.machine.Switch(summaries[next].ID)
			return
		}
	}
	m.machine.Switch(summaries[0].ID)
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderConversation())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderConversation() string {
	c := m.machine.Active()
	width := m.Viewport.Width
	streaming := m.machine.Streaming()

	parts := make([]string, 0, len(c.Messages))
	for i, msg := range c.Messages {
		switch {
		case msg.Role == parley.RoleUser:
			content := m.styles.UserMsg.Render("> ") + msg.Content
			parts = append(parts, lipgloss.NewStyle().Width(width).Render(content))

		case msg.Content == "" && streaming && i == len(c.Messages)-1:
			parts = append(parts, m.styles.Muted.Render("..."))

		case strings.HasPrefix(msg.Content, "Error: "):
			parts = append(parts, m.styles.Error.Render(msg.Content))

		default:
			parts = append(parts, m.renderer.Render(msg.Content, width))
		}
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) statusLine() string {
	if m.machine.Streaming() {
		return m.styles.Muted.Render("Generating... Esc to stop")
	}

	var parts []string
	if md, ok := m.machine.Metadata(); ok {
		parts = append(parts, m.styles.Success.Render(
			fmt.Sprintf("%d tokens in %.2fs", md.TokensGenerated, md.ElapsedSeconds)))
	}
	if m.healthKnown && !m.modelLoaded {
		parts = append(parts, m.styles.Error.Render("model not loaded"))
	}
	parts = append(parts, m.styles.Muted.Render(
		"Enter send · ^R regen · ^N new · ^J/^K switch · ^X delete · ^C quit"))
	return strings.Join(parts, "  ")
}

func listenForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return StateChangedMsg{}
	}
}

func checkHealth(health HealthFunc) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		loaded, err := health(ctx)
		return HealthMsg{ModelLoaded: loaded, Err: err}
	}
}
