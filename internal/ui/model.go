// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state, key bindings and rendering
package ui

import (
	"fmt"
	"strings"

	"github.com/Sendspin/soundbuffer-go/internal/remote"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	// seekSeconds is how far left/right moves the cursor
	seekSeconds = 5
	// volumeStep is in hundredths of a decibel
	volumeStep = 300
	volumeMin  = -10000
)

// Model represents the TUI state
type Model struct {
	controls *Controls

	// File
	title  string
	format string

	// Playback
	state       string
	position    int
	total       int
	sampleRate  int
	volume      int
	loop        bool
	loopCount   int
	loopCounter int

	// Remote
	remoteAddr string
	lastEvent  string
	lastErr    string

	showDebug bool

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case EventMsg:
		m.lastEvent = describeEvent(msg.Event)
	case ErrMsg:
		if msg.Err != nil {
			m.lastErr = msg.Err.Error()
		}
	case RemoteMsg:
		m.remoteAddr = msg.Addr
	case DoneMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderPlayback()
	s += m.renderControls()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	title := m.title
	if title == "" {
		title = "(no file)"
	}
	return fmt.Sprintf(`┌─ Soundbuffer Player ─────────────────────────────────┐
│ File:   %-44s │
│ Format: %-44s │
├──────────────────────────────────────────────────────┤
`, truncate(title, 44), truncate(m.format, 44))
}

func (m Model) renderPlayback() string {
	progress := renderBar(m.position, m.total, 30)
	return fmt.Sprintf("│ State:  %-44s │\n"+
		"│ [%s] %s / %s%-7s │\n",
		m.state, progress, clock(m.position, m.sampleRate), clock(m.total, m.sampleRate), "")
}

func (m Model) renderControls() string {
	loop := "off"
	if m.loop {
		if m.loopCount == 0 {
			loop = fmt.Sprintf("on (pass %d, endless)", m.loopCounter)
		} else {
			loop = fmt.Sprintf("on (pass %d of %d)", m.loopCounter, m.loopCount)
		}
	}

	volumeBar := renderBar(m.volume-volumeMin, -volumeMin, 10)

	s := fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %6.1f dB%-24s │\n"+
		"│ Loop:   %-44s │\n",
		volumeBar, float64(m.volume)/100, "", truncate(loop, 44))

	if m.remoteAddr != "" {
		s += fmt.Sprintf("│ Remote: %-44s │\n", truncate(m.remoteAddr, 44))
	}
	if m.lastEvent != "" {
		s += fmt.Sprintf("│ Event:  %-44s │\n", truncate(m.lastEvent, 44))
	}
	if m.lastErr != "" {
		s += fmt.Sprintf("│ Error:  %-44s │\n", truncate(m.lastErr, 44))
	}
	return s
}

func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Play/Pause s:Stop r:Repeat l:Loop ←/→:Seek     │
│ ↑/↓:Volume  d:Debug  q:Quit                          │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Position: %-10d Total: %-10d              │
│   Rate: %-6d Window: %dx%-20d │
`, m.position, m.total, m.sampleRate, m.width, m.height)
}

// handleKey maps keys to player commands
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case " ", "space":
		if m.state == "playing" || m.state == "playing-looping" {
			m.controls.send(remote.Command{Action: remote.ActionPause})
		} else {
			m.controls.send(remote.Command{Action: remote.ActionPlay})
		}
	case "s":
		m.controls.send(remote.Command{Action: remote.ActionStop})
	case "r":
		m.controls.send(remote.Command{Action: remote.ActionRepeat})
	case "l":
		m.loop = !m.loop
		m.controls.send(remote.Command{Action: remote.ActionLoop, Enabled: m.loop})
	case "left":
		m.position = max(m.position-seekSeconds*m.sampleRate, 0)
		m.controls.send(remote.Command{Action: remote.ActionSeek, Value: m.position})
	case "right":
		if m.total > 0 {
			m.position = min(m.position+seekSeconds*m.sampleRate, m.total-1)
		}
		m.controls.send(remote.Command{Action: remote.ActionSeek, Value: m.position})
	case "up":
		m.volume = min(m.volume+volumeStep, 0)
		m.controls.send(remote.Command{Action: remote.ActionVolume, Value: m.volume})
	case "down":
		m.volume = max(m.volume-volumeStep, volumeMin)
		m.controls.send(remote.Command{Action: remote.ActionVolume, Value: m.volume})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	st := msg.Status
	if st.Title != "" {
		m.title = st.Title
	}
	if st.Format != "" {
		m.format = st.Format
	}
	if st.State != "" {
		m.state = st.State
	}
	if st.SampleRate != 0 {
		m.sampleRate = st.SampleRate
	}
	m.position = st.Position
	m.total = st.Total
	m.volume = st.Volume
	m.loop = st.Loop
	m.loopCount = st.LoopCount
	m.loopCounter = st.LoopCounter
	m.lastErr = ""
}

// StatusMsg carries a player snapshot
type StatusMsg struct {
	remote.Status
}

// EventMsg carries a wait result the player reported
type EventMsg struct {
	remote.Event
}

// ErrMsg reports a failed command
type ErrMsg struct {
	Err error
}

// RemoteMsg reports the remote control address once listening
type RemoteMsg struct {
	Addr string
}

// DoneMsg ends the program when playback is over
type DoneMsg struct{}

func describeEvent(ev remote.Event) string {
	if ev.Kind == "user" {
		return fmt.Sprintf("marker %d", ev.Index)
	}
	return ev.Kind
}

// Utility functions
func renderBar(value, total, width int) string {
	filled := 0
	if total > 0 {
		filled = (value * width) / total
	}
	filled = min(filled, width)
	filled = max(filled, 0)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

// clock formats a frame count as m:ss
func clock(frames, rate int) string {
	if rate <= 0 {
		return "-:--"
	}
	secs := frames / rate
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
