package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/virtkeypad/internal/display"
	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/muurk/virtkeypad/internal/transport"
)

// sendTimeout bounds one tap when the transport's loop is busy
const sendTimeout = 2 * time.Second

// Tapper sends one keypad click. *transport.Transport implements it.
type Tapper interface {
	Tap(ctx context.Context, code byte) error
}

// tapDoneMsg reports the outcome of a tap
type tapDoneMsg struct {
	code byte
	err  error
}

// KeypadModel is the interactive virtual keypad: the mount's LCD on top,
// link status below, terminal keys mapped to keypad buttons.
type KeypadModel struct {
	URL        string
	screen     *display.Screen
	tapper     Tapper
	state      transport.State
	lastKey    string
	lastErr    error
	showPixels bool

	Width  int
	Height int

	keys keypadKeyMap
	Help help.Model
}

// NewKeypadModel creates the keypad model
func NewKeypadModel(url string, screen *display.Screen, tapper Tapper, showPixels bool) KeypadModel {
	width, height := GetTerminalSize()
	return KeypadModel{
		URL:        url,
		screen:     screen,
		tapper:     tapper,
		state:      transport.StateIdle,
		showPixels: showPixels,
		Width:      width,
		Height:     height,
		keys:       newKeypadKeyMap(),
		Help:       help.New(),
	}
}

// Init implements tea.Model
func (m KeypadModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m KeypadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case ScreenChangedMsg:
		return m, nil

	case StateMsg:
		m.state = msg.State
		if msg.State == transport.StateOpen {
			m.lastErr = nil
		}
		return m, nil

	case ErrorMsg:
		m.lastErr = msg.Err
		return m, nil

	case tapDoneMsg:
		if msg.err != nil {
			m.lastErr = fmt.Errorf("send %s: %w", protocol.ButtonName(msg.code), msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.Help.ShowAll = !m.Help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Pixels):
			m.showPixels = !m.showPixels
			return m, nil
		}

		if code, ok := m.keys.button(msg.String()); ok {
			m.lastKey = protocol.ButtonName(code)
			return m, m.tap(code)
		}
	}
	return m, nil
}

func (m KeypadModel) tap(code byte) tea.Cmd {
	tapper := m.tapper
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return tapDoneMsg{code: code, err: tapper.Tap(ctx, code)}
	}
}

// View implements tea.Model
func (m KeypadModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderTitleStyle.Render("VIRTUAL KEYPAD"))
	b.WriteString(HeaderCommandStyle.Render(m.URL))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().PaddingLeft(DefaultPadding).Render(RenderLCD(m.screen)))
	b.WriteString("\n")

	if m.showPixels {
		if PixelsFit(m.Width) {
			b.WriteString(RenderPixels(m.screen))
		} else {
			b.WriteString(StatusKeyStyle.Render(fmt.Sprintf("  pixel view needs %d columns", display.Width+2)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if m.lastErr != nil {
		b.WriteString(ErrorMessageStyle.Render("  " + m.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().PaddingLeft(DefaultPadding).Render(m.Help.View(m.keys)))

	return b.String()
}

func (m KeypadModel) statusLine() string {
	color := MutedColor
	switch m.state {
	case transport.StateOpen:
		color = SuccessColor
	case transport.StateConnecting:
		color = WarningColor
	case transport.StateClosed:
		color = ErrorColor
	}

	parts := []string{
		lipgloss.NewStyle().Foreground(color).Render(StateMarker + " " + m.state.String()),
	}
	if m.lastKey != "" {
		parts = append(parts, StatusKeyStyle.Render(KeyPressedMarker+" "+m.lastKey))
	}
	return "  " + strings.Join(parts, "   ")
}

// State returns the last link state the model saw
func (m KeypadModel) State() transport.State { return m.state }

// RunKeypad runs the keypad TUI until the user quits. The bridge's
// forwarding loop runs for as long as the program does.
func RunKeypad(ctx context.Context, model KeypadModel, bridge *Bridge) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	go bridge.Run(ctx, p.Send)

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
