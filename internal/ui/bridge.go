package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/virtkeypad/internal/display"
	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/muurk/virtkeypad/internal/transport"
)

// ScreenChangedMsg tells the model to redraw the LCD
type ScreenChangedMsg struct{}

// StateMsg carries a transport state change
type StateMsg struct {
	State transport.State
}

// ErrorMsg carries a transport error
type ErrorMsg struct {
	Err error
}

// Bridge connects transport callbacks to a running tea.Program. The
// callbacks run on the transport's event loop and never block: screen
// changes are coalesced into one pending redraw, and state and error
// messages are dropped when the UI falls too far behind.
type Bridge struct {
	screen  *display.Screen
	changed chan struct{}
	msgs    chan tea.Msg
}

// NewBridge returns a bridge that applies commands to screen
func NewBridge(screen *display.Screen) *Bridge {
	return &Bridge{
		screen:  screen,
		changed: make(chan struct{}, 1),
		msgs:    make(chan tea.Msg, 32),
	}
}

// Screen returns the screen commands are applied to
func (b *Bridge) Screen() *display.Screen { return b.screen }

// OnCommand applies a display command; use with transport.WithCommandHandler
func (b *Bridge) OnCommand(cmd protocol.Command) {
	if b.screen.Apply(cmd) {
		b.notify()
	}
}

// OnState shows the placeholder while the link is down; use with
// transport.WithStateHandler
func (b *Bridge) OnState(s transport.State) {
	if s == transport.StateClosed {
		b.screen.ShowPlaceholder()
		b.notify()
	}
	b.post(StateMsg{State: s})
}

// OnError forwards transport errors; use with transport.WithErrorHandler
func (b *Bridge) OnError(err error) {
	b.post(ErrorMsg{Err: err})
}

// Options returns the transport options that route into the bridge
func (b *Bridge) Options() []transport.Option {
	return []transport.Option{
		transport.WithCommandHandler(b.OnCommand),
		transport.WithStateHandler(b.OnState),
		transport.WithErrorHandler(b.OnError),
	}
}

// Run forwards pending messages to send until ctx is done. send is usually
// (*tea.Program).Send.
func (b *Bridge) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.changed:
			send(ScreenChangedMsg{})
		case msg := <-b.msgs:
			send(msg)
		}
	}
}

func (b *Bridge) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

func (b *Bridge) post(msg tea.Msg) {
	select {
	case b.msgs <- msg:
	default:
	}
}
