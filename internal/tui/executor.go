package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/imgfind/internal/session"
)

// runMsg carries session work into Update, which makes the bubbletea event
// loop the session's executor.
type runMsg struct {
	fn func()
}

// programExecutor forwards posted functions to the program in order.
// Sending happens on a separate loop because Program.Send blocks until
// Update receives the message, and posts may originate inside Update.
type programExecutor struct {
	loop  *session.Loop
	once  sync.Once
	ready chan struct{}
	send  func(tea.Msg)
}

func newProgramExecutor() *programExecutor {
	return &programExecutor{
		loop:  session.NewLoop(),
		ready: make(chan struct{}),
	}
}

// attach starts delivery. Posts made before attach are held until then.
func (e *programExecutor) attach(send func(tea.Msg)) {
	e.once.Do(func() {
		e.send = send
		close(e.ready)
	})
}

func (e *programExecutor) Post(fn func()) {
	e.loop.Post(func() {
		<-e.ready
		e.send(runMsg{fn: fn})
	})
}

// close drops anything not yet delivered.
func (e *programExecutor) close() {
	e.attach(func(tea.Msg) {})
	e.loop.Close()
}
