package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/DiagScan/internal/common"
)

// Messages delivered from the controller through ProgramSink
type beforeStartMsg struct{}

type successMsg struct {
	result *common.PredictionResult
}

type failureMsg struct {
	message string
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ProgramSink turns controller callbacks into tea messages. Callbacks never
// block on the program loop, so the controller may be driven from Update.
type ProgramSink struct {
	events chan tea.Msg
}

// NewProgramSink creates a sink buffering up to size pending events
func NewProgramSink(size int) *ProgramSink {
	if size < 4 {
		size = 4
	}
	return &ProgramSink{events: make(chan tea.Msg, size)}
}

// OnBeforeStart implements controller.Sink
func (s *ProgramSink) OnBeforeStart() {
	s.events <- beforeStartMsg{}
}

// OnSuccess implements controller.Sink
func (s *ProgramSink) OnSuccess(result *common.PredictionResult) {
	s.events <- successMsg{result: result}
}

// OnFailure implements controller.Sink
func (s *ProgramSink) OnFailure(message string) {
	s.events <- failureMsg{message: message}
}

// Next returns a command that waits for the next controller event
func (s *ProgramSink) Next() tea.Cmd {
	return func() tea.Msg {
		return <-s.events
	}
}
