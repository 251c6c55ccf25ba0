package selection

import (
	"sync"

	"github.com/yildizm/DiagScan/internal/common"
)

// Reader is the read-only view of the selection handed to the controller
type Reader interface {
	Current() *common.InputArtifact
}

// State holds zero or one accepted artifact
type State struct {
	mu       sync.RWMutex
	artifact *common.InputArtifact
}

// New creates an empty selection
func New() *State {
	return &State{}
}

// Accept replaces the current artifact
func (s *State) Accept(artifact *common.InputArtifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = artifact
}

// Clear empties the selection
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = nil
}

// Current returns the selected artifact, or nil
func (s *State) Current() *common.InputArtifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact
}

// HasSelection reports whether an artifact is selected
func (s *State) HasSelection() bool {
	return s.Current() != nil
}
