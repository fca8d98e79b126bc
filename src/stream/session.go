package stream

import (
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// State of a streaming session
type State int

const (
	StateValidating State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------

// Session is one client connection with its own range and cursor. Only the
// driver running it mutates it; Info may be read from other goroutines.
type Session struct {
	ID        string
	Remote    string
	CreatedAt time.Time

	mu          sync.RWMutex
	state       State
	params      Params
	cursor      civil.Date
	framesSent  int
	closeReason string
}

// SessionInfo is a point-in-time copy of a session.
type SessionInfo struct {
	ID          string `json:"id"`
	Remote      string `json:"remote,omitempty"`
	State       string `json:"state"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Interval    int    `json:"interval,omitempty"`
	Cursor      string `json:"cursor,omitempty"`
	FramesSent  int    `json:"frames_sent"`
	CloseReason string `json:"close_reason,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// -----------------------------------------------------------------------------

func NewSession(remote string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Remote:    remote,
		CreatedAt: time.Now().UTC(),
		state:     StateValidating,
	}
}

// -----------------------------------------------------------------------------

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// -----------------------------------------------------------------------------

func (s *Session) CloseReason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closeReason
}

// -----------------------------------------------------------------------------

func (s *Session) FramesSent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.framesSent
}

// -----------------------------------------------------------------------------

func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := SessionInfo{
		ID:          s.ID,
		Remote:      s.Remote,
		State:       s.state.String(),
		FramesSent:  s.framesSent,
		CloseReason: s.closeReason,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
	if s.state != StateValidating && s.params.Interval > 0 {
		info.Start = s.params.Start.String()
		info.End = s.params.End.String()
		info.Interval = s.params.Interval
		info.Cursor = s.cursor.String()
	}
	return info
}

// -----------------------------------------------------------------------------

func (s *Session) startStreaming(p Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
	s.cursor = p.Start
	s.state = StateStreaming
}

func (s *Session) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.cursor.AddDays(1)
}

func (s *Session) frameSent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesSent++
}

// close moves to Closed once; the first reason wins.
func (s *Session) close(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	s.closeReason = reason
	return true
}
