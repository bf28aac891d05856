// Package session holds the conversation state of one chat: the append-only
// turn log and the per-session flags.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/google/uuid"
)

// Turn is one entry in the conversation log.
type Turn struct {
	ID        string
	Message   aisdk.Message
	Visible   bool
	CreatedAt time.Time
}

// Role returns the role of the wrapped message.
func (t Turn) Role() string { return t.Message.Role }

// IsToolResult reports whether the turn carries a tool result.
func (t Turn) IsToolResult() bool { return t.Message.Role == aisdk.RoleTool }

// Session is the explicit conversation state passed through the loop.
// All methods are safe for concurrent use; the executor is the only writer
// while a loop runs.
type Session struct {
	ID string

	mu                 sync.RWMutex
	turns              []Turn
	precheckDone       bool
	precheckInProgress bool
	mediaInputID       int
	lastMediaDigest    string

	// confirmationsUsed holds the ids of user turns that already authorized
	// a mutating tool call.
	confirmationsUsed map[string]bool
}

// New creates an empty session.
func New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Restore creates a session from persisted turns. Confirmations given
// before the session was stored do not carry over.
func Restore(id string, turns []Turn, precheckDone bool) *Session {
	s := &Session{ID: id, turns: slices.Clone(turns), precheckDone: precheckDone}
	for _, t := range s.turns {
		if t.Message.Role == aisdk.RoleUser {
			s.markConfirmationUsed(t.ID)
		}
	}
	return s
}

// Append adds a message to the log. While a precheck is in progress every
// turn is internal regardless of visible.
func (s *Session) Append(msg aisdk.Message, visible bool) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.precheckInProgress {
		visible = false
	}
	t := Turn{
		ID:        uuid.NewString(),
		Message:   msg,
		Visible:   visible,
		CreatedAt: time.Now(),
	}
	s.turns = append(s.turns, t)
	return t
}

// AppendUser adds a visible user turn.
func (s *Session) AppendUser(msg aisdk.Message) Turn {
	msg.Role = aisdk.RoleUser
	return s.Append(msg, true)
}

// Turns returns a copy of the full log.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.turns)
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// VisibleTurns returns the turns that are rendered to the user.
func (s *Session) VisibleTurns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Turn
	for _, t := range s.turns {
		if t.Visible {
			out = append(out, t)
		}
	}
	return out
}

// ModelHistory returns every message, visible or not, in order, ready to be
// sent to the model after the system prompt.
func (s *Session) ModelHistory() []*aisdk.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*aisdk.Message, len(s.turns))
	for i := range s.turns {
		m := s.turns[i].Message
		out[i] = &m
	}
	return out
}

// LastVisibleUser returns the most recent visible user turn that is not a
// tool result.
func (s *Session) LastVisibleUser() (Turn, bool) {
	turns := s.RecentVisibleUser(1)
	if len(turns) == 0 {
		return Turn{}, false
	}
	return turns[0], true
}

// RecentVisibleUser returns up to n of the most recent visible user turns,
// newest first.
func (s *Session) RecentVisibleUser(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Turn
	for i := len(s.turns) - 1; i >= 0 && len(out) < n; i-- {
		t := s.turns[i]
		if t.Visible && t.Message.Role == aisdk.RoleUser {
			out = append(out, t)
		}
	}
	return out
}

// VisibleAssistantBetween reports whether a visible assistant turn with text
// sits between the turns with the given ids.
func (s *Session) VisibleAssistantBetween(olderID, newerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in := false
	for _, t := range s.turns {
		switch {
		case t.ID == olderID:
			in = true
		case t.ID == newerID:
			return false
		case in && t.Visible && t.Message.Role == aisdk.RoleAssistant && t.Message.TextContent() != "":
			return true
		}
	}
	return false
}

// MarkConfirmationUsed records that the given user turns authorized a
// mutating call and may not authorize another.
func (s *Session) MarkConfirmationUsed(turnIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range turnIDs {
		s.markConfirmationUsed(id)
	}
}

func (s *Session) markConfirmationUsed(id string) {
	if s.confirmationsUsed == nil {
		s.confirmationsUsed = make(map[string]bool)
	}
	s.confirmationsUsed[id] = true
}

// ConfirmationUsed reports whether the user turn already authorized a
// mutating call.
func (s *Session) ConfirmationUsed(turnID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmationsUsed[turnID]
}

// Clear truncates the log and resets every flag except the media-input id,
// which keeps increasing so stale recordings stay distinguishable.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.confirmationsUsed = nil
	s.precheckDone = false
	s.precheckInProgress = false
	s.lastMediaDigest = ""
	s.mediaInputID++
}

// PrecheckDone reports whether the startup precheck has run.
func (s *Session) PrecheckDone() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.precheckDone
}

// PrecheckInProgress reports whether appended turns are currently internal.
func (s *Session) PrecheckInProgress() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.precheckInProgress
}

// BeginPrecheck marks subsequent turns internal. It returns false if the
// precheck already ran or is running.
func (s *Session) BeginPrecheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.precheckDone || s.precheckInProgress {
		return false
	}
	s.precheckInProgress = true
	return true
}

// EndPrecheck records the precheck as done. When reveal is set the last
// assistant text turn is made visible so the user sees the proactive alert.
func (s *Session) EndPrecheck(reveal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.precheckInProgress = false
	s.precheckDone = true
	if !reveal {
		return
	}
	for i := len(s.turns) - 1; i >= 0; i-- {
		m := s.turns[i].Message
		if m.Role == aisdk.RoleAssistant && len(m.ToolCalls) == 0 && m.TextContent() != "" {
			s.turns[i].Visible = true
			return
		}
	}
}

// MediaInputID returns the current media-input id.
func (s *Session) MediaInputID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mediaInputID
}

// NextMediaInput advances the media-input id and returns the new value.
func (s *Session) NextMediaInput() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaInputID++
	return s.mediaInputID
}

// AcceptMedia registers a media input by content digest. A digest equal to
// the previous one is a replay of the same recording and is rejected; a new
// one advances the media-input id.
func (s *Session) AcceptMedia(digest string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if digest != "" && digest == s.lastMediaDigest {
		return s.mediaInputID, false
	}
	s.lastMediaDigest = digest
	s.mediaInputID++
	return s.mediaInputID, true
}
