package sommelier

import (
	"github.com/google/uuid"
)

// Session aggregates the current step, the ordered transcript, the
// recommendation history and transient flags. It is created on reset and
// fully discarded on the next one; nothing persists across sessions.
type Session struct {
	ID              string
	Step            Step
	Messages        []Message
	Recommendations []Recommendation
	Loading         bool
	Recording       bool
	Muted           bool

	nextID int64
}

// NewSession creates a fresh session at StepInit with the greeting message.
func NewSession() *Session {
	s := &Session{
		ID:   uuid.NewString(),
		Step: StepInit,
	}
	s.appendMessage(Message{Sender: SenderBot, Text: Greeting})
	return s
}

// appendMessage assigns the next monotonic ID and appends to the transcript.
// The transcript is append-only; nothing removes or reorders entries.
func (s *Session) appendMessage(m Message) *Message {
	s.nextID++
	m.ID = s.nextID
	s.Messages = append(s.Messages, m)
	return &s.Messages[len(s.Messages)-1]
}

// messageByID finds a transcript entry by ID, or nil.
func (s *Session) messageByID(id int64) *Message {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return &s.Messages[i]
		}
	}
	return nil
}

// snapshot returns a copy of the session safe to read outside the
// orchestrator lock. Message and recommendation slices are copied;
// binary payloads are shared read-only.
func (s *Session) snapshot() Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	out.Recommendations = make([]Recommendation, len(s.Recommendations))
	copy(out.Recommendations, s.Recommendations)
	return out
}
