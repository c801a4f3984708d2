// Package sommelier implements the conversation core of the literary
// sommelier: a scripted mood questionnaire that hands off to an AI-driven
// consultation and settles into open dialog, with narrated replies and
// structured book recommendations extracted along the way.
package sommelier

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Step is the current phase of the scripted conversation.
type Step string

const (
	// StepInit gathers mood and preference answers over an arbitrary
	// number of turns until the model signals it has enough.
	StepInit Step = "init"

	// StepConsult is the transient recommendation exchange.
	StepConsult Step = "consult"

	// StepDialog is the terminal open-discussion phase.
	StepDialog Step = "dialog"
)

// Message is one entry of the session transcript. Messages are immutable
// once created except that a bot message's Audio may be filled in once,
// after synthesis completes.
type Message struct {
	ID        int64
	Sender    Sender
	Text      string
	ImageMIME string
	ImageData []byte
	Audio     []byte // bot only; 24 kHz mono s16le PCM
}

// HasImage reports whether the message carries an inline image.
func (m *Message) HasImage() bool {
	return len(m.ImageData) > 0
}

// Recommendation is a title/author pair extracted from a consultation reply.
type Recommendation struct {
	Title  string
	Author string
}
