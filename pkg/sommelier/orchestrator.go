package sommelier

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/AlxManAi/literary-sommelier/pkg/gemini"
)

// DefaultMaxImageBytes caps inline image uploads before any gateway call.
const DefaultMaxImageBytes = 4 << 20

// Gateway is the slice of the AI service the conversation core consumes.
type Gateway interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
	Chat(ctx context.Context, system string, history []gemini.Content, final []gemini.Part) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Speaker plays narration audio. Starting a new playback interrupts any
// in-flight one.
type Speaker interface {
	Play(pcm []byte)
}

// Orchestrator drives the conversation: it decides, for each user input,
// what to send to the gateway and how to fold the response back into the
// session. All session mutation happens under one lock, and a handler never
// leaves the session partially updated when an awaited call fails.
type Orchestrator struct {
	mu      sync.Mutex
	session *Session

	// generation guards against stale results: it bumps on every reset,
	// and any in-flight turn tagged with an older value discards its
	// result instead of applying it.
	generation uint64

	gateway       Gateway
	speaker       Speaker
	logger        *slog.Logger
	maxImageBytes int

	// log is the configured logger scoped to the current session's ID, so
	// turns from different sessions are tellable apart in the output. It is
	// re-derived on every reset.
	log *slog.Logger
}

// OrchestratorOption configures the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSpeaker attaches a narration speaker.
func WithSpeaker(speaker Speaker) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speaker = speaker
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMaxImageBytes overrides the inline image upload cap.
func WithMaxImageBytes(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxImageBytes = n
	}
}

// NewOrchestrator creates an orchestrator with a fresh session.
func NewOrchestrator(gateway Gateway, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		session:       NewSession(),
		gateway:       gateway,
		logger:        slog.Default(),
		maxImageBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.logger.With("session", o.session.ID)
	return o
}

// Reset discards the session and starts over with the greeting. Idempotent:
// resetting an idle session yields the identical initial state. In-flight
// turns from the old session are discarded when they land.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.session = NewSession()
	o.log = o.logger.With("session", o.session.ID)
	o.log.Debug("session reset")
}

// sessionLogger returns the logger scoped to the current session.
func (o *Orchestrator) sessionLogger() *slog.Logger {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.log
}

// Snapshot returns a copy of the session for rendering.
func (o *Orchestrator) Snapshot() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.snapshot()
}

// ToggleMute flips narration muting and returns the new value.
func (o *Orchestrator) ToggleMute() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session.Muted = !o.session.Muted
	return o.session.Muted
}

// SetRecording updates the session's recording flag.
func (o *Orchestrator) SetRecording(recording bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session.Recording = recording
}

// AddBotMessage appends a narrated bot message outside the normal turn flow,
// for surfacing recording-layer failures in the transcript.
func (o *Orchestrator) AddBotMessage(ctx context.Context, text string) {
	o.mu.Lock()
	gen := o.generation
	o.mu.Unlock()
	o.appendBotNarrated(ctx, gen, text)
}

// HandleUserInput runs one turn: it appends the user message and dispatches
// per the current step. Gateway failures are absorbed into apology messages;
// the session is never corrupted by a failed turn.
func (o *Orchestrator) HandleUserInput(ctx context.Context, text, imageMIME string, imageData []byte) {
	text = strings.TrimSpace(text)
	if text == "" && len(imageData) == 0 {
		return
	}

	o.mu.Lock()
	if len(imageData) > o.maxImageBytes {
		o.session.appendMessage(Message{Sender: SenderBot, Text: imageTooLarge})
		o.mu.Unlock()
		return
	}
	gen := o.generation
	o.session.appendMessage(Message{
		Sender:    SenderUser,
		Text:      text,
		ImageMIME: imageMIME,
		ImageData: imageData,
	})
	o.session.Loading = true
	step := o.session.Step
	history := o.session.snapshot().Messages
	o.log.Debug("turn started", "step", step, "image", len(imageData) > 0)
	o.mu.Unlock()

	defer o.clearLoading(gen)

	switch step {
	case StepInit:
		o.handleQuestionnaire(ctx, gen, history)
	default:
		o.handleDialog(ctx, gen, history)
	}
}

// handleQuestionnaire runs an init-step turn: the model either asks the next
// clarifying question or emits the sentinel, which triggers the consultation
// within the same turn.
func (o *Orchestrator) handleQuestionnaire(ctx context.Context, gen uint64, history []Message) {
	reply, err := o.gateway.GenerateText(ctx, systemInstruction(StepInit), questionnairePrompt(formatHistory(history)))
	if err != nil {
		o.sessionLogger().Error("questionnaire turn failed", "error", err)
		o.appendBotNarrated(ctx, gen, ApologyTurn)
		return
	}

	if !HasSentinel(reply) {
		o.appendBotNarrated(ctx, gen, reply)
		return
	}

	o.setStep(gen, StepConsult)
	o.runConsultation(ctx, gen, history)
}

// runConsultation performs the single recommendation exchange and settles the
// session in dialog. On gateway failure the step still falls through to
// dialog, with an apology and no recommendations, so the user can keep
// talking instead of being stuck mid-consultation.
func (o *Orchestrator) runConsultation(ctx context.Context, gen uint64, history []Message) {
	defer o.setStep(gen, StepDialog)

	reply, err := o.gateway.GenerateText(ctx, systemInstruction(StepConsult), consultPrompt(formatHistory(history)))
	if err != nil {
		o.sessionLogger().Error("consultation failed", "error", err)
		o.appendBotNarrated(ctx, gen, ApologyConsult)
		return
	}

	imagePrompt, cleaned := ExtractMoodTag(reply)
	recs := ParseRecommendations(cleaned)
	if len(recs) == 0 {
		o.sessionLogger().Warn("consultation reply had no parseable recommendations")
	}

	o.mu.Lock()
	if gen == o.generation {
		o.session.Recommendations = append(o.session.Recommendations, recs...)
	}
	o.mu.Unlock()

	o.appendBotNarrated(ctx, gen, cleaned)

	if imagePrompt == "" {
		return
	}
	img, err := o.gateway.GenerateImage(ctx, imagePrompt)
	if err != nil {
		o.sessionLogger().Error("mood image generation failed", "error", err)
		return
	}
	if len(img) == 0 {
		return
	}
	o.mu.Lock()
	if gen == o.generation {
		o.session.appendMessage(Message{Sender: SenderBot, ImageMIME: "image/png", ImageData: img})
	}
	o.mu.Unlock()
}

// handleDialog runs an open-dialog turn with genuine multi-turn chat
// semantics: prior turns replayed, current turn sent as the live message.
func (o *Orchestrator) handleDialog(ctx context.Context, gen uint64, history []Message) {
	contents := historyContents(history[:len(history)-1])
	final := livePartsFor(history[len(history)-1])

	reply, err := o.gateway.Chat(ctx, systemInstruction(StepDialog), contents, final)
	if err != nil {
		o.sessionLogger().Error("dialog turn failed", "error", err)
		o.appendBotNarrated(ctx, gen, ApologyTurn)
		return
	}
	o.appendBotNarrated(ctx, gen, reply)
}

// appendBotNarrated appends a bot message and, unless muted, synthesizes and
// plays its narration. The audio attaches to the message at most once; a
// synthesis failure is logged and never surfaced.
func (o *Orchestrator) appendBotNarrated(ctx context.Context, gen uint64, text string) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	msg := o.session.appendMessage(Message{Sender: SenderBot, Text: text})
	id := msg.ID
	muted := o.session.Muted
	o.mu.Unlock()

	if muted || o.speaker == nil {
		return
	}

	pcm, err := o.gateway.Synthesize(ctx, text)
	if err != nil {
		o.sessionLogger().Error("narration synthesis failed", "error", err)
		return
	}
	if len(pcm) == 0 {
		return
	}

	o.mu.Lock()
	play := false
	if gen == o.generation {
		if m := o.session.messageByID(id); m != nil && m.Audio == nil {
			m.Audio = pcm
			play = true
		}
	}
	o.mu.Unlock()

	if play {
		o.speaker.Play(pcm)
	}
}

func (o *Orchestrator) setStep(gen uint64, step Step) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == o.generation {
		o.session.Step = step
	}
}

func (o *Orchestrator) clearLoading(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == o.generation {
		o.session.Loading = false
	}
}

// historyContents maps transcript messages to chat turns. Every turn carries
// at least one part; image payloads ride along as inline data.
func historyContents(messages []Message) []gemini.Content {
	contents := make([]gemini.Content, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		role := "model"
		if m.Sender == SenderUser {
			role = "user"
		}
		var parts []gemini.Part
		if m.Text != "" {
			parts = append(parts, gemini.TextPart(m.Text))
		}
		if m.HasImage() {
			parts = append(parts, gemini.ImagePart(m.ImageMIME, m.ImageData))
		}
		if len(parts) == 0 {
			parts = append(parts, gemini.TextPart(""))
		}
		contents = append(contents, gemini.Content{Role: role, Parts: parts})
	}
	return contents
}

// livePartsFor builds the live-message parts for the current user turn,
// nudging the model to account for an attached image.
func livePartsFor(m Message) []gemini.Part {
	text := m.Text
	if m.HasImage() {
		if text == "" {
			text = dialogImageNudge
		} else {
			text += dialogImageSuffix
		}
	}
	var parts []gemini.Part
	if text != "" {
		parts = append(parts, gemini.TextPart(text))
	}
	if m.HasImage() {
		parts = append(parts, gemini.ImagePart(m.ImageMIME, m.ImageData))
	}
	return parts
}
