// Package recorder manages voice-input recording sessions: it opens a live
// transcription channel, streams microphone audio into it, and hands the
// accumulated transcript to the conversation layer when a spoken turn
// completes or the recording stops.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/AlxManAi/literary-sommelier/pkg/audio"
	"github.com/AlxManAi/literary-sommelier/pkg/gemini"
)

// ErrMicrophone marks failures to acquire or start the capture device, so
// callers can show a microphone-specific message instead of a generic one.
var ErrMicrophone = errors.New("microphone unavailable")

// State is the recording session phase. Transitions run strictly
// idle -> opening -> streaming -> closing -> idle; a failed open collapses
// straight back to idle.
type State string

const (
	StateIdle      State = "idle"
	StateOpening   State = "opening"
	StateStreaming State = "streaming"
	StateClosing   State = "closing"
)

// Channel is the transcription channel slice the recorder consumes.
// *gemini.LiveSession satisfies it.
type Channel interface {
	SendAudio(pcm []byte) error
	Events() <-chan gemini.LiveEvent
	Close() error
}

// ConnectFunc opens a transcription channel.
type ConnectFunc func(ctx context.Context) (Channel, error)

// Microphone captures audio and delivers 16 kHz mono s16le PCM chunks to the
// callback until stopped.
type Microphone interface {
	Start(onChunk func(pcm []byte)) error
	Stop()
}

// Recorder is the recording session manager. All transitions are serialized;
// Start and Stop are idempotent with respect to the current state.
type Recorder struct {
	connect ConnectFunc
	mic     Microphone
	logger  *slog.Logger

	onPartial func(text string)
	onSubmit  func(text string)
	onError   func(err error)

	mu         sync.Mutex
	state      State
	channel    Channel
	transcript strings.Builder
	loopDone   chan struct{}
}

// Option configures the Recorder.
type Option func(*Recorder)

// OnPartial is invoked with the accumulated transcript after each fragment,
// for live display.
func OnPartial(fn func(text string)) Option {
	return func(r *Recorder) {
		r.onPartial = fn
	}
}

// OnSubmit is invoked with the trimmed transcript when a spoken turn
// completes or the recording stops with text pending. Never called with an
// empty string.
func OnSubmit(fn func(text string)) Option {
	return func(r *Recorder) {
		r.onSubmit = fn
	}
}

// OnError is invoked when the channel fails mid-session. The recorder tears
// itself down afterwards.
func OnError(fn func(err error)) Option {
	return func(r *Recorder) {
		r.onError = fn
	}
}

// WithRecorderLogger sets the logger.
func WithRecorderLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// New creates an idle recorder.
func New(connect ConnectFunc, mic Microphone, opts ...Option) *Recorder {
	r := &Recorder{
		connect: connect,
		mic:     mic,
		logger:  slog.Default(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current session phase.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Toggle starts recording when idle and stops it otherwise. It reports
// whether a recording is active after the call.
func (r *Recorder) Toggle(ctx context.Context) (bool, error) {
	if r.State() == StateIdle {
		if err := r.Start(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	r.Stop()
	return false, nil
}

// Start opens the channel and begins streaming microphone audio. A no-op
// unless the recorder is idle. On failure the recorder is back in idle and
// nothing is left running.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil
	}
	r.state = StateOpening
	r.mu.Unlock()

	ch, err := r.connect(ctx)
	if err != nil {
		r.setState(StateIdle)
		return fmt.Errorf("open transcription channel: %w", err)
	}

	loopDone := make(chan struct{})
	r.mu.Lock()
	r.channel = ch
	r.transcript.Reset()
	r.loopDone = loopDone
	r.mu.Unlock()

	go r.eventLoop(ch, loopDone)

	if err := r.mic.Start(r.sendChunk); err != nil {
		r.teardown()
		r.setState(StateIdle)
		return fmt.Errorf("%w: %v", ErrMicrophone, err)
	}

	r.setState(StateStreaming)
	r.logger.Debug("recording started")
	return nil
}

// Stop ends the recording session: channel first, then microphone, then back
// to idle. Any transcript still pending is submitted. Safe to call when not
// recording.
func (r *Recorder) Stop() {
	r.stop(true)
}

// Abort ends the recording session like Stop but discards any pending
// transcript instead of submitting it. Used when the conversation is being
// reset and a late utterance must not leak into the fresh session.
func (r *Recorder) Abort() {
	r.stop(false)
}

func (r *Recorder) stop(submit bool) {
	r.mu.Lock()
	if r.state != StateStreaming && r.state != StateOpening {
		r.mu.Unlock()
		return
	}
	r.state = StateClosing
	r.mu.Unlock()

	r.teardown()
	r.setState(StateIdle)
	r.logger.Debug("recording stopped")

	text := r.takeTranscript()
	if submit && text != "" && r.onSubmit != nil {
		r.onSubmit(text)
	}
}

// teardown closes the channel, drains its event loop and stops the
// microphone, in that order.
func (r *Recorder) teardown() {
	r.mu.Lock()
	ch := r.channel
	done := r.loopDone
	r.channel = nil
	r.loopDone = nil
	r.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	if done != nil {
		<-done
	}
	r.mic.Stop()
}

func (r *Recorder) setState(state State) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

// sendChunk forwards one microphone chunk. Write errors are not fatal here;
// a dead channel surfaces through the event loop.
func (r *Recorder) sendChunk(pcm []byte) {
	r.mu.Lock()
	ch := r.channel
	active := r.state == StateStreaming || r.state == StateOpening
	r.mu.Unlock()

	if ch == nil || !active {
		return
	}
	if err := ch.SendAudio(pcm); err != nil {
		r.logger.Debug("dropped audio chunk", "error", err)
		return
	}
	if r.logger.Enabled(context.Background(), slog.LevelDebug) {
		r.logger.Debug("captured audio chunk", "bytes", len(pcm), "rms", audio.RMSEnergy(pcm))
	}
}

func (r *Recorder) takeTranscript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	text := strings.TrimSpace(r.transcript.String())
	r.transcript.Reset()
	return text
}

func (r *Recorder) eventLoop(ch Channel, done chan struct{}) {
	var failed error
	turnDone := false
loop:
	for ev := range ch.Events() {
		switch e := ev.(type) {
		case gemini.TranscriptEvent:
			r.mu.Lock()
			r.transcript.WriteString(e.Text)
			text := strings.TrimSpace(r.transcript.String())
			r.mu.Unlock()
			if r.onPartial != nil {
				r.onPartial(text)
			}
		case gemini.TurnCompleteEvent:
			// The spoken turn is the unit of work: submit, then tear
			// the whole session down.
			turnDone = true
			break loop
		case gemini.LiveErrorEvent:
			failed = e.Err
		case gemini.LiveClosedEvent:
			// Teardown, local or remote, ends the loop via channel close.
		}
	}
	close(done)

	if failed != nil {
		// Fragments accumulated before the channel died are not
		// trustworthy; they must not turn into a user message.
		r.mu.Lock()
		r.transcript.Reset()
		r.mu.Unlock()
		r.logger.Error("transcription channel failed", "error", failed)
		if r.onError != nil {
			r.onError(failed)
		}
	}

	if turnDone {
		if text := r.takeTranscript(); text != "" && r.onSubmit != nil {
			r.onSubmit(text)
		}
		r.Stop()
		return
	}

	// A remote failure or close lands here with the session still marked
	// streaming; finish the teardown ourselves. Stop no-ops when the local
	// side initiated it.
	if r.State() == StateStreaming {
		r.Stop()
	}
}
