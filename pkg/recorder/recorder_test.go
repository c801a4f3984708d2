package recorder

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AlxManAi/literary-sommelier/pkg/gemini"
)

// teardownLog records the order of shutdown calls across the fakes.
type teardownLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *teardownLog) add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *teardownLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeChannel struct {
	log    *teardownLog
	events chan gemini.LiveEvent

	mu     sync.Mutex
	sent   [][]byte
	closed bool
	once   sync.Once
}

func newFakeChannel(log *teardownLog) *fakeChannel {
	return &fakeChannel{log: log, events: make(chan gemini.LiveEvent, 16)}
}

func (c *fakeChannel) SendAudio(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	c.sent = append(c.sent, append([]byte(nil), pcm...))
	return nil
}

func (c *fakeChannel) Events() <-chan gemini.LiveEvent { return c.events }

func (c *fakeChannel) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		if c.log != nil {
			c.log.add("channel.Close")
		}
		close(c.events)
	})
	return nil
}

// fail emulates a remote failure: one error event, then the stream ends.
func (c *fakeChannel) fail(err error) {
	c.events <- gemini.LiveErrorEvent{Err: err}
	c.Close()
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type fakeMic struct {
	log      *teardownLog
	startErr error

	mu      sync.Mutex
	onChunk func([]byte)
	stops   int
}

func (m *fakeMic) Start(onChunk func(pcm []byte)) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.mu.Lock()
	m.onChunk = onChunk
	m.mu.Unlock()
	return nil
}

func (m *fakeMic) Stop() {
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
	if m.log != nil {
		m.log.add("mic.Stop")
	}
}

func (m *fakeMic) emit(pcm []byte) {
	m.mu.Lock()
	fn := m.onChunk
	m.mu.Unlock()
	if fn != nil {
		fn(pcm)
	}
}

func (m *fakeMic) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func waitState(t *testing.T, r *Recorder, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", r.State(), want)
}

func recvText(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case text := <-ch:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transcript callback")
		return ""
	}
}

func TestTurnCompleteSubmitsAndTearsDown(t *testing.T) {
	log := &teardownLog{}
	ch := newFakeChannel(log)
	mic := &fakeMic{log: log}
	partials := make(chan string, 16)
	submits := make(chan string, 4)

	r := New(
		func(context.Context) (Channel, error) { return ch, nil },
		mic,
		OnPartial(func(text string) { partials <- text }),
		OnSubmit(func(text string) { submits <- text }),
	)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := r.State(); got != StateStreaming {
		t.Fatalf("state = %s, want %s", got, StateStreaming)
	}

	mic.emit([]byte{1, 0, 2, 0})
	if ch.sentCount() != 1 {
		t.Errorf("sent chunks = %d, want 1", ch.sentCount())
	}

	ch.events <- gemini.TranscriptEvent{Text: "какая-то"}
	ch.events <- gemini.TranscriptEvent{Text: " грусть"}
	if got := recvText(t, partials); got != "какая-то" {
		t.Errorf("first partial = %q", got)
	}
	if got := recvText(t, partials); got != "какая-то грусть" {
		t.Errorf("second partial = %q", got)
	}

	ch.events <- gemini.TurnCompleteEvent{}
	if got := recvText(t, submits); got != "какая-то грусть" {
		t.Errorf("submitted = %q, want accumulated transcript", got)
	}

	// Turn completion ends the whole session, not just the utterance.
	waitState(t, r, StateIdle)
	if mic.stopCount() != 1 {
		t.Errorf("mic stops = %d, want 1", mic.stopCount())
	}
	select {
	case got := <-submits:
		t.Errorf("unexpected second submit %q, transcript should be consumed", got)
	default:
	}
}

func TestStopSubmitsRemainderAndTearsDownInOrder(t *testing.T) {
	log := &teardownLog{}
	ch := newFakeChannel(log)
	mic := &fakeMic{log: log}
	partials := make(chan string, 16)
	submits := make(chan string, 4)

	r := New(
		func(context.Context) (Channel, error) { return ch, nil },
		mic,
		OnPartial(func(text string) { partials <- text }),
		OnSubmit(func(text string) { submits <- text }),
	)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ch.events <- gemini.TranscriptEvent{Text: "  хочу фантастику "}
	recvText(t, partials)

	r.Stop()
	if got := recvText(t, submits); got != "хочу фантастику" {
		t.Errorf("submitted = %q, want trimmed remainder", got)
	}
	if got := r.State(); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}

	calls := log.snapshot()
	if len(calls) != 2 || calls[0] != "channel.Close" || calls[1] != "mic.Stop" {
		t.Errorf("teardown order = %v, want channel before microphone", calls)
	}
}

func TestStopIdempotent(t *testing.T) {
	ch := newFakeChannel(nil)
	mic := &fakeMic{}
	r := New(func(context.Context) (Channel, error) { return ch, nil }, mic)

	r.Stop()
	r.Stop()
	if mic.stopCount() != 0 {
		t.Error("Stop on an idle recorder must not touch the microphone")
	}

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
	r.Stop()
	if mic.stopCount() != 1 {
		t.Errorf("mic stops = %d, want 1", mic.stopCount())
	}
}

func TestMicrophoneFailureCleansUp(t *testing.T) {
	ch := newFakeChannel(nil)
	mic := &fakeMic{startErr: errors.New("no capture device")}
	r := New(func(context.Context) (Channel, error) { return ch, nil }, mic)

	err := r.Start(context.Background())
	if !errors.Is(err, ErrMicrophone) {
		t.Fatalf("err = %v, want ErrMicrophone", err)
	}
	waitState(t, r, StateIdle)
	ch.mu.Lock()
	closed := ch.closed
	ch.mu.Unlock()
	if !closed {
		t.Error("channel left open after microphone failure")
	}
}

func TestConnectFailureReturnsToIdle(t *testing.T) {
	mic := &fakeMic{}
	r := New(func(context.Context) (Channel, error) {
		return nil, errors.New("dial refused")
	}, mic)

	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	if got := r.State(); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}
}

func TestChannelFailureAutoStops(t *testing.T) {
	ch := newFakeChannel(nil)
	mic := &fakeMic{}
	errs := make(chan error, 1)
	partials := make(chan string, 4)
	submits := make(chan string, 4)

	r := New(
		func(context.Context) (Channel, error) { return ch, nil },
		mic,
		OnPartial(func(text string) { partials <- text }),
		OnSubmit(func(text string) { submits <- text }),
		OnError(func(err error) { errs <- err }),
	)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ch.events <- gemini.TranscriptEvent{Text: "обрыв на полуслове"}
	recvText(t, partials)

	cause := errors.New("socket reset")
	ch.fail(cause)

	select {
	case err := <-errs:
		if !errors.Is(err, cause) {
			t.Errorf("err = %v, want %v", err, cause)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}
	waitState(t, r, StateIdle)
	if mic.stopCount() == 0 {
		t.Error("microphone left running after channel failure")
	}
	select {
	case got := <-submits:
		t.Errorf("fragments from a failed channel were submitted: %q", got)
	default:
	}
}

func TestAbortDiscardsPendingTranscript(t *testing.T) {
	ch := newFakeChannel(nil)
	mic := &fakeMic{}
	partials := make(chan string, 4)
	submits := make(chan string, 4)

	r := New(
		func(context.Context) (Channel, error) { return ch, nil },
		mic,
		OnPartial(func(text string) { partials <- text }),
		OnSubmit(func(text string) { submits <- text }),
	)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ch.events <- gemini.TranscriptEvent{Text: "это не должно отправиться"}
	recvText(t, partials)

	r.Abort()
	if got := r.State(); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}
	select {
	case got := <-submits:
		t.Errorf("aborted transcript was submitted: %q", got)
	default:
	}
	if mic.stopCount() != 1 {
		t.Errorf("mic stops = %d, want 1", mic.stopCount())
	}
}

func TestSendChunkLogsCaptureLevel(t *testing.T) {
	ch := newFakeChannel(nil)
	mic := &fakeMic{}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := New(
		func(context.Context) (Channel, error) { return ch, nil },
		mic,
		WithRecorderLogger(logger),
	)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	mic.emit([]byte{0x00, 0x40, 0x00, 0xc0}) // half amplitude up and down
	if ch.sentCount() != 1 {
		t.Fatalf("sent chunks = %d, want 1", ch.sentCount())
	}
	if !strings.Contains(buf.String(), "rms=") {
		t.Errorf("debug log missing capture level: %q", buf.String())
	}
}

func TestToggle(t *testing.T) {
	ch := newFakeChannel(nil)
	mic := &fakeMic{}
	r := New(func(context.Context) (Channel, error) { return ch, nil }, mic)

	active, err := r.Toggle(context.Background())
	if err != nil || !active {
		t.Fatalf("Toggle start = %v, %v", active, err)
	}
	active, err = r.Toggle(context.Background())
	if err != nil || active {
		t.Fatalf("Toggle stop = %v, %v", active, err)
	}
	if got := r.State(); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}
}
