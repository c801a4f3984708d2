package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AlxManAi/literary-sommelier/pkg/audio"
)

const (
	defaultLiveConnectTimeout = 15 * time.Second

	// LiveInputMIME is the descriptor for outbound microphone frames.
	LiveInputMIME = "audio/pcm;rate=16000"
)

// LiveEvent is an event emitted by LiveSession.Events().
type LiveEvent interface {
	liveEventType() string
}

// TranscriptEvent carries an incremental transcription fragment.
type TranscriptEvent struct {
	Text string
}

func (e TranscriptEvent) liveEventType() string { return "transcript" }

// TurnCompleteEvent signals the end of a spoken user turn.
type TurnCompleteEvent struct{}

func (e TurnCompleteEvent) liveEventType() string { return "turn_complete" }

// LiveErrorEvent carries a terminal channel error.
type LiveErrorEvent struct {
	Err error
}

func (e LiveErrorEvent) liveEventType() string { return "error" }

// LiveClosedEvent signals the channel was closed by either side.
type LiveClosedEvent struct{}

func (e LiveClosedEvent) liveEventType() string { return "closed" }

// Live wire frames. The Gemini live protocol is JSON over websocket.

type liveSetupFrame struct {
	Setup liveSetup `json:"setup"`
}

type liveSetup struct {
	Model                   string   `json:"model"`
	InputAudioTranscription struct{} `json:"inputAudioTranscription"`
}

type liveRealtimeInputFrame struct {
	RealtimeInput liveRealtimeInput `json:"realtimeInput"`
}

type liveRealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

type liveServerFrame struct {
	SetupComplete *struct{}          `json:"setupComplete,omitempty"`
	ServerContent *liveServerContent `json:"serverContent,omitempty"`
}

type liveServerContent struct {
	InputTranscription *liveTranscription `json:"inputTranscription,omitempty"`
	TurnComplete       bool               `json:"turnComplete,omitempty"`
}

type liveTranscription struct {
	Text string `json:"text"`
}

// LiveSession is a bidirectional live transcription channel.
type LiveSession struct {
	conn *websocket.Conn

	events chan LiveEvent
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// ConnectLive opens a live transcription session. The session streams small
// PCM chunks to the service and emits transcription events until the turn
// completes or the channel fails.
func (c *Client) ConnectLive(ctx context.Context) (*LiveSession, error) {
	dialer := websocket.Dialer{HandshakeTimeout: defaultLiveConnectTimeout}

	url := c.liveURL + "?key=" + c.apiKey
	conn, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}

	setup := liveSetupFrame{}
	setup.Setup.Model = "models/" + c.liveModel
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send live setup: %w", err)
	}

	s := &LiveSession{
		conn:   conn,
		events: make(chan LiveEvent, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()

	c.logger.Debug("live session opened", "model", c.liveModel)
	return s, nil
}

// Events yields live channel events. The channel is closed on teardown.
func (s *LiveSession) Events() <-chan LiveEvent {
	if s == nil {
		return nil
	}
	return s.events
}

// SendAudio streams one chunk of 16 kHz mono 16-bit PCM to the service.
func (s *LiveSession) SendAudio(pcm []byte) error {
	if s == nil {
		return fmt.Errorf("session must not be nil")
	}
	if s.closed.Load() {
		return fmt.Errorf("live session is closed")
	}
	frame := liveRealtimeInputFrame{
		RealtimeInput: liveRealtimeInput{
			MediaChunks: []Blob{{
				MIMEType: LiveInputMIME,
				Data:     audio.EncodeBase64(pcm),
			}},
		},
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(frame)
}

// Close closes the websocket session. Safe to call more than once.
func (s *LiveSession) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error, if any, after teardown.
func (s *LiveSession) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *LiveSession) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *LiveSession) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || s.closed.Load() {
				s.emit(LiveClosedEvent{})
				return
			}
			s.setErr(err)
			s.emit(LiveErrorEvent{Err: err})
			return
		}

		var frame liveServerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.setErr(fmt.Errorf("decode live frame: %w", err))
			s.emit(LiveErrorEvent{Err: err})
			return
		}

		if frame.SetupComplete != nil {
			continue
		}
		if frame.ServerContent == nil {
			continue
		}
		if t := frame.ServerContent.InputTranscription; t != nil && t.Text != "" {
			s.emit(TranscriptEvent{Text: t.Text})
		}
		if frame.ServerContent.TurnComplete {
			s.emit(TurnCompleteEvent{})
		}
	}
}

func (s *LiveSession) emit(event LiveEvent) {
	select {
	case s.events <- event:
	default:
		// Avoid deadlocking the read loop if the consumer stops draining.
	}
}
