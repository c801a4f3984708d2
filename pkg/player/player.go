// Package player plays narration audio through the default output device.
package player

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/AlxManAi/literary-sommelier/pkg/audio"
)

// Player plays 24 kHz mono s16le PCM clips. One clip plays at a time;
// starting a new one stops and discards the current one.
type Player struct {
	mu      sync.Mutex
	ctx     *oto.Context
	current *oto.Player
	closed  bool
}

// New initializes the output device. The call blocks until the audio
// context is ready.
func New() (*Player, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   audio.OutputSampleRate,
		ChannelCount: audio.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("init audio output: %w", err)
	}
	<-ready
	return &Player{ctx: ctx}, nil
}

// Play starts playing a PCM clip, interrupting any clip still playing.
// It returns immediately; playback continues in the background.
func (p *Player) Play(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.stopCurrentLocked()
	p.current = p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.current.Play()
}

// Stop discards the current clip, if any. Safe to call at any time.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCurrentLocked()
}

// Close stops playback and marks the player unusable. Safe to call more
// than once.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCurrentLocked()
	p.closed = true
}

func (p *Player) stopCurrentLocked() {
	if p.current != nil {
		_ = p.current.Close()
		p.current = nil
	}
}
