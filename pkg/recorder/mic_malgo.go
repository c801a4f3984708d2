package recorder

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/AlxManAi/literary-sommelier/pkg/audio"
)

// MalgoMicrophone captures 16 kHz mono audio through miniaudio. The device
// delivers float32 frames; each block is converted to 16-bit signed PCM
// before it reaches the chunk callback.
type MalgoMicrophone struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewMalgoMicrophone creates an unstarted microphone.
func NewMalgoMicrophone() *MalgoMicrophone {
	return &MalgoMicrophone{}
}

// Start opens the default capture device and streams converted PCM chunks to
// onChunk until Stop is called. The callback runs on the audio thread and
// must not block.
func (m *MalgoMicrophone) Start(onChunk func(pcm []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return fmt.Errorf("microphone already started")
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = audio.Channels
	deviceConfig.SampleRate = audio.InputSampleRate
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			samples := decodeFloat32(input)
			if len(samples) == 0 {
				return
			}
			onChunk(audio.Float32ToPCM16(samples))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start capture device: %w", err)
	}

	m.ctx = ctx
	m.device = device
	return nil
}

// Stop releases the capture device. Safe to call more than once.
func (m *MalgoMicrophone) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
}

// decodeFloat32 reinterprets a little-endian f32 capture buffer as samples.
func decodeFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
