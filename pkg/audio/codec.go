// Package audio provides PCM codec helpers shared by the gateway, the
// recorder and the player: base64 framing for the live channel, float-to-s16
// conversion for captured microphone blocks, and WAV wrapping for saving
// synthesized narration.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

const (
	// InputSampleRate is the capture rate the live channel expects.
	InputSampleRate = 16000

	// OutputSampleRate is the rate of synthesized narration audio.
	OutputSampleRate = 24000

	// BitsPerSample is the PCM bit depth used throughout.
	BitsPerSample = 16

	// Channels is the channel count used throughout (mono).
	Channels = 1
)

// EncodeBase64 encodes raw PCM bytes for a live channel frame.
func EncodeBase64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeBase64 decodes base64 audio returned by the gateway into raw PCM.
func DecodeBase64(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}

// Float32ToPCM16 converts normalized float samples to 16-bit signed
// little-endian PCM. Samples outside [-1, 1] are clamped.
func Float32ToPCM16(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, f := range samples {
		s := int32(f * 32768)
		if s > math.MaxInt16 {
			s = math.MaxInt16
		}
		if s < math.MinInt16 {
			s = math.MinInt16
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return pcm
}

// RMSEnergy computes the root-mean-square energy of 16-bit signed
// little-endian PCM. Returns a value between 0.0 and 1.0.
func RMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(samples))
}

// PCMToWAV wraps raw PCM audio data with a 44-byte WAV header so narration
// can be saved to a file or handed to players that require WAV framing.
func PCMToWAV(pcmData []byte, sampleRate, bitsPerSample, channels int) []byte {
	dataLen := len(pcmData)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)

	// RIFF chunk descriptor
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")

	// fmt sub-chunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))

	// data sub-chunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, pcmData...)
}

// PCMToWAVDefault wraps PCM data with a WAV header using the narration
// output format. Equivalent to PCMToWAV(pcmData, 24000, 16, 1).
func PCMToWAVDefault(pcmData []byte) []byte {
	return PCMToWAV(pcmData, OutputSampleRate, BitsPerSample, Channels)
}
