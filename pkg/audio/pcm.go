package audio

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// CaptureRate is the sample rate of microphone audio sent to the live
	// service.
	CaptureRate = 16000

	// PlaybackRate is the sample rate of synthesised and live-response audio
	// received from the remote service.
	PlaybackRate = 24000

	// CaptureMIMEType tags outbound microphone PCM chunks.
	CaptureMIMEType = "audio/pcm;rate=16000"
)

// Blob is one outbound chunk of base64-encoded capture audio together with
// its PCM mime descriptor.
type Blob struct {
	Data     string
	MIMEType string
}

// EncodeBase64 encodes raw bytes using standard base64.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 decodes a standard base64 string, tolerating embedded
// whitespace (remote services occasionally wrap long payloads). Malformed
// input yields an error; callers treat it as "drop this chunk", never fatal.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("audio: decode base64: %w", err)
	}
	return b, nil
}

// DecodePCM16 reinterprets pcm as little-endian signed 16-bit samples,
// de-interleaves them by channel count, and normalises each sample to
// [-1.0, 1.0] by dividing by 32768. A trailing partial frame is dropped.
// DecodePCM16 never fails; empty or undersized input yields an empty buffer.
func DecodePCM16(pcm []byte, sampleRate, channels int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	frames := len(pcm) / (2 * channels)
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			s := int16(pcm[off]) | int16(pcm[off+1])<<8
			data[ch][i] = float32(s) / 32768.0
		}
	}
	return NewBuffer(data, sampleRate)
}

// EncodePCM16 converts normalised float32 samples to little-endian signed
// 16-bit PCM. Samples are scaled by 32768 and clamped to the int16 range, so
// out-of-range input (upstream gain above unity) saturates instead of
// wrapping.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		v := int32(f * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// NewCaptureBlob packs one frame of normalised mono microphone samples into
// the base64 PCM blob the live service expects.
func NewCaptureBlob(samples []float32) Blob {
	return Blob{
		Data:     EncodeBase64(EncodePCM16(samples)),
		MIMEType: CaptureMIMEType,
	}
}
