package audio

import (
	"math"
	"testing"
)

func TestEncodeDecodePCM16RoundTrip(t *testing.T) {
	t.Parallel()

	in := []float32{-1.0, -0.5, -0.25, 0.0, 0.25, 0.5, 0.99, 1.0}
	buf := DecodePCM16(EncodePCM16(in), PlaybackRate, 1)

	if buf.Frames() != len(in) {
		t.Fatalf("Frames() = %d; want %d", buf.Frames(), len(in))
	}
	out := buf.Samples(0)
	for i, want := range in {
		// One quantisation step of slack. 1.0 saturates to 32767/32768.
		if math.Abs(float64(out[i]-want)) > 1.0/32768 {
			t.Errorf("sample %d: got %v, want %v", i, out[i], want)
		}
	}
}

func TestEncodePCM16ClampsOutOfRange(t *testing.T) {
	t.Parallel()

	b := EncodePCM16([]float32{2.0, -2.0})
	hi := int16(b[0]) | int16(b[1])<<8
	lo := int16(b[2]) | int16(b[3])<<8
	if hi != 32767 {
		t.Errorf("2.0 encoded as %d; want 32767", hi)
	}
	if lo != -32768 {
		t.Errorf("-2.0 encoded as %d; want -32768", lo)
	}
}

func TestDecodePCM16DropsPartialFrame(t *testing.T) {
	t.Parallel()

	// Stereo input: 2 bytes/sample * 2 channels = 4 bytes per frame. Ten
	// bytes is two full frames plus a dangling half-frame.
	buf := DecodePCM16(make([]byte, 10), PlaybackRate, 2)
	if buf.Frames() != 2 {
		t.Errorf("Frames() = %d; want 2", buf.Frames())
	}
	if buf.Channels() != 2 {
		t.Errorf("Channels() = %d; want 2", buf.Channels())
	}
}

func TestDecodePCM16NeverFails(t *testing.T) {
	t.Parallel()

	for name, pcm := range map[string][]byte{
		"nil":       nil,
		"empty":     {},
		"single":    {0x01},
		"one frame": {0x00, 0x40},
	} {
		buf := DecodePCM16(pcm, PlaybackRate, 1)
		if buf == nil {
			t.Errorf("%s: DecodePCM16 returned nil", name)
		}
	}
}

func TestDecodePCM16DeinterleavesChannels(t *testing.T) {
	t.Parallel()

	// L=0x4000 (0.5), R=0xC000 (-0.5), twice.
	pcm := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x40, 0x00, 0xC0}
	buf := DecodePCM16(pcm, PlaybackRate, 2)
	for i := 0; i < 2; i++ {
		if got := buf.Samples(0)[i]; got != 0.5 {
			t.Errorf("left[%d] = %v; want 0.5", i, got)
		}
		if got := buf.Samples(1)[i]; got != -0.5 {
			t.Errorf("right[%d] = %v; want -0.5", i, got)
		}
	}
}

func TestDecodeBase64ToleratesWhitespace(t *testing.T) {
	t.Parallel()

	// "hello" with the kinds of wrapping long payloads arrive with.
	got, err := DecodeBase64("aGVs\nbG8=\r\n")
	if err != nil {
		t.Fatalf("DecodeBase64: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("decoded %q; want %q", got, "hello")
	}
}

func TestDecodeBase64Malformed(t *testing.T) {
	t.Parallel()

	if _, err := DecodeBase64("!!not base64!!"); err == nil {
		t.Error("malformed input should error")
	}
}

func TestNewCaptureBlob(t *testing.T) {
	t.Parallel()

	blob := NewCaptureBlob([]float32{0.5, -0.5})
	if blob.MIMEType != CaptureMIMEType {
		t.Errorf("MIMEType = %q; want %q", blob.MIMEType, CaptureMIMEType)
	}
	raw, err := DecodeBase64(blob.Data)
	if err != nil {
		t.Fatalf("blob data is not base64: %v", err)
	}
	if len(raw) != 4 {
		t.Errorf("payload is %d bytes; want 4", len(raw))
	}
}

func TestBufferDuration(t *testing.T) {
	t.Parallel()

	buf := DecodePCM16(make([]byte, PlaybackRate*2), PlaybackRate, 1)
	if got := buf.Duration().Seconds(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Duration() = %vs; want 1s", got)
	}

	empty := NewBuffer(nil, 0)
	if empty.Duration() != 0 {
		t.Errorf("empty buffer Duration() = %v; want 0", empty.Duration())
	}
}
