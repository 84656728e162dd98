package audio

import (
	"io"
	"sync"
)

// defaultCaptureFrame is the number of samples per capture frame (256 ms at
// 16 kHz), matching the fixed-size frames the live service is fed.
const defaultCaptureFrame = 4096

// ReaderCapture is a [CaptureSource] that reads little-endian PCM16 mono
// audio at [CaptureRate] from an io.Reader — a pipe from an external
// recording process, a raw capture file, or stdin.
type ReaderCapture struct {
	frames chan []float32

	closeOnce sync.Once
	done      chan struct{}
	closer    io.Closer // nil unless the reader should be closed with the source
}

// NewReaderCapture starts pumping frames from r. If r implements io.Closer
// it is closed together with the source.
func NewReaderCapture(r io.Reader) *ReaderCapture {
	c := &ReaderCapture{
		frames: make(chan []float32, 4),
		done:   make(chan struct{}),
	}
	if rc, ok := r.(io.Closer); ok {
		c.closer = rc
	}
	go c.pump(r)
	return c
}

// Frames implements [CaptureSource].
func (c *ReaderCapture) Frames() <-chan []float32 { return c.frames }

// Close implements [CaptureSource]. It stops the pump and closes the frame
// channel once the pump exits.
func (c *ReaderCapture) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closer != nil {
			_ = c.closer.Close() // unblocks a pending Read
		}
	})
	return nil
}

func (c *ReaderCapture) pump(r io.Reader) {
	defer close(c.frames)

	buf := make([]byte, defaultCaptureFrame*2)
	for {
		n, err := io.ReadFull(r, buf)
		if n >= 2 {
			// A short final read still yields a (partial) frame.
			frame := DecodePCM16(buf[:n], CaptureRate, 1).Samples(0)
			select {
			case c.frames <- frame:
			case <-c.done:
				return
			}
		}
		if err != nil {
			return
		}
		select {
		case <-c.done:
			return
		default:
		}
	}
}
