package audio

// Source is one buffer currently playing (or armed to play) on a [Sink].
type Source interface {
	// Stop halts playback immediately. Safe to call more than once and safe
	// to call on a source that already finished.
	Stop()

	// Done is closed when playback ends, whether it ran to completion or was
	// stopped.
	Done() <-chan struct{}
}

// Sink is a playback output device. Implementations wrap real hardware
// (pkg/audio/speaker) or test fakes (pkg/audio/mock).
//
// Implementations must be safe for concurrent use: the [Scheduler] starts
// sources from timer goroutines.
type Sink interface {
	// Start begins playing buf immediately at the given playback-rate
	// multiplier and returns a handle for the in-flight source.
	Start(buf *Buffer, rate float64) (Source, error)

	// SampleRate returns the device's output sample rate in Hz.
	SampleRate() int

	// Close releases the device. Any in-flight sources are stopped. Close is
	// idempotent.
	Close() error
}

// CaptureSource yields fixed-size frames of normalised mono microphone audio
// at [CaptureRate]. Frames arrive on a hardware- or reader-driven cadence
// independent of the consumer.
type CaptureSource interface {
	// Frames returns the channel on which capture frames arrive. The channel
	// is closed when the source is exhausted or closed.
	Frames() <-chan []float32

	// Close releases the capture device and closes the frame channel.
	// Idempotent.
	Close() error
}
