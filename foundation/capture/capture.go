// Package capture acquires short fixed duration audio clips.
//
// A Capturer owns the audio device while configured. Clips carry decoded
// samples only; nothing here writes audio to disk or the network.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/superfeelapi/goVoiceStress/foundation/dsp"
)

var (
	// ErrPermissionDenied means the host refused audio access. It is not
	// retried automatically.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrCaptureFailed wraps transient recording failures.
	ErrCaptureFailed = errors.New("audio capture failed")

	// ErrNotConfigured is returned by Capture before Configure succeeded.
	ErrNotConfigured = errors.New("audio session not configured")

	// ErrNoMicrophone is returned when the binary was built without cgo.
	ErrNoMicrophone = errors.New("microphone capture requires cgo")
)

// Clip is one captured window of mono audio.
type Clip struct {
	Samples    []float64
	SampleRate int
	CapturedAt time.Time
}

// Discard zeroes and drops the samples.
func (c *Clip) Discard() {
	dsp.Zero(c.Samples)
	c.Samples = nil
}

// Capturer records clips.
type Capturer interface {
	// Configure performs the one time audio session setup. Calling it again
	// on a configured capturer is a no-op.
	Configure(ctx context.Context) error

	// Capture blocks for roughly d and returns the recorded clip. It returns
	// early with ctx.Err() when ctx is cancelled.
	Capture(ctx context.Context, d time.Duration) (Clip, error)

	// Close releases the device and any in-flight recording.
	Close() error
}

// Permissions asks the host for audio access.
type Permissions interface {
	RequestPermissions(ctx context.Context) (bool, error)
}

// bytesFor returns the byte count of d seconds of 16 bit mono PCM.
func bytesFor(d time.Duration, sampleRate int) int {
	samples := int(d.Seconds() * float64(sampleRate))
	return samples * 2
}
