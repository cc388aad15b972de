package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/superfeelapi/goVoiceStress/foundation/dsp"
)

// recording collects PCM bytes for one clip.
type recording struct {
	buf  []byte
	want int
	err  error
	done chan struct{}
}

// recorder hands stream bytes to at most one in-flight recording; bytes
// arriving while nothing records are dropped.
type recorder struct {
	mu      sync.Mutex
	pending *recording
}

func (r *recorder) feed(pcm []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.pending
	if rec == nil {
		return
	}

	rec.buf = append(rec.buf, pcm...)
	if len(rec.buf) >= rec.want {
		r.pending = nil
		close(rec.done)
	}
}

// fail ends the in-flight recording with err.
func (r *recorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec := r.pending; rec != nil {
		r.pending = nil
		rec.err = err
		close(rec.done)
	}
}

// record waits until d of audio at sampleRate has been fed, ctx ends, or the
// stream stalls past d plus a grace period.
func (r *recorder) record(ctx context.Context, d time.Duration, sampleRate int) (Clip, error) {
	rec := &recording{
		want: bytesFor(d, sampleRate),
		done: make(chan struct{}),
	}
	if rec.want <= 0 {
		return Clip{}, fmt.Errorf("%w: invalid duration %s", ErrCaptureFailed, d)
	}
	rec.buf = make([]byte, 0, rec.want)

	r.mu.Lock()
	if r.pending != nil {
		r.mu.Unlock()
		return Clip{}, fmt.Errorf("%w: capture already in flight", ErrCaptureFailed)
	}
	r.pending = rec
	r.mu.Unlock()

	stall := time.NewTimer(d + time.Second)
	defer stall.Stop()

	startedAt := time.Now()

	select {
	case <-rec.done:
		if rec.err != nil {
			clear(rec.buf)
			return Clip{}, rec.err
		}

	case <-stall.C:
		r.abandon(rec)
		return Clip{}, fmt.Errorf("%w: stream stalled after %d of %d bytes", ErrCaptureFailed, len(rec.buf), rec.want)

	case <-ctx.Done():
		r.abandon(rec)
		return Clip{}, ctx.Err()
	}

	clip := Clip{
		Samples:    dsp.FromPCM16(rec.buf[:rec.want]),
		SampleRate: sampleRate,
		CapturedAt: startedAt,
	}
	clear(rec.buf)

	return clip, nil
}

// abandon detaches rec if it is still pending and wipes what it collected.
func (r *recorder) abandon(rec *recording) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == rec {
		r.pending = nil
	}
	clear(rec.buf)
}
