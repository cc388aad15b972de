package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/superfeelapi/goEagi"
	"go.uber.org/zap"
)

// EagiSampleRate is the rate of the Asterisk EAGI audio channel.
const EagiSampleRate = 8000

// eagiAudioFD is the descriptor Asterisk opens for EAGI audio.
const eagiAudioFD = 3

// Eagi captures clips from the Asterisk EAGI audio stream (signed 16 bit
// little endian mono on fd 3). The stream is drained continuously once
// configured; only bytes that fall inside a Capture call are kept.
type Eagi struct {
	logger *zap.SugaredLogger
	rec    recorder

	mu        sync.Mutex
	cancel    context.CancelFunc
	streamErr error
}

func NewEagi(logger *zap.SugaredLogger) *Eagi {
	return &Eagi{
		logger: logger,
	}
}

// RequestPermissions reports whether the EAGI audio descriptor is open.
func (e *Eagi) RequestPermissions(ctx context.Context) (bool, error) {
	if !fdOpen(eagiAudioFD) {
		return false, ErrPermissionDenied
	}
	return true, nil
}

func (e *Eagi) Configure(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return nil
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.streamErr = nil

	streamCh := goEagi.AudioStreaming(streamCtx)
	go e.audioStreamOperation(streamCtx, streamCh)

	return nil
}

func (e *Eagi) audioStreamOperation(ctx context.Context, streamCh <-chan goEagi.AudioResult) {
	e.logger.Infow("capture: audioStreamOperation: G started")
	defer e.logger.Infow("capture: audioStreamOperation: G completed")

	for {
		select {
		case audio, ok := <-streamCh:
			if !ok {
				e.logger.Errorw("capture: audioStreamOperation", "ERROR", "stream closed")
				e.streamFailed(fmt.Errorf("%w: eagi stream closed", ErrCaptureFailed))
				return
			}
			if audio.Error != nil {
				e.logger.Errorw("capture: audioStreamOperation", "ERROR", audio.Error)
				e.streamFailed(fmt.Errorf("%w: eagi stream: %v", ErrCaptureFailed, audio.Error))
				return
			}
			e.rec.feed(audio.Stream)
			clear(audio.Stream)

		case <-ctx.Done():
			e.logger.Infow("capture: audioStreamOperation: received shut signal")
			return
		}
	}
}

// streamFailed records err for later captures and ends the one in flight.
func (e *Eagi) streamFailed(err error) {
	e.mu.Lock()
	e.streamErr = err
	e.mu.Unlock()

	e.rec.fail(err)
}

func (e *Eagi) Capture(ctx context.Context, d time.Duration) (Clip, error) {
	e.mu.Lock()
	configured, streamErr := e.cancel != nil, e.streamErr
	e.mu.Unlock()

	switch {
	case !configured:
		return Clip{}, ErrNotConfigured
	case streamErr != nil:
		return Clip{}, streamErr
	}

	return e.rec.record(ctx, d, EagiSampleRate)
}

func (e *Eagi) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.rec.fail(fmt.Errorf("%w: capturer closed", ErrCaptureFailed))

	return nil
}
