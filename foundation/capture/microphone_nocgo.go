//go:build !cgo

package capture

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Microphone is unavailable without cgo. Permission requests and Configure
// report ErrNoMicrophone.
type Microphone struct{}

func NewMicrophone(sampleRate int, logger *zap.SugaredLogger) *Microphone {
	logger.Infow("capture: NewMicrophone: built without cgo, microphone unavailable")
	return &Microphone{}
}

func (m *Microphone) RequestPermissions(ctx context.Context) (bool, error) {
	return false, errors.Join(ErrPermissionDenied, ErrNoMicrophone)
}

func (m *Microphone) Configure(ctx context.Context) error {
	return ErrNoMicrophone
}

func (m *Microphone) Capture(ctx context.Context, d time.Duration) (Clip, error) {
	return Clip{}, ErrNotConfigured
}

func (m *Microphone) Close() error {
	return nil
}
