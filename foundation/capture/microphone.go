//go:build cgo

package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// Microphone captures mono 16 bit clips from the default input device. The
// audio context and device are created once by Configure; the device only
// runs while a clip is being recorded.
type Microphone struct {
	logger     *zap.SugaredLogger
	sampleRate int
	rec        recorder

	mu     sync.Mutex
	actx   *malgo.AllocatedContext
	device *malgo.Device
}

func NewMicrophone(sampleRate int, logger *zap.SugaredLogger) *Microphone {
	return &Microphone{
		logger:     logger,
		sampleRate: sampleRate,
	}
}

// RequestPermissions reports whether an audio context can be opened and a
// capture device exists. Platforms that prompt the user do so when the
// device first starts.
func (m *Microphone) RequestPermissions(ctx context.Context) (bool, error) {
	actx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return false, fmt.Errorf("%w: init audio context: %v", ErrPermissionDenied, err)
	}
	defer func() {
		_ = actx.Uninit()
		actx.Free()
	}()

	devices, err := actx.Devices(malgo.Capture)
	if err != nil {
		return false, fmt.Errorf("%w: list capture devices: %v", ErrPermissionDenied, err)
	}
	if len(devices) == 0 {
		return false, fmt.Errorf("%w: no capture device", ErrPermissionDenied)
	}

	return true, nil
}

func (m *Microphone) Configure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return nil
	}

	actx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.logger.Debugw("capture: malgo", "message", message)
	})
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(m.sampleRate)
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(actx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			m.rec.feed(input)
		},
	})
	if err != nil {
		_ = actx.Uninit()
		actx.Free()
		return fmt.Errorf("init capture device: %w", err)
	}

	m.actx = actx
	m.device = device

	return nil
}

func (m *Microphone) Capture(ctx context.Context, d time.Duration) (Clip, error) {
	m.mu.Lock()
	device := m.device
	m.mu.Unlock()

	if device == nil {
		return Clip{}, ErrNotConfigured
	}

	if err := device.Start(); err != nil {
		return Clip{}, fmt.Errorf("%w: start device: %v", ErrCaptureFailed, err)
	}
	defer func() {
		if err := device.Stop(); err != nil {
			m.logger.Errorw("capture: Capture: stop device", "ERROR", err)
		}
	}()

	return m.rec.record(ctx, d, m.sampleRate)
}

func (m *Microphone) Close() error {
	m.rec.fail(fmt.Errorf("%w: capturer closed", ErrCaptureFailed))

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.actx != nil {
		err := m.actx.Uninit()
		m.actx.Free()
		m.actx = nil
		return err
	}

	return nil
}
