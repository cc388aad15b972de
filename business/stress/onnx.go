//go:build cgo

package stress

import (
	"context"
	"fmt"
	"sync"

	"github.com/superfeelapi/goVoiceStress/foundation/dsp"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig names the model tensors and the runtime library.
type ONNXConfig struct {
	// SharedLibraryPath overrides the onnxruntime library location.
	SharedLibraryPath string
	InputName         string
	OutputName        string
	Frames            int
}

// ONNXPredictor runs the emotion model through onnxruntime. Input is
// [1, 13*Frames], output [1, 5].
type ONNXPredictor struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	size    int
}

var ortInit sync.Mutex

// ONNXLoader returns a Loader creating ONNXPredictors with cfg.
func ONNXLoader(cfg ONNXConfig) Loader {
	return func(path string) (Predictor, error) {
		return NewONNXPredictor(path, cfg)
	}
}

func NewONNXPredictor(path string, cfg ONNXConfig) (*ONNXPredictor, error) {
	if err := initRuntime(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrModelUnavailable, err)
	}

	return &ONNXPredictor{
		session: session,
		size:    featureSize(cfg.Frames),
	}, nil
}

func initRuntime(libPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("%w: initialize runtime: %v", ErrModelUnavailable, err)
	}

	return nil
}

// Predict runs one inference. The runtime call itself cannot be cancelled;
// ctx is only checked before it starts.
func (p *ONNXPredictor) Predict(ctx context.Context, features []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(features) != p.size {
		return nil, fmt.Errorf("feature size %d, model expects %d", len(features), p.size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil, ErrModelUnavailable
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(p.size)), features)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, EmotionClasses))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	if err := p.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	out := make([]float32, EmotionClasses)
	copy(out, output.GetData())

	return out, nil
}

func (p *ONNXPredictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}
	err := p.session.Destroy()
	p.session = nil

	return err
}

func featureSize(frames int) int {
	if frames <= 0 {
		frames = dsp.DefaultMFCCFrames
	}
	return frames * dsp.MFCCCoefficients
}
