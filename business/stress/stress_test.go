package stress_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/superfeelapi/goVoiceStress/business/stress"
	"github.com/superfeelapi/goVoiceStress/foundation/config"
	"github.com/superfeelapi/goVoiceStress/foundation/metrics"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type fakePredictor struct {
	out    []float32
	err    error
	block  chan struct{}
	calls  atomic.Int32
	closed atomic.Bool
}

func (f *fakePredictor) Predict(ctx context.Context, features []float32) ([]float32, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.out, f.err
}

func (f *fakePredictor) Close() error {
	f.closed.Store(true)
	return nil
}

func loaderFor(p stress.Predictor) stress.Loader {
	return func(string) (stress.Predictor, error) {
		return p, nil
	}
}

func modelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emotion_model.onnx")
	if err := os.WriteFile(path, []byte("model"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newClassifier(t *testing.T, timeout time.Duration) *stress.Classifier {
	t.Helper()
	m, err := metrics.New(noop.NewMeterProvider())
	if err != nil {
		t.Fatal(err)
	}
	c := stress.NewClassifier(stress.Config{
		Calibration:      config.Default(),
		InferenceTimeout: timeout,
	}, zap.NewNop().Sugar(), m)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// loudHighPitch is the analysis of a loud, high pitched, bursty clip.
func loudHighPitch() *stress.Analysis {
	return &stress.Analysis{
		Volume:     85,
		Pitch:      320,
		SpeechRate: 3,
		Raw:        stress.Raw{EnergyVariance: 0.47},
		MFCC:       make([]float32, 1300),
		CapturedAt: time.UnixMilli(1_700_000_000_000),
	}
}

// =====================================================================================================================

func TestRuleBands(t *testing.T) {
	t.Parallel()

	rules := stress.NewRuleScorer(config.Default().Rules)

	tests := []struct {
		name       string
		analysis   stress.Analysis
		level      stress.Level
		confidence float64
		indicators []string
	}{
		{
			name:       "calm",
			analysis:   stress.Analysis{Volume: 30, Pitch: 180, SpeechRate: 3},
			level:      stress.Calm,
			confidence: 0.1,
			indicators: []string{},
		},
		{
			name:       "irregular only",
			analysis:   stress.Analysis{Volume: 30, Pitch: 180, SpeechRate: 3, Raw: stress.Raw{EnergyVariance: 0.5}},
			level:      stress.Mild,
			confidence: 0.5,
			indicators: []string{stress.IndicatorIrregular},
		},
		{
			name:       "high pitch",
			analysis:   stress.Analysis{Volume: 30, Pitch: 300, SpeechRate: 3},
			level:      stress.Moderate,
			confidence: 0.5,
			indicators: []string{stress.IndicatorHighPitch},
		},
		{
			name:       "shouting",
			analysis:   stress.Analysis{Volume: 71, Pitch: 180, SpeechRate: 3},
			level:      stress.Moderate,
			confidence: 0.7,
			indicators: []string{stress.IndicatorShouting},
		},
		{
			name:       "rapid and high",
			analysis:   stress.Analysis{Volume: 30, Pitch: 300, SpeechRate: 5.5},
			level:      stress.High,
			confidence: 4.0 / 6,
			indicators: []string{stress.IndicatorRapidSpeech, stress.IndicatorHighPitch},
		},
		{
			name:       "everything",
			analysis:   stress.Analysis{Volume: 90, Pitch: 300, SpeechRate: 6, Raw: stress.Raw{EnergyVariance: 0.9}},
			level:      stress.Crisis,
			confidence: 0.9,
			indicators: []string{stress.IndicatorShouting, stress.IndicatorRapidSpeech, stress.IndicatorHighPitch, stress.IndicatorIrregular},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := tt.analysis
			got := rules.Classify(&a)

			if got.Level != tt.level {
				t.Fatalf("level = %s, want %s", got.Level, tt.level)
			}
			if got.Confidence != tt.confidence {
				t.Fatalf("confidence = %v, want %v", got.Confidence, tt.confidence)
			}
			if !reflect.DeepEqual(got.Indicators, tt.indicators) {
				t.Fatalf("indicators = %q, want %q", got.Indicators, tt.indicators)
			}
			if got.Emotions != nil {
				t.Fatal("rule result carries emotions")
			}
		})
	}
}

func TestRuleScoreMonotonic(t *testing.T) {
	t.Parallel()

	cal := config.Default().Rules
	rules := stress.NewRuleScorer(cal)

	// Each metric sits just below its threshold.
	base := stress.Analysis{
		Volume:     cal.ShoutingVolume - 0.1,
		SpeechRate: cal.RapidSpeechRate - 0.1,
		Pitch:      cal.HighPitchHz - 0.1,
		Raw:        stress.Raw{EnergyVariance: cal.IrregularVariance - 0.01},
	}
	baseScore := stress.Score(rules.Evaluate(&base))

	bumps := map[string]func(a *stress.Analysis, d float64){
		"volume":     func(a *stress.Analysis, d float64) { a.Volume += d },
		"speechRate": func(a *stress.Analysis, d float64) { a.SpeechRate += d },
		"pitch":      func(a *stress.Analysis, d float64) { a.Pitch += d },
		"variance":   func(a *stress.Analysis, d float64) { a.Raw.EnergyVariance += d },
	}

	for name, bump := range bumps {
		prev := baseScore
		for _, d := range []float64{0.001, 0.05, 0.2, 1, 10, 100} {
			a := base
			bump(&a, d)
			score := stress.Score(rules.Evaluate(&a))
			if score < prev {
				t.Fatalf("%s +%v: score %d dropped below %d", name, d, score, prev)
			}
			prev = score
		}
	}
}

func TestEmotionScorerCrisis(t *testing.T) {
	t.Parallel()

	pred, err := stress.NewPrediction([]float32{0.1, 0.6, 0.2, 0.05, 0.05})
	if err != nil {
		t.Fatal(err)
	}

	a := &stress.Analysis{Volume: 40, SpeechRate: 3, AIPrediction: &pred}
	got := stress.NewEmotionScorer(config.Default().Emotion).Classify(a)

	if got.Level != stress.Crisis {
		t.Fatalf("level = %s, want crisis", got.Level)
	}
	want := []string{stress.IndicatorStressed}
	if !reflect.DeepEqual(got.Indicators, want) {
		t.Fatalf("indicators = %q, want %q", got.Indicators, want)
	}
}

func TestNewPrediction(t *testing.T) {
	t.Parallel()

	if _, err := stress.NewPrediction([]float32{0.5, 0.5}); err == nil {
		t.Fatal("short output accepted")
	}

	nan := float32(0)
	nan = nan / nan
	if _, err := stress.NewPrediction([]float32{nan, 0, 0, 0, 0}); err == nil {
		t.Fatal("NaN output accepted")
	}

	p, err := stress.NewPrediction([]float32{0.1, 0.2, 0.3, 0.35, 0.05})
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelConfidence != float64(float32(0.35)) {
		t.Fatalf("confidence = %v, want 0.35", p.ModelConfidence)
	}
}

// =====================================================================================================================

func TestClassifierModelPath(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{out: []float32{0.1, 0.6, 0.2, 0.05, 0.05}}
	c := newClassifier(t, time.Second)
	c.InitModel(modelFile(t), loaderFor(p))

	if !c.UsingAI() {
		t.Fatal("model not in use")
	}

	a := loudHighPitch()
	a.Volume = 40
	got := c.Classify(context.Background(), a)

	if got.Level != stress.Crisis {
		t.Fatalf("level = %s, want crisis", got.Level)
	}
	if got.Confidence != float64(float32(0.6)) {
		t.Fatalf("confidence = %v, want 0.6", got.Confidence)
	}
	want := stress.Emotions{
		Calm:     float64(float32(0.1)),
		Stressed: float64(float32(0.6)),
		Angry:    float64(float32(0.2)),
		Fearful:  float64(float32(0.05)),
		Sad:      float64(float32(0.05)),
	}
	if got.Emotions == nil || *got.Emotions != want {
		t.Fatalf("emotions = %+v, want %+v", got.Emotions, want)
	}
	if got.EpochMillis() != 1_700_000_000_000 {
		t.Fatalf("timestamp = %d", got.EpochMillis())
	}
}

func TestClassifierMissingModel(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	loader := func(string) (stress.Predictor, error) {
		loads.Add(1)
		return &fakePredictor{}, nil
	}

	c := newClassifier(t, time.Second)
	c.InitModel(filepath.Join(t.TempDir(), "emotion_model.onnx"), loader)

	if c.UsingAI() {
		t.Fatal("UsingAI true without a model file")
	}
	if loads.Load() != 0 {
		t.Fatal("loader called for a missing file")
	}

	for i := 0; i < 3; i++ {
		got := c.Classify(context.Background(), loudHighPitch())
		if got.Level != stress.Crisis || got.Confidence != 0.75 || got.Emotions != nil {
			t.Fatalf("run %d: got %+v, want rule based crisis 0.75", i, got)
		}
	}
}

func TestClassifierLoaderFailure(t *testing.T) {
	t.Parallel()

	c := newClassifier(t, time.Second)
	c.InitModel(modelFile(t), func(string) (stress.Predictor, error) {
		return nil, stress.ErrModelUnavailable
	})

	if c.UsingAI() {
		t.Fatal("UsingAI true after loader failure")
	}
}

func TestClassifierFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		predictor *fakePredictor
		noMFCC    bool
	}{
		{name: "low confidence", predictor: &fakePredictor{out: []float32{0.4, 0.3, 0.1, 0.1, 0.1}}},
		{name: "inference error", predictor: &fakePredictor{err: errors.New("boom")}},
		{name: "bad output", predictor: &fakePredictor{out: []float32{1}}},
		{name: "no features", predictor: &fakePredictor{out: []float32{0, 1, 0, 0, 0}}, noMFCC: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newClassifier(t, time.Second)
			c.InitModel(modelFile(t), loaderFor(tt.predictor))

			a := loudHighPitch()
			if tt.noMFCC {
				a.MFCC = nil
			}
			got := c.Classify(context.Background(), a)

			if got.Emotions != nil {
				t.Fatal("model result used")
			}
			if got.Level != stress.Crisis || got.Confidence != 0.75 {
				t.Fatalf("got %s %v, want rule based crisis 0.75", got.Level, got.Confidence)
			}
		})
	}
}

func TestClassifierTimeout(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := metrics.New(mp)
	if err != nil {
		t.Fatal(err)
	}

	p := &fakePredictor{
		out:   []float32{0, 1, 0, 0, 0},
		block: make(chan struct{}),
	}
	c := stress.NewClassifier(stress.Config{
		Calibration:      config.Default(),
		InferenceTimeout: 20 * time.Millisecond,
	}, zap.NewNop().Sugar(), m)
	c.InitModel(modelFile(t), loaderFor(p))

	first := c.Classify(context.Background(), loudHighPitch())
	if first.Emotions != nil {
		t.Fatal("timed out inference used")
	}

	// The first call is still running; the second must not start another.
	second := c.Classify(context.Background(), loudHighPitch())
	if second.Emotions != nil {
		t.Fatal("busy inference used")
	}
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("predict calls = %d, want 1", n)
	}

	close(p.block)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !p.closed.Load() {
		t.Fatal("predictor not closed")
	}
	if c.UsingAI() {
		t.Fatal("UsingAI true after Close")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	reasons := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "voicestress.inference.fallbacks" {
				continue
			}
			for _, dp := range met.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value("reason")
				reasons[v.AsString()] = dp.Value
			}
		}
	}
	if reasons[stress.FallbackTimeout] != 1 || reasons[stress.FallbackBusy] != 1 {
		t.Fatalf("fallbacks = %v, want one timeout and one busy", reasons)
	}
}

func TestCalibrationSwap(t *testing.T) {
	t.Parallel()

	c := newClassifier(t, time.Second)

	a := &stress.Analysis{Volume: 60, Pitch: 180, SpeechRate: 3}
	if got := c.Classify(context.Background(), a); got.Level != stress.Calm {
		t.Fatalf("level = %s, want calm", got.Level)
	}

	cal := config.Default()
	cal.Rules.ShoutingVolume = 50
	c.SetCalibration(cal)

	if got := c.Classify(context.Background(), a); got.Level != stress.Moderate {
		t.Fatalf("level = %s, want moderate", got.Level)
	}
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	levels := []stress.Level{stress.Calm, stress.Mild, stress.Moderate, stress.High, stress.Crisis}
	want := []string{"calm", "mild", "moderate", "high", "crisis"}
	for i, l := range levels {
		if l.String() != want[i] {
			t.Fatalf("%d: %q, want %q", i, l.String(), want[i])
		}
		if i > 0 && levels[i-1] >= l {
			t.Fatalf("%s not above %s", l, levels[i-1])
		}
	}
}
