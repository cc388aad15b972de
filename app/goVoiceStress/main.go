package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/superfeelapi/goVoiceStress/business/crisis"
	"github.com/superfeelapi/goVoiceStress/business/monitor"
	"github.com/superfeelapi/goVoiceStress/business/stress"
	"github.com/superfeelapi/goVoiceStress/business/voice"
	"github.com/superfeelapi/goVoiceStress/foundation/capture"
	"github.com/superfeelapi/goVoiceStress/foundation/config"
	"github.com/superfeelapi/goVoiceStress/foundation/logger"
	"github.com/superfeelapi/goVoiceStress/foundation/metrics"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "develop"
	buildTime string
)

func main() {
	// =================================================================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Audio struct {
			Source     string `conf:"default:microphone,help:microphone or eagi"`
			SampleRate int    `conf:"default:16000"`
		}
		Monitor struct {
			Interval     time.Duration `conf:"default:5s"`
			ClipDuration time.Duration `conf:"default:3s"`
		}
		Model struct {
			Dir               string        `conf:"default:./models"`
			File              string        `conf:"default:emotion_model.onnx"`
			InputName         string        `conf:"default:input"`
			OutputName        string        `conf:"default:output"`
			Frames            int           `conf:"default:100"`
			SharedLibraryPath string        `conf:"noprint"`
			InferenceTimeout  time.Duration `conf:"default:300ms"`
		}
		Calibration struct {
			Path string
		}
		Crisis struct {
			Cooldown time.Duration `conf:"default:60s"`
		}
		Metrics struct {
			DebugHost string `conf:"help:empty disables the prometheus endpoint"`
		}
		Logger struct {
			LogDirectory string `conf:"noprint"`
		}
	}{
		Version: conf.Version{
			Build: version,
			Desc:  buildTime,
		},
	}

	help, err := conf.Parse("VOICESTRESS", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: parsing config: %s\n", err)
		os.Exit(1)
	}

	// =================================================================================================================
	// Application Logger

	log, err := logger.New(cfg.Logger.LogDirectory, "goVoiceStress")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// =================================================================================================================
	// Configuration Stringify

	out, err := conf.String(&cfg)
	if err != nil {
		log.Errorw("startup", "ERROR", err)
	}
	log.Infow("startup", "version", version, "config", out)

	// =================================================================================================================
	// Calibration

	calibration := config.Default()
	if cfg.Calibration.Path != "" {
		calibration, err = config.Load(cfg.Calibration.Path)
		if err != nil {
			log.Errorw("startup", "ERROR", err)
			os.Exit(1)
		}
	}

	// =================================================================================================================
	// Metrics

	reg := prometheus.NewRegistry()
	if cfg.Metrics.DebugHost != "" {
		shutdownMetrics, err := metrics.InitPrometheus(reg)
		if err != nil {
			log.Errorw("startup", "ERROR", err)
			os.Exit(1)
		}
		defer shutdownMetrics(context.Background())
	}

	met, err := metrics.New(otel.GetMeterProvider())
	if err != nil {
		log.Errorw("startup", "ERROR", err)
		os.Exit(1)
	}

	// =================================================================================================================
	// Run

	if err := run(log, met, reg, calibration, runConfig{
		source:     cfg.Audio.Source,
		sampleRate: cfg.Audio.SampleRate,
		monitor: monitor.Config{
			Interval:     cfg.Monitor.Interval,
			ClipDuration: cfg.Monitor.ClipDuration,
		},
		modelPath: filepath.Join(cfg.Model.Dir, cfg.Model.File),
		onnx: stress.ONNXConfig{
			SharedLibraryPath: cfg.Model.SharedLibraryPath,
			InputName:         cfg.Model.InputName,
			OutputName:        cfg.Model.OutputName,
			Frames:            cfg.Model.Frames,
		},
		frames:           cfg.Model.Frames,
		inferenceTimeout: cfg.Model.InferenceTimeout,
		calibrationPath:  cfg.Calibration.Path,
		crisisCooldown:   cfg.Crisis.Cooldown,
		metricsDebugHost: cfg.Metrics.DebugHost,
	}); err != nil {
		log.Errorw("shutdown", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

type runConfig struct {
	source           string
	sampleRate       int
	monitor          monitor.Config
	modelPath        string
	onnx             stress.ONNXConfig
	frames           int
	inferenceTimeout time.Duration
	calibrationPath  string
	crisisCooldown   time.Duration
	metricsDebugHost string
}

func run(log *zap.SugaredLogger, met *metrics.Metrics, reg *prometheus.Registry, cal config.Calibration, cfg runConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =================================================================================================================
	// Audio Source

	var source interface {
		capture.Capturer
		capture.Permissions
	}
	switch cfg.source {
	case "microphone":
		source = capture.NewMicrophone(cfg.sampleRate, log)
	case "eagi":
		source = capture.NewEagi(log)
	default:
		return fmt.Errorf("unknown audio source %q", cfg.source)
	}
	defer source.Close()

	// =================================================================================================================
	// Classifier and Pipeline

	classifier := stress.NewClassifier(stress.Config{
		Calibration:      cal,
		InferenceTimeout: cfg.inferenceTimeout,
	}, log, met)
	defer classifier.Close()

	pipeline := voice.New(voice.Settings{
		Calibration: cal,
		MFCCFrames:  cfg.frames,
		Logger:      log,
		Metrics:     met,
		Classifier:  classifier,
	})

	// =================================================================================================================
	// Crisis Workflow

	workflow := crisis.New(crisis.Config{Cooldown: cfg.crisisCooldown}, crisis.Handlers{}, log)
	alerts := workflow.Subscribe(8)

	// =================================================================================================================
	// Monitoring Controller

	controller, err := monitor.New(monitor.Settings{
		Config:      cfg.monitor,
		Logger:      log,
		Metrics:     met,
		Capturer:    source,
		Permissions: source,
		Analyzer:    pipeline,
		OnStressDetected: func(level stress.StressLevel) {
			workflow.Handle(level)
		},
		OnError: func(message string) {
			log.Warnw("monitor", "message", message)
		},
	})
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// The model loads in the background; until then ticks use the rules.
	g.Go(func() error {
		classifier.InitModel(cfg.modelPath, stress.ONNXLoader(cfg.onnx))
		return nil
	})

	if cfg.calibrationPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, cfg.calibrationPath, log, func(c config.Calibration) {
				log.Infow("calibration: reloaded", "path", cfg.calibrationPath)
				pipeline.SetCalibration(c)
			})
		})
	}

	if cfg.metricsDebugHost != "" {
		srv := &http.Server{
			Addr:              cfg.metricsDebugHost,
			Handler:           metrics.DebugMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Infow("startup", "status", "debug router started", "host", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		for {
			select {
			case alert, ok := <-alerts.GetChannel():
				if !ok {
					return nil
				}
				log.Infow("crisis: alert",
					"id", alert.ID,
					"level", alert.Level.String(),
					"urgent", alert.Urgent,
					"actions", alert.Actions,
					"indicators", alert.Indicators,
				)
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		if !controller.StartMonitoring(gctx) {
			return errors.New("monitoring could not start")
		}
		<-gctx.Done()

		log.Infow("shutdown", "status", "shutdown started")
		controller.StopMonitoring()
		log.Infow("shutdown", "status", "shutdown complete")
		return nil
	})

	return g.Wait()
}
