package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/superfeelapi/goVoiceStress/foundation/config"
	"go.uber.org/zap"
)

func TestDecode(t *testing.T) {
	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Parallel()
		cal, err := config.Decode(strings.NewReader("rules:\n  high_pitch_hz: 250\n"))
		if err != nil {
			t.Fatal(err)
		}
		if cal.Rules.HighPitchHz != 250 {
			t.Fatalf("high pitch = %v, want 250", cal.Rules.HighPitchHz)
		}
		if cal.Rules.ShoutingVolume != config.Default().Rules.ShoutingVolume {
			t.Fatalf("shouting volume = %v, want default", cal.Rules.ShoutingVolume)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		cal, err := config.Decode(strings.NewReader(""))
		if err != nil {
			t.Fatal(err)
		}
		if cal != config.Default() {
			t.Fatalf("empty file should yield defaults, got %+v", cal)
		}
	})

	t.Run("inverted band", func(t *testing.T) {
		t.Parallel()
		_, err := config.Decode(strings.NewReader("gate:\n  zcr_min: 0.5\n  zcr_max: 0.1\n"))
		if err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		_, err := config.Decode(strings.NewReader("gate: [1, 2"))
		if err == nil {
			t.Fatal("expected decode error")
		}
	})
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  shouting_volume: 70\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan config.Calibration, 16)
	done := make(chan error, 1)
	go func() {
		done <- config.Watch(ctx, path, zap.NewNop().Sugar(), func(c config.Calibration) {
			select {
			case applied <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("rules:\n  shouting_volume: 80\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A write can surface as truncate+write events; wait for the final content.
	timeout := time.After(3 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case cal := <-applied:
			reloaded = cal.Rules.ShoutingVolume == 80
		case <-timeout:
			t.Fatal("calibration was not reloaded")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
