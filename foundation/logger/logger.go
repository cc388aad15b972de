// Package logger builds the zap logger shared by every goVoiceStress component.
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production sugared logger writing to <logDirectory>/<service>.log.
// An empty logDirectory logs to stderr.
func New(logDirectory string, service string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = false
	config.InitialFields = map[string]any{"service": service}

	if logDirectory != "" {
		if _, err := os.Stat(logDirectory); os.IsNotExist(err) {
			if err := os.MkdirAll(logDirectory, os.ModePerm); err != nil {
				return nil, err
			}
		}

		logPath := filepath.Join(logDirectory, service+".log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
		f.Close()

		config.OutputPaths = []string{logPath}
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}
