// Package logging builds zap loggers from presets.
package logging

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger returns a new [*zap.Logger] with the given preset and log level.
//
// The available presets are:
//
//   - "console": Reasonable defaults for console environments.
//   - "console-nocolor": Same as "console", but without color.
//   - "console-notime": Same as "console", but without timestamps.
//   - "systemd": Same as "console", but without color and timestamps.
//   - "production": Zap's built-in production preset.
//   - "development": Zap's built-in development preset.
//
// Any other value is treated as a path to a JSON zap configuration file.
// The log level only applies to the console and systemd presets.
func NewZapLogger(preset string, level zapcore.Level) (*zap.Logger, error) {
	switch preset {
	case "console":
		return NewConsoleZapLogger(level, false, false)
	case "console-nocolor":
		return NewConsoleZapLogger(level, true, false)
	case "console-notime":
		return NewConsoleZapLogger(level, false, true)
	case "systemd":
		return NewConsoleZapLogger(level, true, true)
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return NewZapLoggerFromConfigFile(preset)
	}
}

// NewConsoleZapLogger returns a console logger at the given level.
func NewConsoleZapLogger(level zapcore.Level, noColor, noTime bool) (*zap.Logger, error) {
	ec := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if noColor {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if noTime {
		ec.TimeKey = zapcore.OmitKey
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig:     ec,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	return zc.Build()
}

// NewZapLoggerFromConfigFile builds a logger from the JSON zap configuration at path.
func NewZapLoggerFromConfigFile(path string) (*zap.Logger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zap config: %w", err)
	}

	var zc zap.Config
	if err = json.Unmarshal(data, &zc); err != nil {
		return nil, fmt.Errorf("failed to parse zap config: %w", err)
	}
	return zc.Build()
}
