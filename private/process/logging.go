// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package process

import (
	"os"
	"runtime"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logConfig is bound to the root command by Execute.
var logConfig LogConfig

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string
	Development bool
	Caller      bool
	Stack       bool
	Encoding    string
	Output      string
}

// BindFlags adds the logging flags to the flagset.
func (config *LogConfig) BindFlags(flag *pflag.FlagSet) {
	flag.StringVar(&config.Level, "log.level", "info", "the minimum log level to log")
	flag.BoolVar(&config.Development, "log.development", false, "if true, set logging to development mode")
	flag.BoolVar(&config.Caller, "log.caller", false, "if true, log function filename and line number")
	flag.BoolVar(&config.Stack, "log.stack", false, "if true, log stack traces")
	flag.StringVar(&config.Encoding, "log.encoding", "console", "configures log encoding. can either be 'console' or 'json'")
	flag.StringVar(&config.Output, "log.output", "stderr", "can be stdout, stderr, or a filename")
}

// NewLogger creates new logger configured by the process flags.
func NewLogger() (*zap.Logger, error) {
	return logConfig.NewLogger()
}

// NewLogger creates a logger from the configuration.
func (config LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	levelEncoder := zapcore.CapitalColorLevelEncoder
	if runtime.GOOS == "windows" || config.Encoding == "json" {
		levelEncoder = zapcore.CapitalLevelEncoder
	}

	timeKey := "T"
	if os.Getenv("CATALOGSYNC_LOG_NOTIME") != "" {
		// using environment variable CATALOGSYNC_LOG_NOTIME to avoid additional flags
		timeKey = ""
	}

	logger, err := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       config.Development,
		DisableCaller:     !config.Caller,
		DisableStacktrace: !config.Stack,
		Encoding:          config.Encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        timeKey,
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    levelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{config.Output},
		ErrorOutputPaths: []string{config.Output},
	}.Build()
	return logger, Error.Wrap(err)
}
