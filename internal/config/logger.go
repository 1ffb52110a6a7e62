package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

type LoggerConfig struct {
	Level string `yaml:"level"`
}

type LoggingConfig struct {
	ConsoleLogger LoggerConfig `yaml:"console"`
}

func (conf *LoggingConfig) validate() error {
	switch conf.ConsoleLogger.Level {
	case "none", "normal", "debug":
		return nil
	default:
		return fmt.Errorf("logging.console.level must be one of none, normal, debug: got %q", conf.ConsoleLogger.Level)
	}
}

// Prepare returns the program logger. Errors go to stderr, everything else
// allowed by the level to stdout.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}

	encoder := func(stream *os.File) zapcore.Encoder {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeCaller = nil
		if EnableColorOutput(stream) {
			ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
			ec.TimeKey = zapcore.OmitKey
		} else {
			ec.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		return zapcore.NewConsoleEncoder(ec)
	}

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	var minLevel zapcore.Level
	switch conf.ConsoleLogger.Level {
	case "none":
		return zap.NewNop(), nil
	case "debug":
		minLevel = zapcore.DebugLevel
	default:
		minLevel = zapcore.InfoLevel
	}

	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return minLevel <= lvl && lvl < zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder(os.Stderr), zapcore.Lock(os.Stderr), highPriority),
		zapcore.NewCore(encoder(os.Stdout), zapcore.Lock(os.Stdout), lowPriority),
	)
	return zap.New(core).Named("hxembed"), nil
}

// EnableColorOutput checks if colorized output is possible.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
