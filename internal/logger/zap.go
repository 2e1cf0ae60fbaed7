package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger embeds the sugared zap logger, so call sites use Infow, Warnw and
// friends directly.
type Logger struct {
	*zap.SugaredLogger
}

// parseLevel maps log_level to a zap level. Anything unparseable logs at
// debug; levels above error are capped so failures always reach the console.
func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(s))
	if err != nil || strings.TrimSpace(s) == "" {
		return zapcore.DebugLevel
	}
	if lvl > zapcore.ErrorLevel {
		return zapcore.ErrorLevel
	}
	return lvl
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.NameKey = "component"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func newLogger(level string, out zapcore.WriteSyncer) *Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(out),
		zap.NewAtomicLevelAt(parseLevel(level)),
	)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

func newStdoutLogger(level string) *Logger {
	return newLogger(level, zapcore.AddSync(os.Stdout))
}
