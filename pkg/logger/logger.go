package logger

import (
	"context"
	"os"

	"github.com/digitalvishon/taskpay/internal/config"
	sqldblogger "github.com/simukti/sqldb-logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging interface the application works with.
type Logger interface {
	// With returns a logger based off the root logger and decorated
	// with the given context and arguments.
	With(ctx context.Context, args ...interface{}) Logger

	Debug(args ...interface{})
	Info(args ...interface{})
	Error(args ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// Log adapts the logger to the sqldb-logger driver so database
	// queries are reported through the same sink.
	Log(ctx context.Context, level sqldblogger.Level, msg string, data map[string]interface{})

	// Sync flushes any buffered log entries.
	Sync() error
}

type logger struct {
	*zap.SugaredLogger
}

var _ Logger = (*logger)(nil)

// New creates a new logger writing both to stderr and, when a path is
// configured, to a size-rotated log file.
func New(cfg *config.Config) Logger {
	level, err := zapcore.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(os.Stderr),
			level,
		),
	}

	if cfg.Logger.Path != "" {
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Logger.Path,
			MaxSize:    cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAge:     cfg.Logger.MaxAgeDays,
		})
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			fileSink,
			level,
		))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	return &logger{l.Sugar()}
}

// NewWithZap creates a logger backed by an existing zap logger.
func NewWithZap(l *zap.Logger) Logger {
	return &logger{l.Sugar()}
}

func (l *logger) With(_ context.Context, args ...interface{}) Logger {
	if len(args) > 0 {
		return &logger{l.SugaredLogger.With(args...)}
	}
	return l
}

func (l *logger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]interface{}) {
	args := make([]interface{}, 0, len(data)*2)
	for k, v := range data {
		args = append(args, k, v)
	}

	switch level {
	case sqldblogger.LevelError:
		l.SugaredLogger.Errorw(msg, args...)
	case sqldblogger.LevelInfo:
		l.SugaredLogger.Infow(msg, args...)
	default:
		l.SugaredLogger.Debugw(msg, args...)
	}
}
