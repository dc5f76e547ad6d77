package logger

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Field = zap.Field

type Logger interface {
    Info(msg string, fields ...zap.Field)
    Error(msg string, fields ...zap.Field)
    Debug(msg string, fields ...zap.Field)
    Warn(msg string, fields ...zap.Field)
}

const (
    infoLogName  = "info.log"
    errorLogName = "error.log"
)

// NewLogger writes info and below to <dir>/info.log and warnings and above to <dir>/error.log.
func NewLogger(dir string) (*zap.Logger, func()) {
    if err := os.MkdirAll(dir, 0755); err != nil {
        panic("failed to create log directory: " + err.Error())
    }

    infoFile := mustOpen(filepath.Join(dir, infoLogName))
    errorFile := mustOpen(filepath.Join(dir, errorLogName))

    encoder := zapcore.NewJSONEncoder(ledgerEncoderConfig())
    core := zapcore.NewTee(
        zapcore.NewCore(encoder, zapcore.AddSync(infoFile), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
            return lvl <= zapcore.InfoLevel
        })),
        zapcore.NewCore(encoder.Clone(), zapcore.AddSync(errorFile), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
            return lvl >= zapcore.WarnLevel
        })),
    )

    log := zap.New(core, zap.AddCaller()).With(zap.Int("pid", os.Getpid()))

    return log, func() {
        _ = log.Sync()
        infoFile.Close()
        errorFile.Close()
    }
}

func mustOpen(path string) *os.File {
    f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
    if err != nil {
        panic("failed to open log file " + path + ": " + err.Error())
    }
    return f
}

func ledgerEncoderConfig() zapcore.EncoderConfig {
    cfg := zap.NewProductionEncoderConfig()
    cfg.TimeKey = "timestamp"
    cfg.MessageKey = "message"
    cfg.EncodeTime = zapcore.ISO8601TimeEncoder
    cfg.EncodeDuration = zapcore.MillisDurationEncoder
    return cfg
}

func StringField(key, value string) Field {
    return zap.String(key, value)
}

func StringsField(key string, values []string) Field {
    return zap.Strings(key, values)
}

func ErrorField(key string, err error) Field {
    return zap.NamedError(key, err)
}

func AnyField(key string, value interface{}) Field {
    return zap.Any(key, value)
}

func Int64Field(key string, value int64) Field {
    return zap.Int64(key, value)
}

func IntField(key string, value int) Field {
    return zap.Int(key, value)
}

// DurationField is rendered in milliseconds.
func DurationField(key string, value time.Duration) Field {
    return zap.Duration(key, value)
}
