package logger

import (
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is usable before InitializeLogger runs so packages that log from
// init or from tests never hit a nil logger.
var Logger = zap.NewNop()

func InitializeLogger() {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	level := zapcore.InfoLevel
	if os.Getenv("GIN_MODE") == "debug" {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)}
	var rotateErr error
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		writer, err := rotatelogs.New(
			filepath.Join(dir, "fingerprint.%Y%m%d.log"),
			rotatelogs.WithLinkName(filepath.Join(dir, "fingerprint.log")),
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			rotateErr = err
		} else {
			cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(writer), level))
		}
	}

	Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	if rotateErr != nil {
		Warning("could not open rotating log file", LoggerOptions{Key: "error", Data: rotateErr})
	}
	Info("logger initialised")
}
