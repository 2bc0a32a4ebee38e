package logx

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var lg *zap.SugaredLogger

// Init builds the process logger. LOG_LEVEL picks the level, LOG_FILE adds a
// rotated file sink next to stdout.
func Init() {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level),
	}
	if path := os.Getenv("LOG_FILE"); path != "" {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotating(path)), level))
	}

	lg = zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
}

func rotating(path string) *lumberjack.Logger {
	maxSize, err := strconv.Atoi(os.Getenv("LOG_FILE_MAX_MB"))
	if err != nil || maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

func L() *zap.SugaredLogger {
	if lg == nil {
		Init()
	}
	return lg
}

// Set replaces the process logger; tests use it with zaptest/observer cores.
func Set(l *zap.SugaredLogger) { lg = l }

func Sync() { _ = L().Sync() }
