// Package logger 是对 go.uber.org/zap 的简单封装。
// 未调用 InitLogger 之前，使用输出到 stderr 的 INFO 级别控制台日志。
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger log writer
var Logger *zap.Logger

// SugarLogger simple logger
var SugarLogger *zap.SugaredLogger

func init() {
	core := zapcore.NewCore(getConsoleEncoder(), zapcore.Lock(os.Stderr), zapcore.InfoLevel)
	Set(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

// InitLogger Initialize logger
func InitLogger(cfg *Config) error {
	level := new(zapcore.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
	}

	var core zapcore.Core
	if cfg.FileName == "" {
		core = zapcore.NewCore(getConsoleEncoder(), zapcore.Lock(os.Stderr), level)
	} else {
		syncWriter := getLogWriter(cfg.FileName, cfg.MaxAge, cfg.MaxSize, cfg.MaxBackups, cfg.Compress)
		core = zapcore.NewCore(getEncoder(), syncWriter, level)
	}

	Set(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// Set 替换全局 logger，测试里用来挂 observer
func Set(l *zap.Logger) {
	Logger = l
	SugarLogger = l.Sugar()
}

func getEncoder() zapcore.Encoder {
	encodeConfig := zap.NewProductionEncoderConfig()
	encodeConfig.TimeKey = "time"
	encodeConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encodeConfig.EncodeDuration = zapcore.SecondsDurationEncoder
	encodeConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encodeConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(encodeConfig)
}

func getConsoleEncoder() zapcore.Encoder {
	encodeConfig := zap.NewDevelopmentEncoderConfig()
	encodeConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encodeConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encodeConfig)
}

func getLogWriter(filename string, maxAge, maxSize, maxBackups int, compress bool) zapcore.WriteSyncer {
	lumberJackLogger := &lumberjack.Logger{
		Filename:   filename,
		MaxAge:     maxAge,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   compress,
	}
	return zapcore.AddSync(lumberJackLogger)
}

// Debug logs a message at DebugLevel. The message includes any fields passed
// at the log site, as well as any fields accumulated on the logger.
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Info logs a message at InfoLevel. The message includes any fields passed
// at the log site, as well as any fields accumulated on the logger.
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Warn logs a message at WarnLevel. The message includes any fields passed
// at the log site, as well as any fields accumulated on the logger.
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Error logs a message at ErrorLevel. The message includes any fields passed
// at the log site, as well as any fields accumulated on the logger.
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	return Logger.Sync()
}
