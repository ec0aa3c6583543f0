// Package logger 提供基于 zap 的全局日志
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu    sync.RWMutex
	log   *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" env:"MT_LOG_LEVEL"`   // debug, info, warn, error
	Format     string `yaml:"format" env:"MT_LOG_FORMAT"` // json, console
	Output     string `yaml:"output" env:"MT_LOG_OUTPUT"` // stdout, stderr, file, both
	FilePath   string `yaml:"file_path" env:"MT_LOG_FILE"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

// DefaultConfig 返回默认日志配置。
// 默认 warn 级别输出到 stderr，嵌入测试二进制时保持安静。
func DefaultConfig() *Config {
	return &Config{
		Level:      "warn",
		Format:     "console",
		Output:     "stderr",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
	}
}

// Init 初始化日志，可重复调用，后一次覆盖前一次
func Init(cfg *Config) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	SetLevelFromString(cfg.Level)

	var sinks []zapcore.WriteSyncer
	switch cfg.Output {
	case "stdout":
		sinks = append(sinks, zapcore.AddSync(os.Stdout))
	case "file":
		sinks = append(sinks, fileSink(cfg)...)
	case "both":
		sinks = append(sinks, zapcore.AddSync(os.Stdout))
		sinks = append(sinks, fileSink(cfg)...)
	default:
		sinks = append(sinks, zapcore.AddSync(os.Stderr))
	}
	replace(newLogger(cfg.Format, sinks...))
}

// SetOutput 将日志重定向到 w，主要用于测试
func SetOutput(w io.Writer, format string) {
	replace(newLogger(format, zapcore.AddSync(w)))
}

func fileSink(cfg *Config) []zapcore.WriteSyncer {
	if cfg.FilePath == "" {
		return nil
	}
	return []zapcore.WriteSyncer{zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	})}
}

func newLogger(format string, sinks ...zapcore.WriteSyncer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	cores := make([]zapcore.Core, 0, len(sinks))
	for _, s := range sinks {
		cores = append(cores, zapcore.NewCore(encoder, s, level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func replace(l *zap.Logger) {
	mu.Lock()
	old := log
	log = l
	mu.Unlock()
	if old != nil {
		_ = old.Sync()
	}
}

// SetLevelFromString 从字符串设置日志级别，未知值回退到 info
func SetLevelFromString(s string) {
	switch strings.ToLower(s) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "info":
		level.SetLevel(zapcore.InfoLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// EnableDebug 启用调试日志
func EnableDebug() {
	level.SetLevel(zapcore.DebugLevel)
}

// IsDebugEnabled 检查是否启用调试日志
func IsDebugEnabled() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// L 获取日志实例
func L() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = newLogger("console", zapcore.AddSync(os.Stderr))
	}
	return log
}

// Debug 调试日志
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info 信息日志
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error 错误日志
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Sync 同步日志
func Sync() {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}
