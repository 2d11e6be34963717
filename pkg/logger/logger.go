package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"media-service/pkg/config"
)

// Logger 日志服务，封装logrus便于统一配置
type Logger struct {
	entry *logrus.Logger
}

// NewLogger 根据配置创建日志服务
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level := logrus.InfoLevel
	if cfg != nil {
		if parsed, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)

	if cfg != nil && cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	l.SetOutput(buildOutput(cfg))

	return &Logger{entry: l}
}

func buildOutput(cfg *config.Config) io.Writer {
	if cfg == nil || cfg.Log.Output != "file" || cfg.Log.Filename == "" {
		return os.Stdout
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}
	// 文件输出同时镜像到stdout，容器环境靠stdout收集
	return io.MultiWriter(os.Stdout, rotator)
}

// Raw 暴露底层logrus实例
func (l *Logger) Raw() *logrus.Logger {
	return l.entry
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.entry.WithFields(mergeFields(fields)).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.entry.WithFields(mergeFields(fields)).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.entry.WithFields(mergeFields(fields)).Warn(msg)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.entry.WithFields(mergeFields(fields)).Error(msg)
}

func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.entry.WithFields(mergeFields(fields)).Fatal(msg)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func mergeFields(fields []map[string]interface{}) logrus.Fields {
	merged := logrus.Fields{}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// SetGlobalLogger 设置全局日志器（启动阶段调用一次）
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func global() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	// 日志器未初始化时退回默认配置，避免启动早期丢日志
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewLogger(nil)
	}
	return globalLogger
}

// 包级函数委托给全局日志器

func Debug(msg string, fields ...map[string]interface{}) { global().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { global().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { global().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { global().Error(msg, fields...) }

func Debugf(format string, args ...interface{}) { global().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { global().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { global().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { global().Errorf(format, args...) }

// Fatal 记录后退出进程
func Fatal(msg string, fields ...map[string]interface{}) { global().Fatal(msg, fields...) }

// Fatalf 格式化记录后退出进程
func Fatalf(format string, args ...interface{}) {
	global().Fatal(fmt.Sprintf(format, args...))
}
