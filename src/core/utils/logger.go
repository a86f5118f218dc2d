package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// 日志级别
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger 简单的分级日志器，同时输出到stdout和日志文件
type Logger struct {
	mu    sync.Mutex
	level int
	out   io.Writer
	file  *os.File
}

func parseLevel(level string) int {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// NewLogger 创建日志器，打开logDir/logFile作为日志文件
func NewLogger(level, logDir, logFile string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %v", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %v", err)
	}
	return &Logger{
		level: parseLevel(level),
		out:   io.MultiWriter(os.Stdout, f),
		file:  f,
	}, nil
}

// NewLoggerWithWriter 创建只输出到指定writer的日志器，用于测试和嵌入场景
func NewLoggerWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		level: parseLevel(level),
		out:   w,
	}
}

func (l *Logger) log(level int, tag string, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "[%s][%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), tag, msg)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, "DEBUG", format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, "INFO", format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, "WARN", format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, "ERROR", format, args...)
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
