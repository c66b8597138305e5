package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level 日志级别
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String 返回日志级别的字符串表示
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel 从配置字符串解析日志级别，无法识别时回落到 INFO
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "info", "":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Logger 日志记录器
type Logger struct {
	level  Level
	output io.Writer
	format string
	prefix string
	file   *os.File
}

// Config 日志配置
type Config struct {
	Level  Level
	Format string // text 或 json
	Output string // stdout、stderr 或文件路径
	Prefix string
}

// NewLogger 创建新的日志记录器
func NewLogger(config *Config) (*Logger, error) {
	logger := &Logger{
		level:  config.Level,
		format: config.Format,
		prefix: config.Prefix,
	}
	if err := logger.setOutput(config.Output); err != nil {
		return nil, err
	}
	return logger, nil
}

// setOutput 设置日志输出
func (l *Logger) setOutput(output string) error {
	switch output {
	case "stdout", "":
		l.output = os.Stdout
	case "stderr":
		l.output = os.Stderr
	default:
		// 作为文件路径处理
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("创建日志目录失败: %v", err)
			}
		}
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %v", err)
		}
		l.file = file
		l.output = file
	}
	return nil
}

// formatMessage 格式化日志消息
func (l *Logger) formatMessage(level Level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	switch l.format {
	case "json":
		// 消息里可能带引号和反斜杠，必须走序列化而不是字符串拼接
		line, err := json.Marshal(jsonRecord{
			Timestamp: timestamp,
			Level:     level.String(),
			Prefix:    l.prefix,
			Message:   message,
		})
		if err != nil {
			return fmt.Sprintf("[%s] %s [%s] %s", timestamp, level.String(), l.prefix, message)
		}
		return string(line)
	default:
		return fmt.Sprintf("[%s] %s [%s] %s",
			timestamp, level.String(), l.prefix, message)
	}
}

type jsonRecord struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Prefix    string `json:"prefix"`
	Message   string `json:"message"`
}

// log 记录日志
func (l *Logger) log(level Level, message string) {
	if level < l.level {
		return
	}
	if l.output != nil {
		fmt.Fprintln(l.output, l.formatMessage(level, message))
	}
}

// Debug 记录调试日志
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(format, args...))
}

// Info 记录信息日志
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...))
}

// Warn 记录警告日志
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, fmt.Sprintf(format, args...))
}

// Error 记录错误日志
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...))
}

// Fatal 记录致命错误日志并退出
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Close 关闭日志记录器
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Discard 返回丢弃所有输出的记录器，供测试使用
func Discard() *Logger {
	return &Logger{level: FATAL, output: io.Discard}
}
