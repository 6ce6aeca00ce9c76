package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"

	"github.com/palemoky/spade-three/internal/config"
)

// maxLogSize 超过该大小的日志文件在启动时轮转
const maxLogSize = 10 * 1024 * 1024

// New 按配置创建根 logger。返回的 closer 用于关闭日志文件，未配置文件时为空操作。
func New(cfg config.LogConfig) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := openFile(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, f
	}

	l := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Formatter:       formatter(cfg.Format),
	})
	return l, closer, nil
}

func formatter(name string) log.Formatter {
	switch name {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// openFile 追加打开日志文件，过大时先轮转
func openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if info, err := os.Stat(path); err == nil && info.Size() > maxLogSize {
		backup := fmt.Sprintf("%s.%d", path, time.Now().Unix())
		_ = os.Rename(path, backup)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Discard 丢弃所有输出，测试用
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// LogPanic 记录 recover 到的 panic 及堆栈
func LogPanic(l *log.Logger, r any) {
	l.Error("💥 panic recovered", "panic", r, "stack", string(debug.Stack()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
