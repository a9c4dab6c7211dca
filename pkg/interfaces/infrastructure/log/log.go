// Package log 定义交换核心使用的日志接口，实现由 internal/core/infrastructure/log 注入
package log

import "go.uber.org/zap"

// Logger 各模块持有的日志记录器
//
// With 的参数是键值对，例如 With("swap_id", id, "role", "initiator")。
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	// Fatal 记录后退出进程，只允许在启动阶段使用
	Fatal(msg string)

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	With(args ...interface{}) Logger
	Sync() error

	// GetZapLogger 供 fx 事件日志等需要原始 zap 的地方使用
	GetZapLogger() *zap.Logger
}
