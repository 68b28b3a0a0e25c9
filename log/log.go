package log

import (
	"context"

	"github.com/hatlonely/liteorm/ref"
)

const Namespace = "github.com/hatlonely/liteorm/log"

var defaultLogger Logger

func init() {
	ref.MustRegister(Namespace, "ConsoleWriter", NewConsoleWriterWithOptions)
	ref.MustRegister(Namespace, "FileWriter", NewFileWriterWithOptions)

	// 默认日志器向终端输出 text 格式日志
	l, err := NewLogWithOptions(&Options{Level: "info", Format: "text"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = l
}

func Default() Logger {
	return defaultLogger
}

// Discard 返回丢弃所有输出的日志器
func Discard() Logger {
	return discardLogger{}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

func (discardLogger) DebugContext(context.Context, string, ...any) {}
func (discardLogger) InfoContext(context.Context, string, ...any)  {}
func (discardLogger) WarnContext(context.Context, string, ...any)  {}
func (discardLogger) ErrorContext(context.Context, string, ...any) {}

func (d discardLogger) With(...any) Logger      { return d }
func (d discardLogger) WithGroup(string) Logger { return d }
