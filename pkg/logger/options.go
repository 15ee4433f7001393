package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogBuilder builds a log entry with a fluent interface.
type LogBuilder struct {
	Logger *Logger
	Ctx    context.Context
	Level  LogLevel
	Meta   map[string]string
	Fields []interface{}
}

// WithFormat sets the Fiber logger format.
func WithFormat(format string) LoggerOption {
	return func(l *Logger) { l.Format = format }
}

// WithTimeFormat sets the timestamp format.
func WithTimeFormat(timeformat string) LoggerOption {
	return func(l *Logger) { l.TimeFormat = timeformat }
}

// WithOutputDir sets the output directory of the log files.
func WithOutputDir(dir string) LoggerOption {
	return func(l *Logger) { l.OutputDir = dir }
}

// WithMaxFileSize sets the maximum size of a single log file.
func WithMaxFileSize(size int) LoggerOption {
	return func(l *Logger) { l.MaxSizeMB = size }
}

// WithMaxDays sets the maximum age for the log files.
func WithMaxDays(days int) LoggerOption {
	return func(l *Logger) { l.MaxAgeDays = days }
}

// Debug starts a debug-level log entry.
func (l *Logger) Debug(ctx context.Context) *LogBuilder {
	return &LogBuilder{Logger: l, Ctx: ctx, Level: LevelDebug}
}

// Info starts an info-level log entry.
func (l *Logger) Info(ctx context.Context) *LogBuilder {
	return &LogBuilder{Logger: l, Ctx: ctx, Level: LevelInfo}
}

// Warn starts a warn-level log entry.
func (l *Logger) Warn(ctx context.Context) *LogBuilder {
	return &LogBuilder{Logger: l, Ctx: ctx, Level: LevelWarn}
}

// Error starts an error-level log entry.
func (l *Logger) Error(ctx context.Context) *LogBuilder {
	return &LogBuilder{Logger: l, Ctx: ctx, Level: LevelError}
}

// WithMeta adds metadata to the log entry.
func (b *LogBuilder) WithMeta(meta map[string]string) *LogBuilder {
	b.Meta = meta
	return b
}

// WithFields adds formatted fields to the message.
func (b *LogBuilder) WithFields(fields ...interface{}) *LogBuilder {
	b.Fields = fields
	return b
}

// Logs submits the entry to the async queue.
func (b *LogBuilder) Logs(msg string) {
	entry := LogEntry{
		TimeStamp: time.Now().Format(b.Logger.TimeFormat),
		Level:     string(b.Level),
		Message:   msg,
		Meta:      b.Meta,
	}
	if len(b.Fields) > 0 {
		entry.Message = fmt.Sprintf(msg, b.Fields...)
	}

	if b.Ctx != nil {
		if reqID, ok := b.Ctx.Value("request_id").(string); ok {
			entry.RequestID = reqID
		}

		if c, ok := b.Ctx.Value("fiber_ctx").(*fiber.Ctx); ok {
			entry.Path = c.Path()
			entry.Method = c.Method()
			entry.Status = c.Response().StatusCode()
			entry.Latency = time.Since(c.Context().Time()).String()
		}
	}

	b.Logger.Queue <- entry
}
