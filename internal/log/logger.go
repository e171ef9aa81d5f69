// Package log is the structured logger used across mdpress. It keeps a small
// field-oriented API (F, With, LogWithFields, LogWithError) on top of logrus.
package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mdpress/internal/errors"
)

var (
	debugMu sync.RWMutex
	isDebug = false

	loggerMu sync.RWMutex
	logger   = NewLogger()
)

// Field is a single key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger writes leveled, structured entries.
type Logger struct {
	entry *logrus.Entry
	level logrus.Level
	file  *os.File
}

type options struct {
	out   io.Writer
	json  bool
	file  string
	level logrus.Level
}

// Option configures a Logger.
type Option func(*options)

// WithOutput sends entries to w instead of stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to one JSON object per line.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile tees entries into the file at path (appending).
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// WithLevel sets the minimum level by name ("debug", "info", "warn", "error").
// Unknown names keep the default.
func WithLevel(name string) Option {
	return func(o *options) {
		if lvl, err := logrus.ParseLevel(name); err == nil {
			o.level = lvl
		}
	}
}

// NewLogger creates a Logger. Without options it writes text to stderr at
// info level.
func NewLogger(opts ...Option) *Logger {
	o := options{out: os.Stderr, level: logrus.InfoLevel}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Logger{level: o.level}
	out := o.out
	if o.file != "" {
		f, err := os.OpenFile(o.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log: cannot open %s: %v\n", o.file, err)
		} else {
			l.file = f
			out = io.MultiWriter(o.out, f)
		}
	}

	base := logrus.New()
	base.SetOutput(out)
	// Level gating happens in Logger so SetDebug can lift it at runtime.
	base.SetLevel(logrus.DebugLevel)
	if o.json {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyTime: "timestamp",
			},
		})
	} else {
		base.SetFormatter(&textFormatter{})
	}
	l.entry = logrus.NewEntry(base)
	return l
}

// Configure replaces the package level logger. Loggers already handed out
// by Default keep writing where they did.
func Configure(opts ...Option) {
	l := NewLogger(opts...)
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// Default returns the package level logger.
func Default() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetDebug enables debug output on every logger.
func SetDebug(debug bool) {
	debugMu.Lock()
	defer debugMu.Unlock()
	isDebug = debug
}

func debugEnabled() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return isDebug
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data), level: l.level, file: l.file}
}

// WithContext attaches the request id stored in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if id, ok := RequestID(ctx); ok {
		return l.With(F("request_id", id))
	}
	return l
}

// WithError attaches err and the context carried by typed errors.
func (l *Logger) WithError(err error) *Logger {
	return l.With(errorFields(err)...)
}

func (l *Logger) enabled(level logrus.Level) bool {
	if level == logrus.DebugLevel && debugEnabled() {
		return true
	}
	return l.level >= level
}

func (l *Logger) log(skip int, level logrus.Level, msg string) {
	if !l.enabled(level) {
		return
	}
	entry := l.entry
	if _, file, line, ok := runtime.Caller(skip); ok {
		entry = entry.WithField("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	}
	entry.Log(level, msg)
}

func (l *Logger) Info(msg string)  { l.log(2, logrus.InfoLevel, msg) }
func (l *Logger) Warn(msg string)  { l.log(2, logrus.WarnLevel, msg) }
func (l *Logger) Error(msg string) { l.log(2, logrus.ErrorLevel, msg) }
func (l *Logger) Debug(msg string) { l.log(2, logrus.DebugLevel, msg) }

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(2, logrus.InfoLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(2, logrus.WarnLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(2, logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(2, logrus.DebugLevel, fmt.Sprintf(format, args...))
}

// Package level helpers write through the configured global logger.

func Info(format string, args ...interface{}) {
	Default().log(2, logrus.InfoLevel, fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...interface{}) {
	Default().log(2, logrus.DebugLevel, fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...interface{}) {
	Default().log(2, logrus.WarnLevel, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	Default().log(2, logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

// LogWithFields returns the global logger with fields attached.
func LogWithFields(fields ...Field) *Logger {
	return Default().With(fields...)
}

// LogWithError returns the global logger with err attached.
func LogWithError(err error) *Logger {
	return Default().WithError(err)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	Default().WithError(err).log(2, logrus.ErrorLevel, msg)
}

func errorFields(err error) []Field {
	if err == nil {
		return []Field{F("error", "<nil>")}
	}
	fields := []Field{
		F("error", err.Error()),
		F("error_kind", int(errors.KindOf(err))),
	}

	var fileErr *errors.FileError
	if errors.As(err, &fileErr) && fileErr.Path() != "" {
		fields = append(fields, F("path", fileErr.Path()))
	}
	var configErr *errors.ConfigError
	if errors.As(err, &configErr) && configErr.Param() != "" {
		fields = append(fields, F("param", configErr.Param()))
	}
	var transferErr *errors.TransferError
	if errors.As(err, &transferErr) && transferErr.Status() != 0 {
		fields = append(fields, F("status", transferErr.Status()))
	}
	return fields
}

type requestIDKey struct{}

// ContextWithRequestID stores id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by ContextWithRequestID.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// textFormatter renders "[timestamp] LEVEL: message key=value ...".
type textFormatter struct{}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	level := entry.Level.String()
	if entry.Level == logrus.WarnLevel {
		level = "warn"
	}
	fmt.Fprintf(&b, "[%s] %s: %s", entry.Time.Format("2006-01-02 15:04:05"), strings.ToUpper(level), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
