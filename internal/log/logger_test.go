package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"mdpress/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.Info("info message")
	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "info message")
	buf.Reset()

	l.Warn("warn message")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "warn message")
	buf.Reset()

	l.Error("error message")
	assert.Contains(t, buf.String(), "ERROR")
	buf.Reset()

	l.Infof("formatted %s", "message")
	assert.Contains(t, buf.String(), "formatted message")
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	SetDebug(false)
	l.Debug("debug message")
	assert.Empty(t, buf.String())

	SetDebug(true)
	defer SetDebug(false)
	l.Debug("debug message")
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "debug message")
	buf.Reset()

	l.Debugf("formatted %s", "debug")
	assert.Contains(t, buf.String(), "formatted debug")
}

func TestLevelOption(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithLevel("warn"))

	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	verbose := NewLogger(WithOutput(&buf), WithLevel("debug"))
	verbose.Debug("visible without SetDebug")
	assert.Contains(t, buf.String(), "visible without SetDebug")
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.With(F("entries", 3), F("root", "book")).Info("collected manifest")
	output := buf.String()
	assert.Contains(t, output, "collected manifest")
	assert.Contains(t, output, "entries=3")
	assert.Contains(t, output, "root=book")
	buf.Reset()

	l.With(F("key1", "value1")).With(F("key2", 123)).Info("chained fields")
	output = buf.String()
	assert.Contains(t, output, "key1=value1")
	assert.Contains(t, output, "key2=123")
}

func TestJSONLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithJSON())

	l.Info("json message")
	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &logEntry))
	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, "json message", logEntry["message"])
	assert.Contains(t, logEntry, "timestamp")
	assert.Contains(t, logEntry, "caller")
	buf.Reset()

	l.With(F("key1", "value1"), F("key2", 123)).Info("structured json")
	logEntry = map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &logEntry))
	assert.Equal(t, "value1", logEntry["key1"])
	assert.Equal(t, float64(123), logEntry["key2"])
}

func TestErrorLogging(t *testing.T) {
	var buf bytes.Buffer
	originalLogger := logger
	Configure(WithOutput(&buf))
	defer func() { logger = originalLogger }()

	LogWithFields(F("error", "standard error")).Error("error occurred")
	assert.Contains(t, buf.String(), "standard error")
	buf.Reset()

	LogWithError(errors.New("application error")).Error("app error occurred")
	output := buf.String()
	assert.Contains(t, output, "application error")
	assert.Contains(t, output, "error_kind=0")
	buf.Reset()

	fileErr := errors.NewFileError("file error", "docs/a.md", errors.FileNotFound, nil)
	LogWithError(fileErr).Error("file error occurred")
	output = buf.String()
	assert.Contains(t, output, "file error: docs/a.md")
	assert.Contains(t, output, "path=docs/a.md")
	assert.Contains(t, output, "error_kind=1")
	buf.Reset()

	configErr := errors.NewConfigError("config error", "timeout", errors.InvalidConfig, nil)
	LogWithError(configErr).Error("config error occurred")
	output = buf.String()
	assert.Contains(t, output, "param=timeout")
	assert.Contains(t, output, fmt.Sprintf("error_kind=%d", errors.InvalidConfig))
	buf.Reset()

	remoteErr := errors.NewTransferError(errors.RemoteError, "bad input", 422, nil)
	LogError(remoteErr, "conversion failed")
	output = buf.String()
	assert.Contains(t, output, "conversion failed")
	assert.Contains(t, output, "remote error: bad input")
	assert.Contains(t, output, "status=422")
}

func TestCallerInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.Info("caller test")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdpress.log")
	var console bytes.Buffer

	l := NewLogger(WithOutput(&console), WithFile(path))
	l.Info("file test message")
	require.NoError(t, l.Close())

	assert.Contains(t, console.String(), "file test message")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file test message")
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	//nolint:staticcheck // nil context is tolerated
	l.WithContext(nil).Info("no context")
	assert.Contains(t, buf.String(), "no context")
	buf.Reset()

	ctx := ContextWithRequestID(context.Background(), "req-42")
	l.WithContext(ctx).Info("with request")
	assert.Contains(t, buf.String(), "request_id=req-42")

	_, ok := RequestID(context.Background())
	assert.False(t, ok)
}

func TestNestedErrors(t *testing.T) {
	var buf bytes.Buffer
	originalLogger := logger
	Configure(WithOutput(&buf))
	defer func() { logger = originalLogger }()

	baseErr := fmt.Errorf("base error")
	fileErr := errors.NewFileError("file error", "a/b.md", errors.FileNotFound, baseErr)
	configErr := errors.NewConfigError("config error", "setting", errors.InvalidConfig, fileErr)

	LogWithError(configErr).Error("nested error occurred")
	output := buf.String()
	assert.Contains(t, output, "config error: setting: file error: a/b.md: base error")
	assert.Contains(t, output, "param=setting")
	assert.Contains(t, output, "path=a/b.md")
}

func TestConfigure(t *testing.T) {
	originalLogger := logger
	defer func() { logger = originalLogger }()

	var buf bytes.Buffer
	Configure(WithOutput(&buf), WithJSON())
	Info("global config test")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &logEntry))
	assert.Equal(t, "global config test", logEntry["message"])
	assert.Same(t, logger, Default())
}

func TestConfigureWhileLogging(t *testing.T) {
	originalLogger := logger
	defer func() { logger = originalLogger }()
	Configure(WithOutput(io.Discard))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				LogWithFields(F("worker", i)).Info("tick")
				Warnf("tick %d", j)
			}
		}(i)
	}
	for j := 0; j < 50; j++ {
		Configure(WithOutput(io.Discard), WithJSON())
	}
	wg.Wait()
	assert.NotNil(t, Default())
}

func TestNilErrorHandling(t *testing.T) {
	var buf bytes.Buffer
	originalLogger := logger
	Configure(WithOutput(&buf))
	defer func() { logger = originalLogger }()

	LogWithError(nil).Error("nil error test")
	assert.Contains(t, buf.String(), "nil error test")
	assert.Contains(t, buf.String(), "error=<nil>")
}
