package logging

import (
	"bytes"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestWriter is a thread-safe buffer for capturing log output in tests.
type TestWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (w *TestWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// String returns everything written so far.
func (w *TestWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// Contains reports whether the captured output contains s.
func (w *TestWriter) Contains(s string) bool {
	return strings.Contains(w.String(), s)
}

// Reset clears the captured output.
func (w *TestWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Reset()
}

// NewTestLogger returns a debug-level JSON logger writing into a TestWriter.
func NewTestLogger() (zerolog.Logger, *TestWriter) {
	w := &TestWriter{}
	logger := zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return logger, w
}
