package mlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Plan for Logger:
// - Messages below the configured level are dropped
// - Messages at or above the configured level are written with their tag
// - A nil *Logger is safe to call (no-op)
// - ParseLevel recognizes the known level names and defaults otherwise

func TestLogger_DropsBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Debugf("hidden %d", 1)
	l.Infof("also hidden")
	assert.Empty(t, buf.String())
}

func TestLogger_WritesAtOrAboveLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Warnf("careful %s", "now")
	l.Errorf("boom")

	out := buf.String()
	assert.True(t, strings.Contains(out, "WARN careful now"))
	assert.True(t, strings.Contains(out, "ERROR boom"))
}

func TestLogger_NilIsSafe(t *testing.T) {
	t.Parallel()

	var l *Logger
	l.Infof("does not panic")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("whatever"))
}
