package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("monitor", &buf)

	l.Debugf("tick %d", 1)
	l.Infof("resolved after %d attempts", 2)
	l.Warnf("unresolved")
	l.Errorf("probe failed: %v", "boom")

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "tick 1")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "resolved after 2 attempts")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "probe failed: boom")
	assert.Contains(t, out, "monitor")
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

func TestWriterLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("guard", &buf).With("attempt", 3)

	l.Infof("retrying action")
	assert.Contains(t, buf.String(), "attempt")
	assert.Equal(t, "guard", l.Component())
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Infof("discarded")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestSessionID_Stable(t *testing.T) {
	first := GetSessionID()
	require.NotEmpty(t, first)
	assert.Equal(t, first, GetSessionID())
	assert.Equal(t, first, NewWriterLogger("x", &bytes.Buffer{}).SessionID())
}

func TestNewLogger_WritesToLogDir(t *testing.T) {
	t.Setenv(LogDirEnv, t.TempDir())

	l, err := NewLogger("session")
	if err != nil {
		// initOnce may already have resolved the directory in this process
		t.Skipf("log directory unavailable: %v", err)
	}
	defer l.Close()

	l.Infof("hello")
	assert.NotEmpty(t, l.LogPath())
	assert.Contains(t, l.LogPath(), "-sessionkeeper.log")
}
