package util

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(3) // debug level
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Error("e")
	l.Warn("w")
	l.Info("i")
	l.Verbose("v")
	l.Debug("d")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 5, output)

	wantPrefixes := []string{"[ERR] e", "[WRN] w", "[INF] i", "[VRB] v", "[DBG] d"}
	for i, prefix := range wantPrefixes {
		assert.Contains(t, lines[i], prefix, "line %d", i)
	}
}

func TestLogger_QuietMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(0) // quiet
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Info("should not appear")
	l.Warn("should not appear")
	l.Verbose("should not appear")
	l.Debug("should not appear")
	l.Error("always appears")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, buf.String())
	assert.Contains(t, lines[0], "always appears")
}

func TestLogger_VerboseHidesDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(2)
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Verbose("shown")
	l.Debug("hidden")

	assert.Contains(t, buf.String(), "[VRB] shown")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestLogger_Timestamps(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1)
	l.SetOutput(&buf)
	l.SetTimestamps(true)

	l.Info("test")

	// Timestamp format is "HH:MM:SS.mmm"
	output := buf.String()
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}\.\d{3} \[INF\] test`, output)
}

func TestLogger_Structured(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(2)
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Zerolog().Debug().Str("req_id", "abc").Int("status", 200).Msg("http.response")

	out := buf.String()
	assert.Contains(t, out, "[VRB] http.response")
	assert.Contains(t, out, "req_id=abc")
	assert.Contains(t, out, "status=200")
}

func TestLogger_Nil(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Error("x")
		l.Info("x")
		l.Debug("x")
		l.Zerolog().Info().Msg("x")
	})
	assert.Equal(t, LogQuiet, l.Level())
}

func TestLogger_ReconfigureWhileLogging(t *testing.T) {
	l := NewLogger(3)
	l.SetOutput(io.Discard)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l.Info("line %d", j)
				l.Debug("line %d", j)
			}
		}()
	}
	for j := 0; j < 200; j++ {
		l.SetTimestamps(j%2 == 0)
		l.SetOutput(io.Discard)
	}
	wg.Wait()

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.SetTimestamps(false)
	l.Info("settled")
	assert.Contains(t, buf.String(), "settled")
}
