package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRespectsMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, WarnLevel)

	l.Info("should be dropped")
	assert.Empty(t, buf.String())

	l.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestLoggerEmitsValidJSONPerLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, DebugLevel)

	l.Info("mission prepared", String("operation", "prepare"), Int("waypoints", 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "mission prepared", entry["message"])
	assert.Equal(t, "prepare", entry["operation"])
	assert.Equal(t, float64(3), entry["waypoints"])
}

func TestWithFieldsMergesIntoEveryEntry(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, DebugLevel)
	scoped := l.WithFields(SessionID([16]byte{0xAB}))

	scoped.Info("coupled")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "ab000000000000000000000000000000", entry["session_id"])
}

func TestWithContextCarriesSessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, DebugLevel)
	ctx := WithSessionID(context.Background(), [16]byte{0xCD})
	scoped := l.WithContext(ctx)

	scoped.Info("binding verified")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "cd000000000000000000000000000000", entry["session_id"])
}

func TestErrorFieldNilIsNull(t *testing.T) {
	f := Error(nil)
	assert.Nil(t, f.Value)
}

func TestSetLevelGetLevelRoundTrip(t *testing.T) {
	l := NewLogger(&bytes.Buffer{}, InfoLevel)
	l.SetLevel(ErrorLevel)
	assert.Equal(t, ErrorLevel, l.GetLevel())
}
