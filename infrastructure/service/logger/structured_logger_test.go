package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestStructuredLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "info", Format: "json", ServiceName: "tripdesk", Output: &buf})

	ctx := WithCorrelationID(context.Background(), "corr-1")
	log.WithFields(map[string]interface{}{"component": "test"}).Info(ctx, "hello", map[string]interface{}{"request_id": "r-1"})
	log.Error(context.Background(), "boom", errors.New("disk full"), nil)
	log.Debug(context.Background(), "hidden", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "tripdesk", lines[0]["service"])
	assert.Equal(t, "test", lines[0]["component"])
	assert.Equal(t, "r-1", lines[0]["request_id"])
	assert.Equal(t, "corr-1", lines[0]["correlation_id"])
	assert.NotContains(t, lines[0], "caller")

	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "disk full", lines[1]["error"])
	assert.Contains(t, lines[1], "caller")
	assert.NotContains(t, lines[1], "component")
}

func TestLogTransition(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "debug", Format: "json", Output: &buf})

	LogTransition(context.Background(), log, "tr-1", "pending_manager", "manager_approved", "budi@example.com", nil)
	LogAuthEvent(context.Background(), log, "login", "dina@example.com", "", false, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "workflow", lines[0]["event_type"])
	assert.Equal(t, "manager_approved", lines[0]["to"])
	assert.Equal(t, "warning", lines[1]["level"])
	assert.Equal(t, false, lines[1]["success"])
}

func TestCorrelationID(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))
	assert.Equal(t, "x", CorrelationID(WithCorrelationID(context.Background(), "x")))
}
