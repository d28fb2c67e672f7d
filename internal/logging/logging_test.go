package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"studio-orders/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logging.Setup(&buf, "json", "debug")

	logging.Module("dispatch").Info("delivered", "event_id", "e-1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "dispatch", rec["module"])
	assert.Equal(t, "delivered", rec["msg"])
	assert.Equal(t, "e-1", rec["event_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel(""))
}
