package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithWriter(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, false)

	Infof("sync started for %s", "inventory.sql")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "sync started for inventory.sql", entry["message"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestDebugLevelGate(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, false)

	Debugf("hidden at info level")
	assert.Empty(t, buf.String())

	InitializeWithWriter(&buf, true)
	Debugf("visible at debug level")
	assert.Contains(t, buf.String(), "visible at debug level")
}
