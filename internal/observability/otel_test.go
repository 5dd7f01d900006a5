package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/d9705996/researchbridge/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := observability.NewLogger(&buf, "warn", "json")

	log.Info("dropped")
	log.Warn("kept", "entity", "project")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "project", rec["entity"])
}

func TestNewLogger_TextAndUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := observability.NewLogger(&buf, "verbose", "text")

	log.Debug("hidden")
	log.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNew_WithoutEndpoint(t *testing.T) {
	p, log, err := observability.New(context.Background(), &observability.Config{
		ServiceVersion: "test",
		LogLevel:       "error",
	})
	require.NoError(t, err)
	require.NotNil(t, log)
	p.Shutdown(context.Background())
}
