package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func serve(fn http.HandlerFunc, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServeHealth_AlwaysOK(t *testing.T) {
	h := health.New(&mockPinger{err: errors.New("down")}, "sqlite")
	w := serve(h.ServeHealth, "/api/v1/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.api+json", w.Header().Get("Content-Type"))

	var doc struct {
		Data struct {
			Type       string         `json:"type"`
			Attributes map[string]any `json:"attributes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "health", doc.Data.Type)
	assert.Equal(t, "ok", doc.Data.Attributes["status"])
	assert.Contains(t, doc.Data.Attributes, "uptimeSeconds")
}

func TestServeReady_DBHealthy(t *testing.T) {
	h := health.New(&mockPinger{}, "postgres")
	w := serve(h.ServeReady, "/api/v1/ready")

	assert.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		Data struct {
			Attributes map[string]any `json:"attributes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "postgres", doc.Data.Attributes["database"])
}

func TestServeReady_DBUnhealthy(t *testing.T) {
	h := health.New(&mockPinger{err: errors.New("connection refused 10.0.0.5")}, "postgres")
	w := serve(h.ServeReady, "/api/v1/ready")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var doc jsonapi.ErrorDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "dependency_unavailable", doc.Errors[0].Code)
	assert.NotContains(t, doc.Errors[0].Detail, "10.0.0.5")
}

func TestServeReady_NilDB(t *testing.T) {
	h := health.New(nil, "sqlite")
	w := serve(h.ServeReady, "/api/v1/ready")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
