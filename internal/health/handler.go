// Package health exposes the liveness and readiness endpoints.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/version"
)

// Pinger is implemented by anything that can check a downstream dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves /api/v1/health and /api/v1/ready.
type Handler struct {
	db        Pinger
	driver    string
	startTime time.Time
	timeout   time.Duration
}

// New creates a Handler. db may be nil while the database is still being
// opened; /ready then answers 503.
func New(db Pinger, driver string) *Handler {
	return &Handler{db: db, driver: driver, startTime: time.Now(), timeout: 3 * time.Second}
}

type healthAttrs struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildDate     string `json:"buildDate"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

type readyAttrs struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	LatencyMS int64  `json:"latencyMs"`
}

// ServeHealth handles GET /api/v1/health. It never touches the database.
func (h *Handler) ServeHealth(w http.ResponseWriter, _ *http.Request) {
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type: "health",
		ID:   "researchbridge",
		Attributes: healthAttrs{
			Status:        "ok",
			Version:       version.Version,
			Commit:        version.Commit,
			BuildDate:     version.Date,
			UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		},
	})
}

// ServeReady handles GET /api/v1/ready: 200 when the database answers a ping
// within the timeout, 503 otherwise.
func (h *Handler) ServeReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		jsonapi.RenderError(w, http.StatusServiceUnavailable,
			"dependency_unavailable", "Service Unavailable",
			"database connection is not initialised")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "readiness check failed", "driver", h.driver, "err", err)
		jsonapi.RenderError(w, http.StatusServiceUnavailable,
			"dependency_unavailable", "Service Unavailable",
			"database is unreachable")
		return
	}

	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type: "ready",
		ID:   "researchbridge",
		Attributes: readyAttrs{
			Status:    "ok",
			Database:  h.driver,
			LatencyMS: time.Since(start).Milliseconds(),
		},
	})
}
