// Package audit appends lifecycle transitions to the two append-only logs: the
// generic audit log and the per-project review trail. Writes go through the
// caller's transactional store so a failed operation leaves no trail behind.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Entity types recorded in the audit log.
const (
	EntityUser         = "user"
	EntityOrganization = "organization"
	EntityProject      = "project"
	EntityMilestone    = "milestone"
	EntityApplication  = "application"
)

// Audit actions.
const (
	ActionUserRegistered       = "user.registered"
	ActionUserSeeded           = "user.seeded"
	ActionUserApproved         = "user.approved"
	ActionUserSuspended        = "user.suspended"
	ActionUserRestored         = "user.restored"
	ActionUserStatusChanged    = "user.status_changed"
	ActionUserSelfDeleted      = "user.self_deleted"
	ActionUserHardDeleted      = "user.hard_deleted"
	ActionProjectReviewed      = "project.reviewed"
	ActionProjectStatus        = "project.status_changed"
	ActionProjectDeleted       = "project.deleted"
	ActionMilestoneStatus      = "milestone.status_changed"
	ActionApplicationDecided   = "application.decided"
	ActionApplicationWithdrawn = "application.withdrawn"
)

var meter = otel.Meter("github.com/d9705996/researchbridge/internal/audit")

// transitions is exported by the Prometheus exporter as
// researchbridge_lifecycle_transitions_total.
var transitions, _ = meter.Int64Counter("researchbridge_lifecycle_transitions",
	metric.WithDescription("Lifecycle transitions recorded in the audit or review trail."))

// Event is one audit log entry.
type Event struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]string
}

// ProjectTransition is one review trail entry.
type ProjectTransition struct {
	ProjectID  string
	ReviewerID string // empty for owner-driven transitions
	Action     string
	From       model.ProjectStatus
	To         model.ProjectStatus
	Notes      string
}

// Trail writes audit and review entries.
type Trail struct {
	Now func() time.Time
}

func (t Trail) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now().UTC()
}

// Record appends e to the audit log.
func (t Trail) Record(ctx context.Context, tx *store.Store, e Event) error {
	details := model.StringMap(e.Details)
	if details == nil {
		details = model.StringMap{}
	}
	entry := &model.AuditLog{
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    details,
		CreatedAt:  t.now(),
	}
	if err := tx.Audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	// Project transitions are counted once, by RecordProject.
	if e.EntityType != EntityProject {
		count(ctx, e.EntityType, e.Action)
	}
	return nil
}

// RecordProject appends pt to the project's review trail.
func (t Trail) RecordProject(ctx context.Context, tx *store.Store, pt ProjectTransition) (*model.ProjectReview, error) {
	rev := &model.ProjectReview{
		ProjectID:      pt.ProjectID,
		Action:         pt.Action,
		PreviousStatus: pt.From,
		NewStatus:      pt.To,
		Notes:          pt.Notes,
		CreatedAt:      t.now(),
	}
	if pt.ReviewerID != "" {
		id := pt.ReviewerID
		rev.ReviewerID = &id
	}
	if err := tx.Reviews.Append(ctx, rev); err != nil {
		return nil, fmt.Errorf("append project review: %w", err)
	}
	count(ctx, EntityProject, pt.Action)
	return rev, nil
}

func count(ctx context.Context, entity, action string) {
	if transitions == nil {
		return
	}
	transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("action", action),
	))
}
