package store

import (
	"context"

	"github.com/d9705996/researchbridge/internal/model"
	"gorm.io/gorm"
)

// ApplicationRepo persists researcher applications.
type ApplicationRepo struct {
	db *gorm.DB
}

func (r *ApplicationRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	var a model.Application
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *ApplicationRepo) Create(ctx context.Context, a *model.Application) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *ApplicationRepo) Update(ctx context.Context, a *model.Application) error {
	return translate(r.db.WithContext(ctx).Save(a).Error)
}

// HasActive reports whether researcherID already holds a non-withdrawn
// application to projectID.
func (r *ApplicationRepo) HasActive(ctx context.Context, projectID, researcherID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Application{}).
		Where("project_id = ? AND researcher_id = ? AND status <> ?", projectID, researcherID, model.ApplicationWithdrawn).
		Count(&n).Error
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (r *ApplicationRepo) ListByProject(ctx context.Context, projectID string) ([]model.Application, error) {
	return r.list(ctx, "project_id = ?", projectID)
}

func (r *ApplicationRepo) ListByResearcher(ctx context.Context, researcherID string) ([]model.Application, error) {
	return r.list(ctx, "researcher_id = ?", researcherID)
}

func (r *ApplicationRepo) list(ctx context.Context, where string, arg any) ([]model.Application, error) {
	var out []model.Application
	if err := r.db.WithContext(ctx).Where(where, arg).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// AuditRepo is the append-only audit log.
type AuditRepo struct {
	db *gorm.DB
}

// AuditFilter narrows List. Limit defaults to 100 when zero.
type AuditFilter struct {
	EntityType string
	EntityID   string
	ActorID    string
	Limit      int
}

func (r *AuditRepo) Append(ctx context.Context, e *model.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

// List returns events newest first.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.ActorID != "" {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var out []model.AuditLog
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}
