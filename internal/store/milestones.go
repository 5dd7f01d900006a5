package store

import (
	"context"

	"github.com/d9705996/researchbridge/internal/model"
	"gorm.io/gorm"
)

// MilestoneRepo persists milestones.
type MilestoneRepo struct {
	db *gorm.DB
}

func (r *MilestoneRepo) FindByID(ctx context.Context, id string) (*model.Milestone, error) {
	var m model.Milestone
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *MilestoneRepo) ListByProject(ctx context.Context, projectID string) ([]model.Milestone, error) {
	var ms []model.Milestone
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&ms).Error
	if err != nil {
		return nil, translate(err)
	}
	return ms, nil
}

func (r *MilestoneRepo) Create(ctx context.Context, m *model.Milestone) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *MilestoneRepo) Update(ctx context.Context, m *model.Milestone) error {
	return translate(r.db.WithContext(ctx).Save(m).Error)
}

func (r *MilestoneRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Milestone{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReviewRepo is the append-only project review trail.
type ReviewRepo struct {
	db *gorm.DB
}

func (r *ReviewRepo) Append(ctx context.Context, rev *model.ProjectReview) error {
	return translate(r.db.WithContext(ctx).Create(rev).Error)
}

// ListByProject returns the trail oldest first.
func (r *ReviewRepo) ListByProject(ctx context.Context, projectID string) ([]model.ProjectReview, error) {
	var out []model.ProjectReview
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}
