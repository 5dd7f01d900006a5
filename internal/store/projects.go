package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/d9705996/researchbridge/internal/model"
	"gorm.io/gorm"
)

// ProjectRepo persists projects.
type ProjectRepo struct {
	db *gorm.DB
}

// ProjectFilter narrows List. Query is a case-insensitive substring matched
// against title and problem.
type ProjectFilter struct {
	OrgID  string
	Status model.ProjectStatus
	Query  string
	Page
}

// MilestoneCount is the per-project milestone aggregate shown on project reads.
type MilestoneCount struct {
	Total     int
	Completed int
}

func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProjectRepo) Update(ctx context.Context, p *model.Project) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}

func (r *ProjectRepo) List(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	q := r.db.WithContext(ctx).Model(&model.Project{})
	if f.OrgID != "" {
		q = q.Where("org_id = ?", f.OrgID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(problem) LIKE ?)", like, like)
	}
	var projects []model.Project
	if err := f.apply(q).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, translate(err)
	}
	return projects, nil
}

// MilestoneCounts aggregates milestone totals for each of the given projects.
// Projects without milestones are absent from the result.
func (r *ProjectRepo) MilestoneCounts(ctx context.Context, projectIDs []string) (map[string]MilestoneCount, error) {
	out := make(map[string]MilestoneCount, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ProjectID string
		Total     int
		Completed int
	}
	err := r.db.WithContext(ctx).Model(&model.Milestone{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed",
			model.MilestoneCompleted).
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, row := range rows {
		out[row.ProjectID] = MilestoneCount{Total: row.Total, Completed: row.Completed}
	}
	return out, nil
}

// Delete removes the project together with its milestones, review trail and
// applications.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Project{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return translate(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return deleteProjects(tx, []string{id})
	})
}

func deleteProjects(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("project_id IN ?", ids).Delete(&model.Milestone{}).Error; err != nil {
		return fmt.Errorf("delete milestones: %w", err)
	}
	if err := tx.Where("project_id IN ?", ids).Delete(&model.ProjectReview{}).Error; err != nil {
		return fmt.Errorf("delete reviews: %w", err)
	}
	if err := tx.Where("project_id IN ?", ids).Delete(&model.Application{}).Error; err != nil {
		return fmt.Errorf("delete applications: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&model.Project{}).Error; err != nil {
		return fmt.Errorf("delete projects: %w", err)
	}
	return nil
}
