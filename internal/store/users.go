package store

import (
	"context"
	"fmt"

	"github.com/d9705996/researchbridge/internal/model"
	"gorm.io/gorm"
)

// UserRepo persists users. Lookups by id include soft-deleted rows so callers
// can inspect DeletedAt explicitly.
type UserRepo struct {
	db *gorm.DB
}

// UserFilter narrows List.
type UserFilter struct {
	Status         model.AccountStatus
	Role           model.Role
	IncludeDeleted bool
	Page
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByEmail returns the user with the given normalized email, preferring the
// live row and otherwise the most recently created deleted one.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("deleted_at IS NOT NULL").
		Order("created_at DESC").
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// EmailTaken reports whether a live user other than exceptID owns email.
func (r *UserRepo) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ? AND deleted_at IS NULL", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

// Update writes every column of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	return translate(r.db.WithContext(ctx).Save(u).Error)
}

func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if !f.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	if f.Status != "" {
		q = q.Where("account_status = ?", f.Status)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	var users []model.User
	if err := f.apply(q).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

// CountByRole counts live users with role.
func (r *UserRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("role = ? AND deleted_at IS NULL", role).
		Count(&n).Error
	return n, translate(err)
}

// HardDelete permanently removes the user and everything it owns: its
// organization and that organization's projects, its researcher profile, its
// applications and its refresh tokens. Review rows it authored keep their
// history with the reviewer cleared.
func (r *UserRepo) HardDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orgIDs []string
		if err := tx.Model(&model.Organization{}).Where("user_id = ?", id).Pluck("id", &orgIDs).Error; err != nil {
			return fmt.Errorf("load organizations: %w", err)
		}
		if len(orgIDs) > 0 {
			var projectIDs []string
			if err := tx.Model(&model.Project{}).Where("org_id IN ?", orgIDs).Pluck("id", &projectIDs).Error; err != nil {
				return fmt.Errorf("load projects: %w", err)
			}
			if err := deleteProjects(tx, projectIDs); err != nil {
				return err
			}
			if err := tx.Where("org_id IN ?", orgIDs).Delete(&model.Application{}).Error; err != nil {
				return fmt.Errorf("delete organization applications: %w", err)
			}
			if err := tx.Where("id IN ?", orgIDs).Delete(&model.Organization{}).Error; err != nil {
				return fmt.Errorf("delete organizations: %w", err)
			}
		}
		if err := tx.Where("researcher_id = ?", id).Delete(&model.Application{}).Error; err != nil {
			return fmt.Errorf("delete applications: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.ResearcherProfile{}).Error; err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("delete refresh tokens: %w", err)
		}
		if err := tx.Model(&model.ProjectReview{}).Where("reviewer_id = ?", id).
			Update("reviewer_id", nil).Error; err != nil {
			return fmt.Errorf("detach reviews: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.User{})
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
