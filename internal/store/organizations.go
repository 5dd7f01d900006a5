package store

import (
	"context"

	"github.com/d9705996/researchbridge/internal/model"
	"gorm.io/gorm"
)

// OrganizationRepo persists nonprofit organizations.
type OrganizationRepo struct {
	db *gorm.DB
}

func (r *OrganizationRepo) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	var o model.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *OrganizationRepo) FindByUserID(ctx context.Context, userID string) (*model.Organization, error) {
	var o model.Organization
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *OrganizationRepo) Create(ctx context.Context, o *model.Organization) error {
	return translate(r.db.WithContext(ctx).Create(o).Error)
}

func (r *OrganizationRepo) Update(ctx context.Context, o *model.Organization) error {
	return translate(r.db.WithContext(ctx).Save(o).Error)
}

// ProfileRepo persists researcher profiles.
type ProfileRepo struct {
	db *gorm.DB
}

func (r *ProfileRepo) FindByID(ctx context.Context, id string) (*model.ResearcherProfile, error) {
	var p model.ResearcherProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.ResearcherProfile, error) {
	var p model.ResearcherProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProfileRepo) Create(ctx context.Context, p *model.ResearcherProfile) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProfileRepo) Update(ctx context.Context, p *model.ResearcherProfile) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}
