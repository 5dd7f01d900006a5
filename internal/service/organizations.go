package service

import (
	"context"
	"errors"
	"strings"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/store"
)

// OrganizationInput is the editable organization payload.
type OrganizationInput struct {
	Name    string
	Mission string
	Website string
}

// ProfileInput is the editable researcher profile payload.
type ProfileInput struct {
	Headline  string
	Expertise string
	Bio       string
}

// MyOrganization returns the organization owned by a nonprofit principal.
func (s *Service) MyOrganization(ctx context.Context, p policy.Principal) (*model.Organization, error) {
	if err := policy.Check(p, policy.OrganizationEdit, policy.Target{UserID: p.UserID}, "organization"); err != nil {
		return nil, err
	}
	org, err := s.store.Organizations.FindByUserID(ctx, p.UserID)
	if err != nil {
		return nil, storeErr("organization", err)
	}
	return org, nil
}

// SaveMyOrganization creates the principal's organization on first save and
// updates it afterwards.
func (s *Service) SaveMyOrganization(ctx context.Context, p policy.Principal, in OrganizationInput) (*model.Organization, error) {
	ctx, span := tracer.Start(ctx, "Organizations.Save")
	defer span.End()

	if err := policy.Check(p, policy.OrganizationEdit, policy.Target{UserID: p.UserID}, "organization"); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("organization name is required")
	}
	var org *model.Organization
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		org, err = tx.Organizations.FindByUserID(ctx, p.UserID)
		if errors.Is(err, store.ErrNotFound) {
			org = &model.Organization{UserID: p.UserID}
		} else if err != nil {
			return err
		}
		org.Name = name
		org.Mission = strings.TrimSpace(in.Mission)
		org.Website = strings.TrimSpace(in.Website)
		if org.ID == "" {
			return tx.Organizations.Create(ctx, org)
		}
		return tx.Organizations.Update(ctx, org)
	})
	if err != nil {
		return nil, fail(span, storeErr("organization", err))
	}
	return org, nil
}

// MyProfile returns the researcher profile of a researcher principal.
func (s *Service) MyProfile(ctx context.Context, p policy.Principal) (*model.ResearcherProfile, error) {
	if err := policy.Check(p, policy.ProfileEdit, policy.Target{UserID: p.UserID}, "profile"); err != nil {
		return nil, err
	}
	prof, err := s.store.Profiles.FindByUserID(ctx, p.UserID)
	if err != nil {
		return nil, storeErr("profile", err)
	}
	return prof, nil
}

// SaveMyProfile creates or updates the principal's researcher profile.
func (s *Service) SaveMyProfile(ctx context.Context, p policy.Principal, in ProfileInput) (*model.ResearcherProfile, error) {
	ctx, span := tracer.Start(ctx, "Profiles.Save")
	defer span.End()

	if err := policy.Check(p, policy.ProfileEdit, policy.Target{UserID: p.UserID}, "profile"); err != nil {
		return nil, err
	}
	var prof *model.ResearcherProfile
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		prof, err = tx.Profiles.FindByUserID(ctx, p.UserID)
		if errors.Is(err, store.ErrNotFound) {
			prof = &model.ResearcherProfile{UserID: p.UserID}
		} else if err != nil {
			return err
		}
		prof.Headline = strings.TrimSpace(in.Headline)
		prof.Expertise = strings.TrimSpace(in.Expertise)
		prof.Bio = strings.TrimSpace(in.Bio)
		if prof.ID == "" {
			return tx.Profiles.Create(ctx, prof)
		}
		return tx.Profiles.Update(ctx, prof)
	})
	if err != nil {
		return nil, fail(span, storeErr("profile", err))
	}
	return prof, nil
}
