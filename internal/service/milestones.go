package service

import (
	"context"
	"strings"
	"time"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/audit"
	"github.com/d9705996/researchbridge/internal/lifecycle"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/store"
)

// MilestoneInput carries the editable milestone fields. Nil fields are left
// alone on update; ClearDueDate removes the due date.
type MilestoneInput struct {
	Name         *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *model.MilestoneStatus
}

// MilestoneView is a milestone with its read-time derived fields.
type MilestoneView struct {
	model.Milestone
	lifecycle.MilestoneDerived
}

func (s *Service) milestoneView(m *model.Milestone) MilestoneView {
	return MilestoneView{Milestone: *m, MilestoneDerived: lifecycle.DeriveMilestone(m, s.clock())}
}

// CreateMilestone adds a milestone to a project. A supplied due date must be
// today or later.
func (s *Service) CreateMilestone(ctx context.Context, p policy.Principal, projectID string, in MilestoneInput) (*MilestoneView, error) {
	ctx, span := tracer.Start(ctx, "Milestones.Create")
	defer span.End()

	proj, err := s.store.Projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fail(span, storeErr("project", err))
	}
	if err := policy.Check(p, policy.MilestoneCreate, projectTarget(proj), "project"); err != nil {
		return nil, err
	}
	var name string
	if in.Name != nil {
		name = *in.Name
	}
	if name, err = lifecycle.ValidateMilestoneName(name); err != nil {
		return nil, err
	}
	now := s.clock()
	if err := lifecycle.ValidateDueDateOnCreate(in.DueDate, now); err != nil {
		return nil, err
	}
	var status model.MilestoneStatus
	if in.Status != nil {
		status = *in.Status
	}
	state, err := lifecycle.InitialMilestone(status, now)
	if err != nil {
		return nil, err
	}
	m := &model.Milestone{
		ProjectID:   proj.ID,
		Name:        name,
		DueDate:     utcPtr(in.DueDate),
		Status:      state.Status,
		CompletedAt: state.CompletedAt,
	}
	if in.Description != nil {
		m.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.store.Milestones.Create(ctx, m); err != nil {
		return nil, fail(span, storeErr("milestone", err))
	}
	v := s.milestoneView(m)
	return &v, nil
}

// ListMilestones lists a project's milestones when the project is visible to p.
func (s *Service) ListMilestones(ctx context.Context, p policy.Principal, projectID string) ([]MilestoneView, error) {
	proj, err := s.loadProject(ctx, p, projectID, policy.ProjectRead)
	if err != nil {
		return nil, err
	}
	ms, err := s.store.Milestones.ListByProject(ctx, proj.ID)
	if err != nil {
		return nil, storeErr("milestone", err)
	}
	out := make([]MilestoneView, len(ms))
	for i := range ms {
		out[i] = s.milestoneView(&ms[i])
	}
	return out, nil
}

// GetMilestone returns one milestone whose project is visible to p.
func (s *Service) GetMilestone(ctx context.Context, p policy.Principal, id string) (*MilestoneView, error) {
	m, err := s.store.Milestones.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("milestone", err)
	}
	if _, err := s.loadProject(ctx, p, m.ProjectID, policy.ProjectRead); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.NotFound("milestone")
		}
		return nil, err
	}
	v := s.milestoneView(m)
	return &v, nil
}

// UpdateMilestone edits a milestone. Status changes run through the milestone
// state machine, which owns completedAt. The due date is not re-validated.
func (s *Service) UpdateMilestone(ctx context.Context, p policy.Principal, id string, in MilestoneInput) (*MilestoneView, error) {
	ctx, span := tracer.Start(ctx, "Milestones.Update")
	defer span.End()

	var m *model.Milestone
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if m, err = s.ownedMilestone(ctx, tx, p, id, policy.MilestoneEdit); err != nil {
			return err
		}
		if in.Name != nil {
			if m.Name, err = lifecycle.ValidateMilestoneName(*in.Name); err != nil {
				return err
			}
		}
		if in.Description != nil {
			m.Description = strings.TrimSpace(*in.Description)
		}
		switch {
		case in.ClearDueDate:
			m.DueDate = nil
		case in.DueDate != nil:
			m.DueDate = utcPtr(in.DueDate)
		}
		prev := m.Status
		if in.Status != nil {
			next, err := lifecycle.TransitionMilestone(
				lifecycle.MilestoneState{Status: m.Status, CompletedAt: m.CompletedAt}, *in.Status, s.clock())
			if err != nil {
				return err
			}
			m.Status, m.CompletedAt = next.Status, next.CompletedAt
		}
		if err := tx.Milestones.Update(ctx, m); err != nil {
			return err
		}
		if m.Status == prev {
			return nil
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    p.UserID,
			Action:     audit.ActionMilestoneStatus,
			EntityType: audit.EntityMilestone,
			EntityID:   m.ID,
			Details:    map[string]string{"from": string(prev), "to": string(m.Status), "projectId": m.ProjectID},
		})
	})
	if err != nil {
		return nil, fail(span, storeErr("milestone", err))
	}
	v := s.milestoneView(m)
	return &v, nil
}

// DeleteMilestone removes a milestone.
func (s *Service) DeleteMilestone(ctx context.Context, p policy.Principal, id string) error {
	ctx, span := tracer.Start(ctx, "Milestones.Delete")
	defer span.End()

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		m, err := s.ownedMilestone(ctx, tx, p, id, policy.MilestoneDelete)
		if err != nil {
			return err
		}
		return tx.Milestones.Delete(ctx, m.ID)
	})
	return fail(span, storeErr("milestone", err))
}

// ownedMilestone loads a milestone and authorizes action against its parent
// project. Ownership mismatches are reported as a missing milestone.
func (s *Service) ownedMilestone(ctx context.Context, tx *store.Store, p policy.Principal, id string, action policy.Action) (*model.Milestone, error) {
	m, err := tx.Milestones.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	proj, err := tx.Projects.FindByID(ctx, m.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(p, action, projectTarget(proj), "milestone"); err != nil {
		return nil, err
	}
	return m, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
