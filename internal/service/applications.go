package service

import (
	"context"
	"strings"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/audit"
	"github.com/d9705996/researchbridge/internal/lifecycle"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/store"
)

// Apply files a researcher's application to an open project. A researcher
// holds at most one non-withdrawn application per project.
func (s *Service) Apply(ctx context.Context, p policy.Principal, projectID, coverLetter string) (*model.Application, error) {
	ctx, span := tracer.Start(ctx, "Applications.Apply")
	defer span.End()

	if err := policy.Check(p, policy.ApplicationCreate, policy.Target{}, "project"); err != nil {
		return nil, err
	}
	var app *model.Application
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		proj, err := tx.Projects.FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		// Only open projects are visible to researchers.
		if !lifecycle.VisibleToPublic(proj.Status) {
			return apperr.NotFound("project")
		}
		dup, err := tx.Applications.HasActive(ctx, proj.ID, p.UserID)
		if err != nil {
			return err
		}
		if dup {
			return apperr.Conflict(apperr.CodeAlreadyApplied, "you already applied to this project")
		}
		app = &model.Application{
			ProjectID:    proj.ID,
			OrgID:        proj.OrgID,
			ProfileID:    p.ProfileID,
			ResearcherID: p.UserID,
			Status:       model.ApplicationPending,
			CoverLetter:  strings.TrimSpace(coverLetter),
		}
		return tx.Applications.Create(ctx, app)
	})
	if err != nil {
		return nil, fail(span, storeErr("application", err))
	}
	return app, nil
}

// DecideApplication accepts or rejects a pending application. Accepting moves
// an open project to in_progress through the review trail.
func (s *Service) DecideApplication(ctx context.Context, p policy.Principal, id, decision string) (*model.Application, error) {
	ctx, span := tracer.Start(ctx, "Applications.Decide")
	defer span.End()

	ev, err := lifecycle.ParseApplicationDecision(decision)
	if err != nil {
		return nil, err
	}
	var app *model.Application
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if app, err = tx.Applications.FindByID(ctx, id); err != nil {
			return err
		}
		if err := policy.Check(p, policy.ApplicationDecide, policy.Target{OrgID: app.OrgID}, "application"); err != nil {
			return err
		}
		prev := app.Status
		if app.Status, err = lifecycle.TransitionApplication(app.Status, ev); err != nil {
			return err
		}
		now := s.clock()
		app.DecidedAt = &now
		if err := tx.Applications.Update(ctx, app); err != nil {
			return err
		}
		if err := s.trail.Record(ctx, tx, audit.Event{
			ActorID:    p.UserID,
			Action:     audit.ActionApplicationDecided,
			EntityType: audit.EntityApplication,
			EntityID:   app.ID,
			Details:    map[string]string{"from": string(prev), "to": string(app.Status), "projectId": app.ProjectID},
		}); err != nil {
			return err
		}
		if app.Status != model.ApplicationAccepted {
			return nil
		}
		return s.startCollaboration(ctx, tx, p, app.ProjectID)
	})
	if err != nil {
		return nil, fail(span, storeErr("application", err))
	}
	return app, nil
}

// startCollaboration moves an open project to in_progress. Projects already
// past open keep their status.
func (s *Service) startCollaboration(ctx context.Context, tx *store.Store, p policy.Principal, projectID string) error {
	proj, err := tx.Projects.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if proj.Status != model.ProjectOpen {
		return nil
	}
	prev := proj.Status
	next, err := lifecycle.TransitionProject(proj, lifecycle.EventStartCollaboration)
	if err != nil {
		return err
	}
	proj.Status = next
	if err := tx.Projects.Update(ctx, proj); err != nil {
		return err
	}
	if _, err := s.trail.RecordProject(ctx, tx, audit.ProjectTransition{
		ProjectID:  proj.ID,
		ReviewerID: reviewerFor(p),
		Action:     string(lifecycle.EventStartCollaboration),
		From:       prev,
		To:         next,
	}); err != nil {
		return err
	}
	return s.recordAdminStatus(ctx, tx, p, proj.ID, lifecycle.EventStartCollaboration, prev, next)
}

// WithdrawApplication lets a researcher retract a pending application.
func (s *Service) WithdrawApplication(ctx context.Context, p policy.Principal, id string) (*model.Application, error) {
	ctx, span := tracer.Start(ctx, "Applications.Withdraw")
	defer span.End()

	var app *model.Application
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if app, err = tx.Applications.FindByID(ctx, id); err != nil {
			return err
		}
		if err := policy.Check(p, policy.ApplicationWithdraw, policy.Target{ProfileID: app.ProfileID}, "application"); err != nil {
			return err
		}
		prev := app.Status
		if app.Status, err = lifecycle.TransitionApplication(app.Status, lifecycle.EventWithdraw); err != nil {
			return err
		}
		if err := tx.Applications.Update(ctx, app); err != nil {
			return err
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    p.UserID,
			Action:     audit.ActionApplicationWithdrawn,
			EntityType: audit.EntityApplication,
			EntityID:   app.ID,
			Details:    map[string]string{"from": string(prev), "to": string(app.Status), "projectId": app.ProjectID},
		})
	})
	if err != nil {
		return nil, fail(span, storeErr("application", err))
	}
	return app, nil
}

// ListProjectApplications lists applications to a project for its owner or an admin.
func (s *Service) ListProjectApplications(ctx context.Context, p policy.Principal, projectID string) ([]model.Application, error) {
	proj, err := s.loadProject(ctx, p, projectID, policy.ApplicationList)
	if err != nil {
		return nil, err
	}
	apps, err := s.store.Applications.ListByProject(ctx, proj.ID)
	if err != nil {
		return nil, storeErr("application", err)
	}
	return apps, nil
}

// ListMyApplications lists the researcher principal's own applications.
func (s *Service) ListMyApplications(ctx context.Context, p policy.Principal) ([]model.Application, error) {
	if p.Role != model.RoleResearcher {
		return nil, apperr.RoleForbidden(apperr.CodeRoleNotPermitted, "only researchers apply to projects")
	}
	apps, err := s.store.Applications.ListByResearcher(ctx, p.UserID)
	if err != nil {
		return nil, storeErr("application", err)
	}
	return apps, nil
}
