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
	"github.com/shopspring/decimal"
)

// ProjectInput carries the editable project fields. Nil fields are left alone
// on update.
type ProjectInput struct {
	// OrgID is only honoured for admins creating a project on behalf of an organization.
	OrgID           string
	Title           *string
	Problem         *string
	Outcomes        *string
	MethodsRequired *string
	Timeline        *string
	BudgetMin       *decimal.Decimal
	DataSensitivity *string
	// Status takes the permissive generic edit path.
	Status *model.ProjectStatus
}

// ProjectView is a project with its derived milestone aggregates.
type ProjectView struct {
	model.Project
	MilestoneCount      int
	CompletedMilestones int
	CompletionRate      int
}

func (in ProjectInput) apply(p *model.Project) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return apperr.Validation("title is required")
		}
		p.Title = title
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.Problem, in.Problem)
	set(&p.Outcomes, in.Outcomes)
	set(&p.MethodsRequired, in.MethodsRequired)
	set(&p.Timeline, in.Timeline)
	set(&p.DataSensitivity, in.DataSensitivity)
	if in.BudgetMin != nil {
		if in.BudgetMin.IsNegative() {
			return apperr.Validation("budgetMin must be zero or greater")
		}
		p.BudgetMin = in.BudgetMin.Round(2)
	}
	return nil
}

func projectTarget(p *model.Project) policy.Target {
	return policy.Target{OrgID: p.OrgID, Public: lifecycle.VisibleToPublic(p.Status)}
}

// reviewerFor is the reviewer recorded for a transition driven by p: admins
// are recorded, owners are not.
func reviewerFor(p policy.Principal) string {
	if p.IsAdmin() {
		return p.UserID
	}
	return ""
}

// CreateProject creates a draft project owned by the principal's organization,
// or by in.OrgID when an admin acts on an organization's behalf.
func (s *Service) CreateProject(ctx context.Context, p policy.Principal, in ProjectInput) (*ProjectView, error) {
	ctx, span := tracer.Start(ctx, "Projects.Create")
	defer span.End()

	orgID := p.OrgID
	if p.IsAdmin() {
		orgID = strings.TrimSpace(in.OrgID)
		if orgID == "" {
			return nil, apperr.Validation("orgId is required when an admin creates a project")
		}
		if _, err := s.store.Organizations.FindByID(ctx, orgID); err != nil {
			return nil, fail(span, storeErr("organization", err))
		}
	}
	if err := policy.Check(p, policy.ProjectCreate, policy.Target{OrgID: orgID}, "organization"); err != nil {
		return nil, err
	}
	if in.Title == nil {
		return nil, apperr.Validation("title is required")
	}
	proj := &model.Project{OrgID: orgID, Status: model.ProjectDraft}
	if err := in.apply(proj); err != nil {
		return nil, err
	}
	if err := s.store.Projects.Create(ctx, proj); err != nil {
		return nil, fail(span, storeErr("project", err))
	}
	return &ProjectView{Project: *proj}, nil
}

// GetProject returns a project visible to p. Open projects are visible to
// everyone, including the zero Principal of an anonymous caller.
func (s *Service) GetProject(ctx context.Context, p policy.Principal, id string) (*ProjectView, error) {
	proj, err := s.loadProject(ctx, p, id, policy.ProjectRead)
	if err != nil {
		return nil, err
	}
	views, err := s.projectViews(ctx, []model.Project{*proj})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// BrowseProjects lists open projects, optionally filtered by a text query.
func (s *Service) BrowseProjects(ctx context.Context, query string, page store.Page) ([]ProjectView, error) {
	ctx, span := tracer.Start(ctx, "Projects.Browse")
	defer span.End()

	projects, err := s.store.Projects.List(ctx, store.ProjectFilter{Status: model.ProjectOpen, Query: query, Page: page})
	if err != nil {
		return nil, fail(span, storeErr("project", err))
	}
	return s.projectViews(ctx, projects)
}

// ListMyProjects lists every project of the principal's organization.
func (s *Service) ListMyProjects(ctx context.Context, p policy.Principal) ([]ProjectView, error) {
	if p.Role != model.RoleNonprofit {
		return nil, apperr.RoleForbidden(apperr.CodeRoleNotPermitted, "only nonprofit accounts own projects")
	}
	if p.OrgID == "" {
		return []ProjectView{}, nil
	}
	projects, err := s.store.Projects.List(ctx, store.ProjectFilter{OrgID: p.OrgID})
	if err != nil {
		return nil, storeErr("project", err)
	}
	return s.projectViews(ctx, projects)
}

// ListAllProjects is the admin listing across organizations.
func (s *Service) ListAllProjects(ctx context.Context, p policy.Principal, status model.ProjectStatus, page store.Page) ([]ProjectView, error) {
	if err := policy.Check(p, policy.ProjectListAll, policy.Target{}, "project"); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, apperr.Validation("unknown project status filter")
	}
	projects, err := s.store.Projects.List(ctx, store.ProjectFilter{Status: status, Page: page})
	if err != nil {
		return nil, storeErr("project", err)
	}
	return s.projectViews(ctx, projects)
}

// UpdateProject edits fields and, when in.Status is set, applies the generic
// status edit, appending a status_updated review entry.
func (s *Service) UpdateProject(ctx context.Context, p policy.Principal, id string, in ProjectInput) (*ProjectView, error) {
	ctx, span := tracer.Start(ctx, "Projects.Update")
	defer span.End()

	var proj *model.Project
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if proj, err = tx.Projects.FindByID(ctx, id); err != nil {
			return err
		}
		if err := policy.Check(p, policy.ProjectEdit, projectTarget(proj), "project"); err != nil {
			return err
		}
		if err := in.apply(proj); err != nil {
			return err
		}
		prev := proj.Status
		if in.Status != nil {
			next, err := lifecycle.EditProjectStatus(*in.Status)
			if err != nil {
				return err
			}
			proj.Status = next
		}
		if err := tx.Projects.Update(ctx, proj); err != nil {
			return err
		}
		if proj.Status == prev {
			return nil
		}
		if _, err := s.trail.RecordProject(ctx, tx, audit.ProjectTransition{
			ProjectID:  proj.ID,
			ReviewerID: reviewerFor(p),
			Action:     string(lifecycle.EventProjectStatusUpdated),
			From:       prev,
			To:         proj.Status,
		}); err != nil {
			return err
		}
		return s.recordAdminStatus(ctx, tx, p, proj.ID, lifecycle.EventProjectStatusUpdated, prev, proj.Status)
	})
	if err != nil {
		return nil, fail(span, storeErr("project", err))
	}
	views, err := s.projectViews(ctx, []model.Project{*proj})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// SubmitForReview moves a draft or needs_revision project to pending_review.
func (s *Service) SubmitForReview(ctx context.Context, p policy.Principal, id string) (*ProjectView, error) {
	ctx, span := tracer.Start(ctx, "Projects.SubmitForReview")
	defer span.End()

	proj, err := s.transitionProject(ctx, p, id, policy.ProjectSubmit, lifecycle.EventSubmit, "", "")
	if err != nil {
		return nil, fail(span, err)
	}
	return proj, nil
}

// ReviewProject records an admin decision on a pending_review project.
// decision is one of approve, reject or request_revision.
func (s *Service) ReviewProject(ctx context.Context, p policy.Principal, id, decision, notes string) (*ProjectView, error) {
	ctx, span := tracer.Start(ctx, "Projects.Review")
	defer span.End()

	ev, err := lifecycle.ReviewDecision(decision)
	if err != nil {
		return nil, err
	}
	proj, err := s.transitionProject(ctx, p, id, policy.ProjectReview, ev, strings.TrimSpace(notes), p.UserID)
	if err != nil {
		return nil, fail(span, err)
	}
	return proj, nil
}

func (s *Service) transitionProject(ctx context.Context, p policy.Principal, id string, action policy.Action,
	ev lifecycle.ProjectEvent, notes, reviewerID string,
) (*ProjectView, error) {
	var proj *model.Project
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if proj, err = tx.Projects.FindByID(ctx, id); err != nil {
			return err
		}
		if err := policy.Check(p, action, projectTarget(proj), "project"); err != nil {
			return err
		}
		prev := proj.Status
		next, err := lifecycle.TransitionProject(proj, ev)
		if err != nil {
			return err
		}
		proj.Status = next
		if err := tx.Projects.Update(ctx, proj); err != nil {
			return err
		}
		if _, err := s.trail.RecordProject(ctx, tx, audit.ProjectTransition{
			ProjectID:  proj.ID,
			ReviewerID: reviewerID,
			Action:     string(ev),
			From:       prev,
			To:         next,
			Notes:      notes,
		}); err != nil {
			return err
		}
		if action != policy.ProjectReview {
			return s.recordAdminStatus(ctx, tx, p, proj.ID, ev, prev, next)
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    p.UserID,
			Action:     audit.ActionProjectReviewed,
			EntityType: audit.EntityProject,
			EntityID:   proj.ID,
			Details:    map[string]string{"from": string(prev), "to": string(next), "decision": string(ev)},
		})
	})
	if err != nil {
		return nil, storeErr("project", err)
	}
	views, err := s.projectViews(ctx, []model.Project{*proj})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// recordAdminStatus appends an audit event for a project transition driven by
// an admin. Owner-driven transitions live in the review trail only.
func (s *Service) recordAdminStatus(ctx context.Context, tx *store.Store, p policy.Principal, projectID string,
	ev lifecycle.ProjectEvent, from, to model.ProjectStatus,
) error {
	if !p.IsAdmin() {
		return nil
	}
	return s.trail.Record(ctx, tx, audit.Event{
		ActorID:    p.UserID,
		Action:     audit.ActionProjectStatus,
		EntityType: audit.EntityProject,
		EntityID:   projectID,
		Details:    map[string]string{"from": string(from), "to": string(to), "event": string(ev)},
	})
}

// DeleteProject removes a project and everything attached to it.
func (s *Service) DeleteProject(ctx context.Context, p policy.Principal, id string) error {
	ctx, span := tracer.Start(ctx, "Projects.Delete")
	defer span.End()

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		proj, err := tx.Projects.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.Check(p, policy.ProjectDelete, projectTarget(proj), "project"); err != nil {
			return err
		}
		if err := tx.Projects.Delete(ctx, proj.ID); err != nil {
			return err
		}
		if !p.IsAdmin() {
			return nil
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    p.UserID,
			Action:     audit.ActionProjectDeleted,
			EntityType: audit.EntityProject,
			EntityID:   proj.ID,
			Details:    map[string]string{"status": string(proj.Status), "title": proj.Title},
		})
	})
	return fail(span, storeErr("project", err))
}

// ListReviews returns the project's review trail, oldest first.
func (s *Service) ListReviews(ctx context.Context, p policy.Principal, id string) ([]model.ProjectReview, error) {
	proj, err := s.loadProject(ctx, p, id, policy.ProjectReadTrail)
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.Reviews.ListByProject(ctx, proj.ID)
	if err != nil {
		return nil, storeErr("project review", err)
	}
	return reviews, nil
}

func (s *Service) loadProject(ctx context.Context, p policy.Principal, id string, action policy.Action) (*model.Project, error) {
	proj, err := s.store.Projects.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("project", err)
	}
	if err := policy.Check(p, action, projectTarget(proj), "project"); err != nil {
		return nil, err
	}
	return proj, nil
}

func (s *Service) projectViews(ctx context.Context, projects []model.Project) ([]ProjectView, error) {
	ids := make([]string, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	counts, err := s.store.Projects.MilestoneCounts(ctx, ids)
	if err != nil {
		return nil, storeErr("milestone", err)
	}
	views := make([]ProjectView, len(projects))
	for i := range projects {
		c := counts[projects[i].ID]
		views[i] = ProjectView{
			Project:             projects[i],
			MilestoneCount:      c.Total,
			CompletedMilestones: c.Completed,
			CompletionRate:      lifecycle.CompletionRateOf(c.Completed, c.Total),
		}
	}
	return views, nil
}
