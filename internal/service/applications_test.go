package service_test

import (
	"testing"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationFlow(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	r := f.register(t, model.RoleResearcher, "r@example.com")
	adm := f.admin(t, "root@example.com")
	proj := f.openProject(t, np, adm, "Survey")

	app, err := f.svc.Apply(f.ctx, r, proj.ID, "  I run surveys.  ")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationPending, app.Status)
	assert.Equal(t, "I run surveys.", app.CoverLetter)
	assert.Equal(t, np.OrgID, app.OrgID)

	_, err = f.svc.Apply(f.ctx, r, proj.ID, "again")
	assert.Equal(t, apperr.KindConflict, kindOf(err))
	assert.Equal(t, apperr.CodeAlreadyApplied, apperr.CodeOf(err))

	listed, err := f.svc.ListProjectApplications(f.ctx, np, proj.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = f.svc.DecideApplication(f.ctx, np, app.ID, "hire")
	assert.Equal(t, apperr.KindValidation, kindOf(err))

	decided, err := f.svc.DecideApplication(f.ctx, np, app.ID, "accept")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationAccepted, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	got, err := f.svc.GetProject(f.ctx, np, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectInProgress, got.Status)

	reviews, err := f.svc.ListReviews(f.ctx, np, proj.ID)
	require.NoError(t, err)
	var started *model.ProjectReview
	for i := range reviews {
		if reviews[i].Action == "collaboration_started" {
			started = &reviews[i]
		}
	}
	require.NotNil(t, started)
	assert.Equal(t, model.ProjectOpen, started.PreviousStatus)
	assert.Equal(t, model.ProjectInProgress, started.NewStatus)

	_, err = f.svc.WithdrawApplication(f.ctx, r, app.ID)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(err))

	mine, err := f.svc.ListMyApplications(f.ctx, r)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestApplyRequiresOpenProject(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	r := f.register(t, model.RoleResearcher, "r@example.com")
	draft := f.project(t, np, "Draft")

	_, err := f.svc.Apply(f.ctx, r, draft.ID, "")
	assert.Equal(t, apperr.KindNotFound, kindOf(err))

	_, err = f.svc.Apply(f.ctx, np, draft.ID, "")
	assert.Equal(t, apperr.KindRoleForbidden, kindOf(err))
}

func TestWithdrawThenReapply(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	r := f.register(t, model.RoleResearcher, "r@example.com")
	other := f.register(t, model.RoleResearcher, "other@example.com")
	adm := f.admin(t, "root@example.com")
	proj := f.openProject(t, np, adm, "Survey")

	app, err := f.svc.Apply(f.ctx, r, proj.ID, "")
	require.NoError(t, err)

	_, err = f.svc.WithdrawApplication(f.ctx, other, app.ID)
	assert.Equal(t, apperr.KindNotFound, kindOf(err))

	withdrawn, err := f.svc.WithdrawApplication(f.ctx, r, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationWithdrawn, withdrawn.Status)

	again, err := f.svc.Apply(f.ctx, r, proj.ID, "second try")
	require.NoError(t, err)
	assert.NotEqual(t, app.ID, again.ID)

	rejected, err := f.svc.DecideApplication(f.ctx, np, again.ID, "reject")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationRejected, rejected.Status)

	got, err := f.svc.GetProject(f.ctx, np, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectOpen, got.Status, "rejection leaves the project open")
}

func TestForeignOwnerCannotDecide(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	other := f.register(t, model.RoleNonprofit, "other@example.org")
	r := f.register(t, model.RoleResearcher, "r@example.com")
	adm := f.admin(t, "root@example.com")
	proj := f.openProject(t, np, adm, "Survey")

	app, err := f.svc.Apply(f.ctx, r, proj.ID, "")
	require.NoError(t, err)

	_, err = f.svc.DecideApplication(f.ctx, other, app.ID, "accept")
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
	_, err = f.svc.ListProjectApplications(f.ctx, other, proj.ID)
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
	_, err = f.svc.ListMyApplications(f.ctx, np)
	assert.Equal(t, apperr.KindRoleForbidden, kindOf(err))

	stored, err := f.st.Applications.FindByID(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationPending, stored.Status)
}

func TestAdminAcceptIsAudited(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	r := f.register(t, model.RoleResearcher, "r@example.com")
	adm := f.admin(t, "root@example.com")
	proj := f.openProject(t, np, adm, "Survey")

	app, err := f.svc.Apply(f.ctx, r, proj.ID, "hello")
	require.NoError(t, err)
	_, err = f.svc.DecideApplication(f.ctx, adm, app.ID, "accept")
	require.NoError(t, err)

	events, err := f.svc.ListAuditEvents(f.ctx, adm, store.AuditFilter{EntityType: "project", EntityID: proj.ID})
	require.NoError(t, err)
	e := findAction(events, "project.status_changed")
	require.NotNil(t, e)
	assert.Equal(t, adm.UserID, e.ActorID)
	assert.Equal(t, "collaboration_started", e.Details["event"])
	assert.Equal(t, "open", e.Details["from"])
	assert.Equal(t, "in_progress", e.Details["to"])
}
