package service_test

import (
	"testing"
	"time"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilestoneCompletedAtFollowsStatus(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	proj := f.project(t, np, "Survey")

	m, err := f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{Name: ptr("Kickoff")})
	require.NoError(t, err)
	assert.Equal(t, model.MilestonePending, m.Status)
	assert.Nil(t, m.CompletedAt)

	m, err = f.svc.UpdateMilestone(f.ctx, np, m.ID, service.MilestoneInput{Status: ptr(model.MilestoneCompleted)})
	require.NoError(t, err)
	require.NotNil(t, m.CompletedAt)
	assert.Equal(t, now, m.CompletedAt.UTC())

	m, err = f.svc.UpdateMilestone(f.ctx, np, m.ID, service.MilestoneInput{Status: ptr(model.MilestoneInProgress)})
	require.NoError(t, err)
	assert.Nil(t, m.CompletedAt)

	stored, err := f.st.Milestones.FindByID(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MilestoneInProgress, stored.Status)
	assert.Nil(t, stored.CompletedAt)

	_, err = f.svc.UpdateMilestone(f.ctx, np, m.ID, service.MilestoneInput{Status: ptr(model.MilestoneStatus("paused"))})
	assert.Equal(t, apperr.KindValidation, kindOf(err))
}

func TestCreateMilestoneCompleted(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	proj := f.project(t, np, "Survey")

	m, err := f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{
		Name:   ptr("Done already"),
		Status: ptr(model.MilestoneCompleted),
	})
	require.NoError(t, err)
	require.NotNil(t, m.CompletedAt)
}

func TestMilestoneDueDates(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	proj := f.project(t, np, "Survey")

	yesterday := now.AddDate(0, 0, -1)
	_, err := f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{Name: ptr("Late"), DueDate: &yesterday})
	assert.Equal(t, apperr.KindValidation, kindOf(err))
	assert.Equal(t, apperr.CodeMilestoneDueDatePast, apperr.CodeOf(err))

	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	m, err := f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{Name: ptr("Today"), DueDate: &today})
	require.NoError(t, err)
	require.NotNil(t, m.DaysUntilDue)
	assert.Equal(t, 0, *m.DaysUntilDue)

	m, err = f.svc.UpdateMilestone(f.ctx, np, m.ID, service.MilestoneInput{DueDate: &yesterday})
	require.NoError(t, err, "updates do not re-validate the due date")
	assert.True(t, m.IsOverdue)
	assert.Equal(t, -1, *m.DaysUntilDue)

	m, err = f.svc.UpdateMilestone(f.ctx, np, m.ID, service.MilestoneInput{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, m.DueDate)
	assert.Nil(t, m.DaysUntilDue)
	assert.False(t, m.IsOverdue)
}

func TestMilestoneValidation(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	proj := f.project(t, np, "Survey")

	_, err := f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{Name: ptr("   ")})
	assert.Equal(t, apperr.KindValidation, kindOf(err))
	_, err = f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{})
	assert.Equal(t, apperr.KindValidation, kindOf(err))
	_, err = f.svc.CreateMilestone(f.ctx, np, "missing", service.MilestoneInput{Name: ptr("X")})
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
}

func TestMilestone_ForeignOrganizationIsNotFound(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	other := f.register(t, model.RoleNonprofit, "other@example.org")
	r := f.register(t, model.RoleResearcher, "r@example.com")
	proj := f.project(t, np, "Survey")

	m, err := f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{Name: ptr("Kickoff")})
	require.NoError(t, err)

	_, err = f.svc.UpdateMilestone(f.ctx, other, m.ID, service.MilestoneInput{Status: ptr(model.MilestoneCompleted)})
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
	err = f.svc.DeleteMilestone(f.ctx, other, m.ID)
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
	_, err = f.svc.CreateMilestone(f.ctx, other, proj.ID, service.MilestoneInput{Name: ptr("Sneaky")})
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
	_, err = f.svc.GetMilestone(f.ctx, other, m.ID)
	assert.Equal(t, apperr.KindNotFound, kindOf(err))

	_, err = f.svc.UpdateMilestone(f.ctx, r, m.ID, service.MilestoneInput{Name: ptr("Mine now")})
	assert.Equal(t, apperr.KindRoleForbidden, kindOf(err))

	stored, err := f.st.Milestones.FindByID(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MilestonePending, stored.Status)
	assert.Equal(t, "Kickoff", stored.Name)
}

func TestCompletionRate(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	proj := f.project(t, np, "Survey")

	got, err := f.svc.GetProject(f.ctx, np, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CompletionRate)

	for i, status := range []model.MilestoneStatus{model.MilestoneCompleted, model.MilestonePending, model.MilestoneInProgress} {
		_, err := f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{
			Name:   ptr(string(rune('A' + i))),
			Status: ptr(status),
		})
		require.NoError(t, err)
	}

	got, err = f.svc.GetProject(f.ctx, np, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MilestoneCount)
	assert.Equal(t, 1, got.CompletedMilestones)
	assert.Equal(t, 33, got.CompletionRate)

	list, err := f.svc.ListMilestones(f.ctx, np, proj.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestDeleteMilestone(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	proj := f.project(t, np, "Survey")
	m, err := f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{Name: ptr("Kickoff")})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMilestone(f.ctx, np, m.ID))
	_, err = f.svc.GetMilestone(f.ctx, np, m.ID)
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
	err = f.svc.DeleteMilestone(f.ctx, np, m.ID)
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
}
