package policy_test

import (
	"testing"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/stretchr/testify/assert"
)

var (
	admin      = policy.Principal{UserID: "u-admin", Role: model.RoleAdmin}
	nonprofit  = policy.Principal{UserID: "u-np", Role: model.RoleNonprofit, OrgID: "org-1"}
	otherNP    = policy.Principal{UserID: "u-np2", Role: model.RoleNonprofit, OrgID: "org-2"}
	orphanNP   = policy.Principal{UserID: "u-np3", Role: model.RoleNonprofit}
	researcher = policy.Principal{UserID: "u-r", Role: model.RoleResearcher, ProfileID: "prof-1"}
)

func TestAuthorize_OwnedProjectActions(t *testing.T) {
	owned := policy.Target{OrgID: "org-1"}
	actions := []policy.Action{
		policy.ProjectEdit, policy.ProjectDelete, policy.ProjectSubmit, policy.ProjectReadTrail,
		policy.MilestoneCreate, policy.MilestoneEdit, policy.MilestoneDelete,
		policy.ApplicationDecide, policy.ApplicationList,
	}
	for _, a := range actions {
		assert.True(t, policy.Authorize(nonprofit, a, owned).Allowed, a)
		assert.True(t, policy.Authorize(admin, a, owned).Allowed, a)

		d := policy.Authorize(otherNP, a, owned)
		assert.False(t, d.Allowed, a)
		assert.Equal(t, policy.ReasonNotOwner, d.Reason, a)

		d = policy.Authorize(researcher, a, owned)
		assert.False(t, d.Allowed, a)
		assert.Equal(t, policy.ReasonRoleNotPermitted, d.Reason, a)
	}
}

func TestAuthorize_NonprofitWithoutOrgOwnsNothing(t *testing.T) {
	d := policy.Authorize(orphanNP, policy.ProjectEdit, policy.Target{})
	assert.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonNotOwner, d.Reason)
}

func TestAuthorize_ProjectCreate(t *testing.T) {
	assert.True(t, policy.Authorize(nonprofit, policy.ProjectCreate, policy.Target{}).Allowed)
	assert.True(t, policy.Authorize(admin, policy.ProjectCreate, policy.Target{OrgID: "org-9"}).Allowed)

	d := policy.Authorize(researcher, policy.ProjectCreate, policy.Target{})
	assert.Equal(t, policy.ReasonRoleNotPermitted, d.Reason)

	d = policy.Authorize(orphanNP, policy.ProjectCreate, policy.Target{})
	assert.Equal(t, policy.ReasonOrganizationMissing, d.Reason)

	d = policy.Authorize(nonprofit, policy.ProjectCreate, policy.Target{OrgID: "org-2"})
	assert.Equal(t, policy.ReasonNotOwner, d.Reason)
}

func TestAuthorize_ProjectRead(t *testing.T) {
	public := policy.Target{OrgID: "org-2", Public: true}
	hidden := policy.Target{OrgID: "org-2"}

	assert.True(t, policy.Authorize(policy.Principal{}, policy.ProjectRead, public).Allowed)
	assert.True(t, policy.Authorize(researcher, policy.ProjectRead, public).Allowed)
	assert.False(t, policy.Authorize(researcher, policy.ProjectRead, hidden).Allowed)
	assert.False(t, policy.Authorize(nonprofit, policy.ProjectRead, hidden).Allowed)
	assert.True(t, policy.Authorize(otherNP, policy.ProjectRead, hidden).Allowed)
	assert.True(t, policy.Authorize(admin, policy.ProjectRead, hidden).Allowed)
}

func TestAuthorize_AdminOnlyActions(t *testing.T) {
	actions := []policy.Action{
		policy.ProjectReview, policy.ProjectListAll, policy.UserList, policy.UserApprove,
		policy.UserSuspend, policy.UserUnsuspend, policy.UserRestore, policy.UserStatusEdit,
		policy.AuditRead,
	}
	for _, a := range actions {
		assert.True(t, policy.Authorize(admin, a, policy.Target{UserID: "u-r"}).Allowed, a)
		for _, p := range []policy.Principal{nonprofit, researcher} {
			d := policy.Authorize(p, a, policy.Target{UserID: "u-r"})
			assert.False(t, d.Allowed, a)
			assert.Equal(t, policy.ReasonRoleNotPermitted, d.Reason, a)
		}
	}
}

func TestAuthorize_HardDelete(t *testing.T) {
	assert.True(t, policy.Authorize(admin, policy.UserHardDelete, policy.Target{UserID: "u-r"}).Allowed)

	d := policy.Authorize(admin, policy.UserHardDelete, policy.Target{UserID: admin.UserID})
	assert.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonSelfDeleteForbidden, d.Reason)

	d = policy.Authorize(nonprofit, policy.UserHardDelete, policy.Target{UserID: "u-r"})
	assert.Equal(t, policy.ReasonRoleNotPermitted, d.Reason)
}

func TestAuthorize_SelfService(t *testing.T) {
	assert.True(t, policy.Authorize(researcher, policy.SelfEdit, policy.Target{UserID: "u-r"}).Allowed)
	assert.True(t, policy.Authorize(researcher, policy.SelfDelete, policy.Target{UserID: "u-r"}).Allowed)
	assert.False(t, policy.Authorize(researcher, policy.SelfEdit, policy.Target{UserID: "u-np"}).Allowed)
	assert.False(t, policy.Authorize(policy.Principal{}, policy.SelfEdit, policy.Target{}).Allowed)
}

func TestAuthorize_OrganizationAndProfile(t *testing.T) {
	assert.True(t, policy.Authorize(nonprofit, policy.OrganizationEdit, policy.Target{UserID: "u-np"}).Allowed)
	assert.Equal(t, policy.ReasonRoleNotPermitted,
		policy.Authorize(researcher, policy.OrganizationEdit, policy.Target{UserID: "u-r"}).Reason)

	assert.True(t, policy.Authorize(researcher, policy.ProfileEdit, policy.Target{UserID: "u-r"}).Allowed)
	assert.Equal(t, policy.ReasonNotOwner,
		policy.Authorize(researcher, policy.ProfileEdit, policy.Target{UserID: "u-x"}).Reason)
	assert.Equal(t, policy.ReasonRoleNotPermitted,
		policy.Authorize(admin, policy.ProfileEdit, policy.Target{UserID: "u-admin"}).Reason)
}

func TestAuthorize_Applications(t *testing.T) {
	assert.True(t, policy.Authorize(researcher, policy.ApplicationCreate, policy.Target{}).Allowed)
	assert.Equal(t, policy.ReasonProfileMissing,
		policy.Authorize(policy.Principal{UserID: "x", Role: model.RoleResearcher}, policy.ApplicationCreate, policy.Target{}).Reason)
	assert.Equal(t, policy.ReasonRoleNotPermitted,
		policy.Authorize(nonprofit, policy.ApplicationCreate, policy.Target{}).Reason)

	assert.True(t, policy.Authorize(researcher, policy.ApplicationWithdraw, policy.Target{ProfileID: "prof-1"}).Allowed)
	assert.Equal(t, policy.ReasonNotOwner,
		policy.Authorize(researcher, policy.ApplicationWithdraw, policy.Target{ProfileID: "prof-2"}).Reason)
}

func TestAuthorize_UnknownActionDenied(t *testing.T) {
	d := policy.Authorize(admin, policy.Action("bogus"), policy.Target{})
	assert.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonRoleNotPermitted, d.Reason)
}

func TestCheck_MapsReasonsToErrors(t *testing.T) {
	assert.NoError(t, policy.Check(nonprofit, policy.ProjectEdit, policy.Target{OrgID: "org-1"}, "project"))

	err := policy.Check(otherNP, policy.ProjectEdit, policy.Target{OrgID: "org-1"}, "project")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = policy.Check(researcher, policy.ProjectEdit, policy.Target{OrgID: "org-1"}, "project")
	assert.Equal(t, apperr.KindRoleForbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeRoleNotPermitted, apperr.CodeOf(err))

	err = policy.Check(admin, policy.UserHardDelete, policy.Target{UserID: admin.UserID}, "user")
	assert.Equal(t, apperr.KindRoleForbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeSelfDeleteForbidden, apperr.CodeOf(err))

	err = policy.Check(orphanNP, policy.ProjectCreate, policy.Target{}, "project")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeOrganizationRequired, apperr.CodeOf(err))
}
