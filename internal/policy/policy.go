// Package policy is the single authorization table of the platform. Authorize
// is a pure function: it never loads data and never trusts client-supplied
// ownership ids; callers pass the target's stored foreign keys.
package policy

import (
	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
)

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID        string
	Role          model.Role
	AccountStatus model.AccountStatus
	// OrgID is the organization owned by a nonprofit principal, if any.
	OrgID string
	// ProfileID is the researcher profile of a researcher principal, if any.
	ProfileID string
}

func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// Action enumerates everything the policy can decide on.
type Action string

const (
	ProjectCreate       Action = "project:create"
	ProjectEdit         Action = "project:edit"
	ProjectDelete       Action = "project:delete"
	ProjectSubmit       Action = "project:submit"
	ProjectRead         Action = "project:read"
	ProjectReadTrail    Action = "project:read_trail"
	ProjectReview       Action = "project:review"
	ProjectListAll      Action = "project:list_all"
	MilestoneCreate     Action = "milestone:create"
	MilestoneEdit       Action = "milestone:edit"
	MilestoneDelete     Action = "milestone:delete"
	SelfEdit            Action = "user:self_edit"
	SelfDelete          Action = "user:self_delete"
	OrganizationEdit    Action = "organization:edit"
	ProfileEdit         Action = "profile:edit"
	UserList            Action = "user:list"
	UserApprove         Action = "user:approve"
	UserSuspend         Action = "user:suspend"
	UserUnsuspend       Action = "user:unsuspend"
	UserRestore         Action = "user:restore"
	UserStatusEdit      Action = "user:status_edit"
	UserHardDelete      Action = "user:hard_delete"
	AuditRead           Action = "audit:read"
	ApplicationCreate   Action = "application:create"
	ApplicationDecide   Action = "application:decide"
	ApplicationWithdraw Action = "application:withdraw"
	ApplicationList     Action = "application:list"
)

// Target carries the stored ownership keys of the entity acted upon.
type Target struct {
	// OrgID is the owning organization of a project, or of a milestone's parent project.
	OrgID string
	// UserID is the subject user of a user-level action.
	UserID string
	// ProfileID is the researcher profile of an application.
	ProfileID string
	// Public marks a target readable by everyone (an open project).
	Public bool
}

// Reason is the stable machine-checkable code of a denial.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNotOwner            Reason = Reason(apperr.CodeNotOwner)
	ReasonRoleNotPermitted    Reason = Reason(apperr.CodeRoleNotPermitted)
	ReasonSelfDeleteForbidden Reason = Reason(apperr.CodeSelfDeleteForbidden)
	ReasonOrganizationMissing Reason = Reason(apperr.CodeOrganizationRequired)
	ReasonProfileMissing      Reason = Reason(apperr.CodeProfileRequired)
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }
func denyRole() Decision { return deny(ReasonRoleNotPermitted) }

func allowIf(owner bool) Decision {
	if owner {
		return allow()
	}
	return deny(ReasonNotOwner)
}

// Authorize decides whether p may perform a on t.
func Authorize(p Principal, a Action, t Target) Decision {
	switch a {
	case ProjectRead:
		if t.Public || p.IsAdmin() {
			return allow()
		}
		return allowIf(p.Role == model.RoleNonprofit && ownsOrg(p, t))

	case ProjectCreate:
		if p.IsAdmin() {
			return allow()
		}
		if p.Role != model.RoleNonprofit {
			return denyRole()
		}
		if p.OrgID == "" {
			return deny(ReasonOrganizationMissing)
		}
		return allowIf(t.OrgID == "" || ownsOrg(p, t))

	case ProjectEdit, ProjectDelete, ProjectSubmit, ProjectReadTrail, ApplicationList,
		MilestoneCreate, MilestoneEdit, MilestoneDelete, ApplicationDecide:
		if p.IsAdmin() {
			return allow()
		}
		if p.Role != model.RoleNonprofit {
			return denyRole()
		}
		return allowIf(ownsOrg(p, t))

	case SelfEdit, SelfDelete:
		return allowIf(p.UserID != "" && p.UserID == t.UserID)

	case OrganizationEdit:
		if p.Role != model.RoleNonprofit {
			return denyRole()
		}
		return allowIf(p.UserID == t.UserID)

	case ProfileEdit:
		if p.Role != model.RoleResearcher {
			return denyRole()
		}
		return allowIf(p.UserID == t.UserID)

	case ApplicationCreate:
		if p.Role != model.RoleResearcher {
			return denyRole()
		}
		if p.ProfileID == "" {
			return deny(ReasonProfileMissing)
		}
		return allow()

	case ApplicationWithdraw:
		if p.Role != model.RoleResearcher {
			return denyRole()
		}
		return allowIf(p.ProfileID != "" && p.ProfileID == t.ProfileID)

	case UserHardDelete:
		if !p.IsAdmin() {
			return denyRole()
		}
		if p.UserID == t.UserID {
			return deny(ReasonSelfDeleteForbidden)
		}
		return allow()

	case ProjectReview, ProjectListAll, UserList, UserApprove, UserSuspend, UserUnsuspend,
		UserRestore, UserStatusEdit, AuditRead:
		if !p.IsAdmin() {
			return denyRole()
		}
		return allow()
	}
	return denyRole()
}

func ownsOrg(p Principal, t Target) bool {
	return p.OrgID != "" && t.OrgID != "" && p.OrgID == t.OrgID
}

// Check runs Authorize and converts a denial into the error the caller returns.
// Ownership mismatches surface as NotFound so other organizations' data is not
// revealed; role mismatches surface as RoleForbidden.
func Check(p Principal, a Action, t Target, entity string) error {
	d := Authorize(p, a, t)
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonNotOwner:
		return apperr.NotFound(entity)
	case ReasonSelfDeleteForbidden:
		return apperr.RoleForbidden(apperr.CodeSelfDeleteForbidden, "admins cannot permanently delete their own account")
	case ReasonOrganizationMissing:
		return apperr.ValidationCode(apperr.CodeOrganizationRequired, "create your organization before posting projects")
	case ReasonProfileMissing:
		return apperr.ValidationCode(apperr.CodeProfileRequired, "create your researcher profile before applying")
	}
	return apperr.RoleForbidden(apperr.CodeRoleNotPermitted, "your role does not permit this action")
}
