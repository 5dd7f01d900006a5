package model

// Role is fixed at account creation.
type Role string

const (
	RoleResearcher Role = "researcher"
	RoleNonprofit  Role = "nonprofit"
	RoleAdmin      Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleResearcher, RoleNonprofit, RoleAdmin:
		return true
	}
	return false
}

// AccountStatus is the legacy status column of a user. Soft deletion is tracked
// separately through User.DeletedAt.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountPending   AccountStatus = "pending"
	AccountSuspended AccountStatus = "suspended"
)

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountActive, AccountPending, AccountSuspended:
		return true
	}
	return false
}

// ProjectStatus is the review/execution status of a project.
type ProjectStatus string

const (
	ProjectDraft         ProjectStatus = "draft"
	ProjectPendingReview ProjectStatus = "pending_review"
	ProjectApproved      ProjectStatus = "approved"
	ProjectRejected      ProjectStatus = "rejected"
	ProjectNeedsRevision ProjectStatus = "needs_revision"
	ProjectOpen          ProjectStatus = "open"
	ProjectInProgress    ProjectStatus = "in_progress"
	ProjectCompleted     ProjectStatus = "completed"
	ProjectCancelled     ProjectStatus = "cancelled"
)

// ProjectStatuses lists the declared status set in lifecycle order.
var ProjectStatuses = []ProjectStatus{
	ProjectDraft, ProjectPendingReview, ProjectApproved, ProjectRejected, ProjectNeedsRevision,
	ProjectOpen, ProjectInProgress, ProjectCompleted, ProjectCancelled,
}

func (s ProjectStatus) IsValid() bool {
	for _, v := range ProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// MilestoneStatus is the stored status of a milestone.
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestoneCancelled  MilestoneStatus = "cancelled"
)

func (s MilestoneStatus) IsValid() bool {
	switch s {
	case MilestonePending, MilestoneInProgress, MilestoneCompleted, MilestoneCancelled:
		return true
	}
	return false
}

// ApplicationStatus is the status of a researcher's application to a project.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)
