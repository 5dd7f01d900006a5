package lifecycle

import (
	"fmt"
	"strings"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
)

// ProjectEvent names a project transition. The value is what the review trail
// records in its action column.
type ProjectEvent string

const (
	EventSubmit               ProjectEvent = "submitted"
	EventApproveProject       ProjectEvent = "approved"
	EventRejectProject        ProjectEvent = "rejected"
	EventRequestRevision      ProjectEvent = "revision_requested"
	EventStartCollaboration   ProjectEvent = "collaboration_started"
	EventProjectStatusUpdated ProjectEvent = "status_updated"
)

var projectTransitions = map[model.ProjectStatus]map[ProjectEvent]model.ProjectStatus{
	model.ProjectDraft:         {EventSubmit: model.ProjectPendingReview},
	model.ProjectNeedsRevision: {EventSubmit: model.ProjectPendingReview},
	model.ProjectPendingReview: {
		EventApproveProject:  model.ProjectApproved,
		EventRejectProject:   model.ProjectRejected,
		EventRequestRevision: model.ProjectNeedsRevision,
	},
	model.ProjectOpen: {EventStartCollaboration: model.ProjectInProgress},
}

// TransitionProject returns the status p moves to on ev, or an InvalidTransition
// error leaving p untouched. Submitting additionally requires a non-empty title.
func TransitionProject(p *model.Project, ev ProjectEvent) (model.ProjectStatus, error) {
	next, ok := projectTransitions[p.Status][ev]
	if !ok {
		return p.Status, apperr.InvalidTransition("",
			fmt.Sprintf("cannot apply %s to a project in status %s", ev, p.Status))
	}
	if ev == EventSubmit && strings.TrimSpace(p.Title) == "" {
		return p.Status, apperr.Validation("title is required before submitting for review")
	}
	return next, nil
}

// ReviewDecision maps an admin review decision onto its project event.
func ReviewDecision(decision string) (ProjectEvent, error) {
	switch decision {
	case "approve":
		return EventApproveProject, nil
	case "reject":
		return EventRejectProject, nil
	case "request_revision":
		return EventRequestRevision, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown review decision %q", decision))
}

// EditProjectStatus is the generic status edit available to the owner and to
// admins. Any declared status is accepted from any status.
func EditProjectStatus(to model.ProjectStatus) (model.ProjectStatus, error) {
	if !to.IsValid() {
		return "", apperr.Validation(fmt.Sprintf("unknown project status %q", to))
	}
	return to, nil
}

// VisibleToPublic reports whether a project may be shown to non-owners.
func VisibleToPublic(s model.ProjectStatus) bool { return s == model.ProjectOpen }
