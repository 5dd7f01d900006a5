package lifecycle

import (
	"fmt"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
)

// ApplicationEvent is a transition of a researcher application.
type ApplicationEvent string

const (
	EventAccept   ApplicationEvent = "accept"
	EventDecline  ApplicationEvent = "reject"
	EventWithdraw ApplicationEvent = "withdraw"
)

var applicationTransitions = map[model.ApplicationStatus]map[ApplicationEvent]model.ApplicationStatus{
	model.ApplicationPending: {
		EventAccept:   model.ApplicationAccepted,
		EventDecline:  model.ApplicationRejected,
		EventWithdraw: model.ApplicationWithdrawn,
	},
}

// TransitionApplication returns the next status of an application.
func TransitionApplication(cur model.ApplicationStatus, ev ApplicationEvent) (model.ApplicationStatus, error) {
	next, ok := applicationTransitions[cur][ev]
	if !ok {
		return cur, apperr.InvalidTransition("", fmt.Sprintf("cannot %s an application in status %s", ev, cur))
	}
	return next, nil
}

// ParseApplicationDecision maps an owner decision onto its event.
func ParseApplicationDecision(decision string) (ApplicationEvent, error) {
	switch ApplicationEvent(decision) {
	case EventAccept, EventDecline:
		return ApplicationEvent(decision), nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown application decision %q", decision))
}
