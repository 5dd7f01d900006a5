package lifecycle

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
)

// MilestoneState is the part of a milestone owned by its state machine.
type MilestoneState struct {
	Status      model.MilestoneStatus
	CompletedAt *time.Time
}

type milestoneAction func(cur MilestoneState, now time.Time) *time.Time

func stampCompleted(_ MilestoneState, now time.Time) *time.Time {
	at := now.UTC()
	return &at
}

func keepCompleted(cur MilestoneState, now time.Time) *time.Time {
	if cur.CompletedAt == nil {
		return stampCompleted(cur, now)
	}
	return cur.CompletedAt
}

func clearCompleted(MilestoneState, time.Time) *time.Time { return nil }

// milestoneActionFor picks the completedAt side effect of moving from one status
// to another. Every declared status is reachable from every other.
func milestoneActionFor(from, to model.MilestoneStatus) milestoneAction {
	switch {
	case to == model.MilestoneCompleted && from == model.MilestoneCompleted:
		return keepCompleted
	case to == model.MilestoneCompleted:
		return stampCompleted
	default:
		return clearCompleted
	}
}

// TransitionMilestone moves cur to status to, stamping completedAt when entering
// completed and clearing it when leaving.
func TransitionMilestone(cur MilestoneState, to model.MilestoneStatus, now time.Time) (MilestoneState, error) {
	if !to.IsValid() {
		return cur, apperr.Validation(fmt.Sprintf("unknown milestone status %q", to))
	}
	from := cur.Status
	if from == "" {
		from = model.MilestonePending
	}
	return MilestoneState{Status: to, CompletedAt: milestoneActionFor(from, to)(cur, now)}, nil
}

// InitialMilestone returns the state of a freshly created milestone.
func InitialMilestone(status model.MilestoneStatus, now time.Time) (MilestoneState, error) {
	if status == "" {
		status = model.MilestonePending
	}
	return TransitionMilestone(MilestoneState{Status: model.MilestonePending}, status, now)
}

// ValidateMilestoneName requires a non-blank name.
func ValidateMilestoneName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("milestone name is required")
	}
	return name, nil
}

// ValidateDueDateOnCreate requires the due date to be today or later. Updates
// skip this check.
func ValidateDueDateOnCreate(due *time.Time, now time.Time) error {
	if due == nil {
		return nil
	}
	if day(*due).Before(day(now)) {
		return apperr.ValidationCode(apperr.CodeMilestoneDueDatePast, "due date must be today or later")
	}
	return nil
}

// MilestoneDerived holds the read-time fields of a milestone.
type MilestoneDerived struct {
	IsOverdue       bool
	DaysUntilDue    *int
	EffectiveStatus model.MilestoneStatus
}

// DeriveMilestone computes the read-time view of m at now.
func DeriveMilestone(m *model.Milestone, now time.Time) MilestoneDerived {
	d := MilestoneDerived{EffectiveStatus: m.Status}
	if m.DueDate == nil {
		return d
	}
	d.IsOverdue = m.DueDate.Before(now) && m.Status != model.MilestoneCompleted
	days := int(math.Round(day(*m.DueDate).Sub(day(now)).Hours() / 24))
	d.DaysUntilDue = &days
	return d
}

// CompletionRate is the rounded percentage of completed milestones, 0 when empty.
func CompletionRate(milestones []model.Milestone) int {
	if len(milestones) == 0 {
		return 0
	}
	completed := 0
	for i := range milestones {
		if milestones[i].Status == model.MilestoneCompleted {
			completed++
		}
	}
	return CompletionRateOf(completed, len(milestones))
}

// CompletionRateOf is CompletionRate over precomputed counts.
func CompletionRateOf(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
