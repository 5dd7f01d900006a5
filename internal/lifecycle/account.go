// Package lifecycle holds the explicit state machines for users, projects,
// milestones and applications. Every function here is pure: callers load the
// entity, ask for the next state and persist it.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
)

// AccountKind is the collapsed, observable account state.
type AccountKind string

const (
	AccountActive    AccountKind = "active"
	AccountPending   AccountKind = "pending"
	AccountSuspended AccountKind = "suspended"
)

// AccountState is the tagged lifecycle state of a user. For AccountSuspended,
// At is the soft-delete timestamp; a nil At means the account was only marked
// suspended through a status edit and is not soft-deleted.
type AccountState struct {
	Kind   AccountKind
	At     *time.Time
	Reason string
}

// SoftDeleted reports whether the state carries a deletion timestamp.
func (s AccountState) SoftDeleted() bool { return s.Kind == AccountSuspended && s.At != nil }

// AccountEvent is a caller-triggered account transition.
type AccountEvent string

const (
	EventApprove    AccountEvent = "approve"
	EventSuspend    AccountEvent = "suspend"
	EventSelfDelete AccountEvent = "self_delete"
	EventRestore    AccountEvent = "restore"
)

type accountEdge struct {
	to    AccountKind
	guard func(AccountState) error
}

var accountTransitions = map[AccountKind]map[AccountEvent]accountEdge{
	AccountPending: {
		EventApprove: {to: AccountActive},
		EventSuspend: {to: AccountSuspended},
	},
	AccountActive: {
		EventSuspend:    {to: AccountSuspended},
		EventSelfDelete: {to: AccountSuspended},
	},
	AccountSuspended: {
		EventSuspend: {to: AccountSuspended, guard: requireNotDeleted},
		EventRestore: {to: AccountActive, guard: requireDeleted},
	},
}

func requireNotDeleted(s AccountState) error {
	if s.SoftDeleted() {
		return apperr.InvalidTransition(apperr.CodeAlreadyDeleted, "account is already deleted")
	}
	return nil
}

func requireDeleted(s AccountState) error {
	if !s.SoftDeleted() {
		return apperr.InvalidTransition(apperr.CodeNotDeleted, "account is not deleted")
	}
	return nil
}

// AccountStateOf derives the lifecycle state from the persisted columns.
// A deletion timestamp dominates the status column.
func AccountStateOf(u *model.User) AccountState {
	if u.DeletedAt != nil {
		at := *u.DeletedAt
		return AccountState{Kind: AccountSuspended, At: &at, Reason: u.SuspensionReason}
	}
	switch u.AccountStatus {
	case model.AccountPending:
		return AccountState{Kind: AccountPending}
	case model.AccountSuspended:
		return AccountState{Kind: AccountSuspended, Reason: u.SuspensionReason}
	default:
		return AccountState{Kind: AccountActive}
	}
}

// TransitionAccount validates ev against the current state and returns the next one.
// Admin accounts can never be suspended or soft-deleted, by anyone.
func TransitionAccount(cur AccountState, ev AccountEvent, target model.Role, now time.Time, reason string) (AccountState, error) {
	if (ev == EventSuspend || ev == EventSelfDelete) && target == model.RoleAdmin {
		return cur, apperr.RoleForbidden(apperr.CodeAdminExempt, "admin accounts cannot be suspended or deleted")
	}
	edge, ok := accountTransitions[cur.Kind][ev]
	if !ok {
		return cur, rejectAccount(cur, ev)
	}
	if edge.guard != nil {
		if err := edge.guard(cur); err != nil {
			return cur, err
		}
	}
	next := AccountState{Kind: edge.to}
	if edge.to == AccountSuspended {
		at := now.UTC()
		next.At = &at
		next.Reason = reason
	}
	return next, nil
}

func rejectAccount(cur AccountState, ev AccountEvent) error {
	switch ev {
	case EventApprove:
		return apperr.InvalidTransition(apperr.CodeNotPending, "account is not pending approval")
	case EventRestore:
		return apperr.InvalidTransition(apperr.CodeNotDeleted, "account is not deleted")
	}
	return apperr.InvalidTransition("", fmt.Sprintf("cannot %s an account in state %s", ev, cur.Kind))
}

// ApplyAccountState writes s back onto the legacy columns of u.
func ApplyAccountState(u *model.User, s AccountState) {
	switch s.Kind {
	case AccountActive:
		u.AccountStatus = model.AccountActive
		u.DeletedAt = nil
		u.SuspensionReason = ""
	case AccountPending:
		u.AccountStatus = model.AccountPending
		u.DeletedAt = nil
		u.SuspensionReason = ""
	case AccountSuspended:
		if s.At != nil {
			at := *s.At
			u.DeletedAt = &at
		} else {
			u.AccountStatus = model.AccountSuspended
		}
		u.SuspensionReason = s.Reason
	}
}

// EditAccountStatus is the admin's generic status edit. It never touches the
// deletion timestamp.
func EditAccountStatus(status model.AccountStatus, target model.Role) error {
	if !status.IsValid() {
		return apperr.Validation(fmt.Sprintf("unknown account status %q", status))
	}
	if status == model.AccountSuspended && target == model.RoleAdmin {
		return apperr.RoleForbidden(apperr.CodeAdminExempt, "admin accounts cannot be suspended")
	}
	return nil
}

// CheckAuthenticatable returns an Auth error unless the account may sign in.
func CheckAuthenticatable(s AccountState) error {
	switch s.Kind {
	case AccountSuspended:
		return apperr.Auth(apperr.CodeAccountSuspended, "account is suspended")
	case AccountPending:
		return apperr.Auth(apperr.CodeAccountPending, "account is pending approval")
	}
	return nil
}
