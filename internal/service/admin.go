package service

import (
	"context"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/audit"
	"github.com/d9705996/researchbridge/internal/auth"
	"github.com/d9705996/researchbridge/internal/lifecycle"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/store"
)

// HardDeleteConfirmation is the literal an admin must send to hard-delete a user.
const HardDeleteConfirmation = "DELETE"

// ListUsers returns accounts for the admin console.
func (s *Service) ListUsers(ctx context.Context, p policy.Principal, f store.UserFilter) ([]model.User, error) {
	ctx, span := tracer.Start(ctx, "Admin.ListUsers")
	defer span.End()

	if err := policy.Check(p, policy.UserList, policy.Target{}, "user"); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.IsValid() {
		return nil, apperr.Validation("unknown account status filter")
	}
	if f.Role != "" && !f.Role.IsValid() {
		return nil, apperr.Validation("unknown role filter")
	}
	users, err := s.store.Users.List(ctx, f)
	if err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	return users, nil
}

// ApproveUser moves a pending account to active.
func (s *Service) ApproveUser(ctx context.Context, p policy.Principal, userID string) (*model.User, error) {
	return s.transitionUser(ctx, p, userID, policy.UserApprove, lifecycle.EventApprove, "", audit.ActionUserApproved)
}

// SuspendUser soft-deletes a non-admin account, recording reason.
func (s *Service) SuspendUser(ctx context.Context, p policy.Principal, userID, reason string) (*model.User, error) {
	return s.transitionUser(ctx, p, userID, policy.UserSuspend, lifecycle.EventSuspend, reason, audit.ActionUserSuspended)
}

// UnsuspendUser restores a soft-deleted account.
func (s *Service) UnsuspendUser(ctx context.Context, p policy.Principal, userID string) (*model.User, error) {
	return s.transitionUser(ctx, p, userID, policy.UserUnsuspend, lifecycle.EventRestore, "", audit.ActionUserRestored)
}

// RestoreUser is UnsuspendUser under its own policy action.
func (s *Service) RestoreUser(ctx context.Context, p policy.Principal, userID string) (*model.User, error) {
	return s.transitionUser(ctx, p, userID, policy.UserRestore, lifecycle.EventRestore, "", audit.ActionUserRestored)
}

func (s *Service) transitionUser(ctx context.Context, p policy.Principal, userID string, action policy.Action,
	ev lifecycle.AccountEvent, reason, auditAction string,
) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "Admin."+string(ev))
	defer span.End()

	if err := policy.Check(p, action, policy.Target{UserID: userID}, "user"); err != nil {
		return nil, err
	}
	var u *model.User
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if u, err = tx.Users.FindByID(ctx, userID); err != nil {
			return err
		}
		prev := lifecycle.AccountStateOf(u)
		next, err := lifecycle.TransitionAccount(prev, ev, u.Role, s.clock(), reason)
		if err != nil {
			return err
		}
		lifecycle.ApplyAccountState(u, next)
		if err := tx.Users.Update(ctx, u); err != nil {
			return err
		}
		if next.Kind == lifecycle.AccountSuspended {
			if err := auth.NewRefreshStore(tx.DB(), s.opts.RefreshTTL).WithClock(s.now).RevokeAllForUser(ctx, u.ID); err != nil {
				return err
			}
		}
		details := map[string]string{"from": string(prev.Kind), "to": string(next.Kind)}
		if reason != "" {
			details["reason"] = reason
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    p.UserID,
			Action:     auditAction,
			EntityType: audit.EntityUser,
			EntityID:   u.ID,
			Details:    details,
		})
	})
	if err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	return u, nil
}

// SetAccountStatus is the admin's generic edit of the status column. It never
// touches the soft-delete timestamp.
func (s *Service) SetAccountStatus(ctx context.Context, p policy.Principal, userID string, status model.AccountStatus) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "Admin.SetAccountStatus")
	defer span.End()

	if err := policy.Check(p, policy.UserStatusEdit, policy.Target{UserID: userID}, "user"); err != nil {
		return nil, err
	}
	var u *model.User
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if u, err = tx.Users.FindByID(ctx, userID); err != nil {
			return err
		}
		if err := lifecycle.EditAccountStatus(status, u.Role); err != nil {
			return err
		}
		prev := u.AccountStatus
		u.AccountStatus = status
		if err := tx.Users.Update(ctx, u); err != nil {
			return err
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    p.UserID,
			Action:     audit.ActionUserStatusChanged,
			EntityType: audit.EntityUser,
			EntityID:   u.ID,
			Details:    map[string]string{"from": string(prev), "to": string(status)},
		})
	})
	if err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	return u, nil
}

// HardDeleteUser permanently removes an account and everything it owns.
// It requires the literal confirmation "DELETE" and never applies to the
// acting admin.
func (s *Service) HardDeleteUser(ctx context.Context, p policy.Principal, userID, confirmation string) error {
	ctx, span := tracer.Start(ctx, "Admin.HardDeleteUser")
	defer span.End()

	if err := policy.Check(p, policy.UserHardDelete, policy.Target{UserID: userID}, "user"); err != nil {
		return err
	}
	if confirmation != HardDeleteConfirmation {
		return apperr.ConfirmationRequired(`send confirmation "DELETE" to permanently delete this account`)
	}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		u, err := tx.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Users.HardDelete(ctx, u.ID); err != nil {
			return err
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    p.UserID,
			Action:     audit.ActionUserHardDeleted,
			EntityType: audit.EntityUser,
			EntityID:   u.ID,
			Details:    map[string]string{"email": u.Email, "role": string(u.Role)},
		})
	})
	return fail(span, storeErr("user", err))
}

// ListAuditEvents returns the newest audit events matching f.
func (s *Service) ListAuditEvents(ctx context.Context, p policy.Principal, f store.AuditFilter) ([]model.AuditLog, error) {
	ctx, span := tracer.Start(ctx, "Admin.ListAuditEvents")
	defer span.End()

	if err := policy.Check(p, policy.AuditRead, policy.Target{}, "audit event"); err != nil {
		return nil, err
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	events, err := s.store.Audit.List(ctx, f)
	if err != nil {
		return nil, fail(span, storeErr("audit event", err))
	}
	return events, nil
}
