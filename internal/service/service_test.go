package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/config"
	"github.com/d9705996/researchbridge/internal/db"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/service"
	"github.com/d9705996/researchbridge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-at-least-32-bytes-long"

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	svc *service.Service
	st  *store.Store
	ctx context.Context
}

func newFixture(t *testing.T, opts ...func(*service.Options)) *fixture {
	t.Helper()
	gormDB, _, err := db.New(context.Background(), &config.DBConfig{Driver: "sqlite", File: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	o := service.Options{
		JWTSecret:  testSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return now },
	}
	for _, fn := range opts {
		fn(&o)
	}
	st := store.New(gormDB)
	return &fixture{svc: service.New(st, o), st: st, ctx: context.Background()}
}

func (f *fixture) principal(t *testing.T, userID string) policy.Principal {
	t.Helper()
	p, err := f.svc.Resolver().ResolveUserID(f.ctx, userID)
	require.NoError(t, err)
	return p
}

func (f *fixture) register(t *testing.T, role model.Role, email string) policy.Principal {
	t.Helper()
	u, err := f.svc.Register(f.ctx, service.RegisterInput{
		Name:     "User " + email,
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	return f.principal(t, u.ID)
}

func (f *fixture) admin(t *testing.T, email string) policy.Principal {
	t.Helper()
	u := &model.User{Name: "Admin", Email: email, Role: model.RoleAdmin, AccountStatus: model.AccountActive, Preferences: model.StringMap{}}
	require.NoError(t, f.st.Users.Create(f.ctx, u))
	return f.principal(t, u.ID)
}

func kindOf(err error) apperr.Kind { return apperr.KindOf(err) }

// findAction returns the first event with the given action. The fixture clock
// is frozen, so events share a timestamp and their order is not meaningful.
func findAction(events []model.AuditLog, action string) *model.AuditLog {
	for i := range events {
		if events[i].Action == action {
			return &events[i]
		}
	}
	return nil
}

func TestRegister_CreatesRoleRows(t *testing.T) {
	f := newFixture(t)

	np, err := f.svc.Register(f.ctx, service.RegisterInput{
		Name: "Food Bank", Email: "  Team@FoodBank.ORG ", Password: "password123",
		Role: model.RoleNonprofit, OrgName: "Food Bank Inc",
	})
	require.NoError(t, err)
	assert.Equal(t, "team@foodbank.org", np.Email)
	assert.Equal(t, model.AccountActive, np.AccountStatus)

	org, err := f.st.Organizations.FindByUserID(f.ctx, np.ID)
	require.NoError(t, err)
	assert.Equal(t, "Food Bank Inc", org.Name)

	r := f.register(t, model.RoleResearcher, "ada@uni.edu")
	assert.NotEmpty(t, r.ProfileID)
	assert.Equal(t, model.RoleResearcher, r.Role)

	events, err := f.st.Audit.List(f.ctx, store.AuditFilter{EntityID: np.ID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "user.registered", events[0].Action)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	f.register(t, model.RoleResearcher, "taken@example.com")

	cases := []struct {
		name string
		in   service.RegisterInput
		kind apperr.Kind
		code string
	}{
		{"duplicate email", service.RegisterInput{Name: "X", Email: "TAKEN@example.com", Password: "password123", Role: model.RoleResearcher}, apperr.KindConflict, apperr.CodeEmailTaken},
		{"admin role", service.RegisterInput{Name: "X", Email: "a@example.com", Password: "password123", Role: model.RoleAdmin}, apperr.KindValidation, apperr.CodeRegistrationForbidden},
		{"short password", service.RegisterInput{Name: "X", Email: "b@example.com", Password: "short", Role: model.RoleResearcher}, apperr.KindValidation, apperr.CodeInvalidInput},
		{"blank name", service.RegisterInput{Name: " ", Email: "c@example.com", Password: "password123", Role: model.RoleResearcher}, apperr.KindValidation, apperr.CodeInvalidInput},
		{"bad email", service.RegisterInput{Name: "X", Email: "not-an-email", Password: "password123", Role: model.RoleResearcher}, apperr.KindValidation, apperr.CodeInvalidInput},
		{"unknown role", service.RegisterInput{Name: "X", Email: "d@example.com", Password: "password123", Role: "donor"}, apperr.KindValidation, apperr.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(f.ctx, tc.in)
			assert.Equal(t, tc.kind, kindOf(err))
			assert.Equal(t, tc.code, apperr.CodeOf(err))
		})
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, model.RoleResearcher, "ada@uni.edu")

	_, err := f.svc.Login(f.ctx, "ada@uni.edu", "wrong-password")
	assert.Equal(t, apperr.CodeInvalidCredentials, apperr.CodeOf(err))
	_, err = f.svc.Login(f.ctx, "nobody@uni.edu", "password123")
	assert.Equal(t, apperr.CodeInvalidCredentials, apperr.CodeOf(err))

	sess, err := f.svc.Login(f.ctx, " ADA@uni.edu", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.Equal(t, 900, sess.ExpiresIn)

	resolved, err := f.svc.Resolver().Resolve(f.ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p.UserID, resolved.UserID)
	assert.Equal(t, p.ProfileID, resolved.ProfileID)

	next, err := f.svc.Refresh(f.ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)

	_, err = f.svc.Refresh(f.ctx, sess.RefreshToken)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err), "rotated token must not be reusable")

	f.svc.Logout(f.ctx, next.RefreshToken)
	_, err = f.svc.Refresh(f.ctx, next.RefreshToken)
	assert.Equal(t, apperr.KindAuth, kindOf(err))
}

func TestApprovalWorkflow(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.ApprovalRequired = true })
	adm := f.admin(t, "root@example.com")

	u, err := f.svc.Register(f.ctx, service.RegisterInput{Name: "Ada", Email: "ada@uni.edu", Password: "password123", Role: model.RoleResearcher})
	require.NoError(t, err)
	assert.Equal(t, model.AccountPending, u.AccountStatus)

	_, err = f.svc.Login(f.ctx, "ada@uni.edu", "password123")
	assert.Equal(t, apperr.CodeAccountPending, apperr.CodeOf(err))

	approved, err := f.svc.ApproveUser(f.ctx, adm, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountActive, approved.AccountStatus)

	_, err = f.svc.Login(f.ctx, "ada@uni.edu", "password123")
	require.NoError(t, err)

	_, err = f.svc.ApproveUser(f.ctx, adm, u.ID)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(err))
	assert.Equal(t, apperr.CodeNotPending, apperr.CodeOf(err))
}

func TestSuspend_BlocksResolution(t *testing.T) {
	f := newFixture(t)
	adm := f.admin(t, "root@example.com")
	target := f.register(t, model.RoleNonprofit, "np@example.org")

	sess, err := f.svc.Login(f.ctx, "np@example.org", "password123")
	require.NoError(t, err)

	u, err := f.svc.SuspendUser(f.ctx, adm, target.UserID, "abuse")
	require.NoError(t, err)
	require.NotNil(t, u.DeletedAt)
	assert.Equal(t, now, u.DeletedAt.UTC())
	assert.Equal(t, "abuse", u.SuspensionReason)
	assert.Equal(t, model.AccountActive, u.AccountStatus, "soft delete leaves the status column alone")

	_, err = f.svc.Resolver().Resolve(f.ctx, sess.AccessToken)
	assert.Equal(t, apperr.KindAuth, kindOf(err))
	assert.Equal(t, apperr.CodeAccountSuspended, apperr.CodeOf(err))

	_, err = f.svc.Refresh(f.ctx, sess.RefreshToken)
	assert.Equal(t, apperr.KindAuth, kindOf(err))

	_, err = f.svc.Login(f.ctx, "np@example.org", "password123")
	assert.Equal(t, apperr.CodeAccountSuspended, apperr.CodeOf(err))

	_, err = f.svc.SuspendUser(f.ctx, adm, target.UserID, "again")
	assert.Equal(t, apperr.CodeAlreadyDeleted, apperr.CodeOf(err))

	events, err := f.svc.ListAuditEvents(f.ctx, adm, store.AuditFilter{EntityType: "user", EntityID: target.UserID})
	require.NoError(t, err)
	ev := findAction(events, "user.suspended")
	require.NotNil(t, ev)
	assert.Equal(t, adm.UserID, ev.ActorID)
	assert.Equal(t, "abuse", ev.Details["reason"])
}

func TestSuspendedStatusColumnAlsoBlocks(t *testing.T) {
	f := newFixture(t)
	adm := f.admin(t, "root@example.com")
	target := f.register(t, model.RoleResearcher, "r@example.com")

	_, err := f.svc.SetAccountStatus(f.ctx, adm, target.UserID, model.AccountSuspended)
	require.NoError(t, err)

	_, err = f.svc.Resolver().ResolveUserID(f.ctx, target.UserID)
	assert.Equal(t, apperr.CodeAccountSuspended, apperr.CodeOf(err))

	_, err = f.svc.SetAccountStatus(f.ctx, adm, target.UserID, "frozen")
	assert.Equal(t, apperr.KindValidation, kindOf(err))
}

func TestRestoreIsGuarded(t *testing.T) {
	f := newFixture(t)
	adm := f.admin(t, "root@example.com")
	target := f.register(t, model.RoleResearcher, "r@example.com")

	_, err := f.svc.RestoreUser(f.ctx, adm, target.UserID)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(err))
	assert.Equal(t, apperr.CodeNotDeleted, apperr.CodeOf(err))
	u, err := f.st.Users.FindByID(f.ctx, target.UserID)
	require.NoError(t, err)
	assert.Nil(t, u.DeletedAt)

	_, err = f.svc.SuspendUser(f.ctx, adm, target.UserID, "")
	require.NoError(t, err)

	restored, err := f.svc.UnsuspendUser(f.ctx, adm, target.UserID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Empty(t, restored.SuspensionReason)

	_, err = f.svc.UnsuspendUser(f.ctx, adm, target.UserID)
	assert.Equal(t, apperr.CodeNotDeleted, apperr.CodeOf(err))

	_, err = f.svc.Resolver().ResolveUserID(f.ctx, target.UserID)
	assert.NoError(t, err)
}

func TestAdminAccountsAreExempt(t *testing.T) {
	f := newFixture(t)
	adm := f.admin(t, "root@example.com")
	other := f.admin(t, "other@example.com")

	_, err := f.svc.SuspendUser(f.ctx, adm, other.UserID, "")
	assert.Equal(t, apperr.KindRoleForbidden, kindOf(err))
	assert.Equal(t, apperr.CodeAdminExempt, apperr.CodeOf(err))

	err = f.svc.DeleteMe(f.ctx, adm)
	assert.Equal(t, apperr.CodeAdminExempt, apperr.CodeOf(err))
}

func TestNonAdminCannotManageUsers(t *testing.T) {
	f := newFixture(t)
	np := f.register(t, model.RoleNonprofit, "np@example.org")
	r := f.register(t, model.RoleResearcher, "r@example.com")

	_, err := f.svc.SuspendUser(f.ctx, np, r.UserID, "")
	assert.Equal(t, apperr.KindRoleForbidden, kindOf(err))
	_, err = f.svc.ListUsers(f.ctx, r, store.UserFilter{})
	assert.Equal(t, apperr.KindRoleForbidden, kindOf(err))
	_, err = f.svc.ListAuditEvents(f.ctx, np, store.AuditFilter{})
	assert.Equal(t, apperr.KindRoleForbidden, kindOf(err))
}

func TestHardDelete_AdminCannotDeleteSelf(t *testing.T) {
	f := newFixture(t)
	adm := f.admin(t, "root@example.com")

	err := f.svc.HardDeleteUser(f.ctx, adm, adm.UserID, "DELETE")
	assert.Equal(t, apperr.KindRoleForbidden, kindOf(err))
	assert.Equal(t, apperr.CodeSelfDeleteForbidden, apperr.CodeOf(err))

	_, err = f.st.Users.FindByID(f.ctx, adm.UserID)
	assert.NoError(t, err)
}

func TestHardDeleteCascades(t *testing.T) {
	f := newFixture(t)
	adm := f.admin(t, "root@example.com")
	np := f.register(t, model.RoleNonprofit, "np@example.org")

	title := "Survey"
	proj, err := f.svc.CreateProject(f.ctx, np, service.ProjectInput{Title: &title})
	require.NoError(t, err)
	name := "Kickoff"
	_, err = f.svc.CreateMilestone(f.ctx, np, proj.ID, service.MilestoneInput{Name: &name})
	require.NoError(t, err)

	err = f.svc.HardDeleteUser(f.ctx, adm, np.UserID, "delete")
	assert.Equal(t, apperr.KindConfirmationRequired, kindOf(err))

	require.NoError(t, f.svc.HardDeleteUser(f.ctx, adm, np.UserID, "DELETE"))

	_, err = f.st.Users.FindByID(f.ctx, np.UserID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.st.Organizations.FindByID(f.ctx, np.OrgID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.st.Projects.FindByID(f.ctx, proj.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	ms, err := f.st.Milestones.ListByProject(f.ctx, proj.ID)
	require.NoError(t, err)
	assert.Empty(t, ms)

	err = f.svc.HardDeleteUser(f.ctx, adm, np.UserID, "DELETE")
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
}

func TestSelfServiceProfile(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, model.RoleResearcher, "ada@uni.edu")
	f.register(t, model.RoleResearcher, "grace@uni.edu")

	name := "Ada L."
	u, err := f.svc.UpdateMe(f.ctx, p, service.UpdateMeInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", u.Name)

	taken := "GRACE@uni.edu"
	_, err = f.svc.UpdateMe(f.ctx, p, service.UpdateMeInput{Email: &taken})
	assert.Equal(t, apperr.CodeEmailTaken, apperr.CodeOf(err))

	u, err = f.svc.UpdatePreferences(f.ctx, p, map[string]string{"theme": "dark", "digest": "weekly"})
	require.NoError(t, err)
	u, err = f.svc.UpdatePreferences(f.ctx, p, map[string]string{"digest": ""})
	require.NoError(t, err)
	assert.Equal(t, model.StringMap{"theme": "dark"}, u.Preferences)

	err = f.svc.ChangePassword(f.ctx, p, "wrong", "newpassword1")
	assert.Equal(t, apperr.CodePasswordMismatch, apperr.CodeOf(err))
	require.NoError(t, f.svc.ChangePassword(f.ctx, p, "password123", "newpassword1"))
	_, err = f.svc.Login(f.ctx, "ada@uni.edu", "newpassword1")
	assert.NoError(t, err)
}

func TestDeleteMe_SoftDeletesAndFreesEmail(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, model.RoleResearcher, "ada@uni.edu")

	require.NoError(t, f.svc.DeleteMe(f.ctx, p))

	_, err := f.svc.Resolver().ResolveUserID(f.ctx, p.UserID)
	assert.Equal(t, apperr.CodeAccountSuspended, apperr.CodeOf(err))

	again := f.register(t, model.RoleResearcher, "ada@uni.edu")
	assert.NotEqual(t, p.UserID, again.UserID)

	adm := f.admin(t, "root@example.com")
	_, err = f.svc.RestoreUser(f.ctx, adm, p.UserID)
	assert.Equal(t, apperr.KindConflict, kindOf(err), "restoring must not duplicate a live email")
}
