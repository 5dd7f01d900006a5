package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/audit"
	"github.com/d9705996/researchbridge/internal/auth"
	"github.com/d9705996/researchbridge/internal/lifecycle"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	// OrgName names the organization created for a nonprofit; defaults to Name.
	OrgName string
}

// Session is the result of a successful login or refresh.
type Session struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.Validation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validation("email is not a valid address")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return apperr.Validation("password must be at least 8 characters")
	}
	return nil
}

// Register creates a researcher or nonprofit account together with its
// profile or organization row.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "Accounts.Register")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	switch in.Role {
	case model.RoleResearcher, model.RoleNonprofit:
	case model.RoleAdmin:
		return nil, apperr.ValidationCode(apperr.CodeRegistrationForbidden, "admin accounts cannot self-register")
	default:
		return nil, apperr.Validation("role must be researcher or nonprofit")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fail(span, apperr.Internal("hash password", err))
	}
	u := &model.User{
		Name:          name,
		Email:         email,
		PasswordHash:  string(hash),
		Role:          in.Role,
		AccountStatus: model.AccountActive,
		Preferences:   model.StringMap{},
	}
	if s.opts.ApprovalRequired {
		u.AccountStatus = model.AccountPending
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		taken, err := tx.Users.EmailTaken(ctx, email, "")
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(apperr.CodeEmailTaken, "email is already registered")
		}
		if err := tx.Users.Create(ctx, u); err != nil {
			return err
		}
		switch u.Role {
		case model.RoleNonprofit:
			orgName := strings.TrimSpace(in.OrgName)
			if orgName == "" {
				orgName = name
			}
			if err := tx.Organizations.Create(ctx, &model.Organization{UserID: u.ID, Name: orgName}); err != nil {
				return err
			}
		case model.RoleResearcher:
			if err := tx.Profiles.Create(ctx, &model.ResearcherProfile{UserID: u.ID}); err != nil {
				return err
			}
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    u.ID,
			Action:     audit.ActionUserRegistered,
			EntityType: audit.EntityUser,
			EntityID:   u.ID,
			Details:    map[string]string{"role": string(u.Role), "status": string(u.AccountStatus)},
		})
	})
	if err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	return u, nil
}

// Login verifies credentials and opens a session. Deleted, suspended and
// pending accounts are refused only after the password matched.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Accounts.Login")
	defer span.End()

	invalid := apperr.Auth(apperr.CodeInvalidCredentials, "email or password is incorrect")
	u, err := s.store.Users.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}
	if err := lifecycle.CheckAuthenticatable(lifecycle.AccountStateOf(u)); err != nil {
		return nil, err
	}

	refresh, err := s.refresh.IssueRefreshToken(ctx, u.ID)
	if err != nil {
		return nil, fail(span, apperr.Internal("issue refresh token", err))
	}
	return s.session(u, refresh)
}

// Refresh rotates a refresh token and issues a new access token after
// re-checking the account state.
func (s *Service) Refresh(ctx context.Context, token string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Accounts.Refresh")
	defer span.End()

	if token == "" {
		return nil, apperr.Auth(apperr.CodeUnauthenticated, "refresh token is required")
	}
	next, userID, err := s.refresh.RotateRefreshToken(ctx, token)
	if errors.Is(err, auth.ErrRefreshInvalid) {
		return nil, apperr.Auth(apperr.CodeUnauthenticated, "refresh token is invalid or expired")
	}
	if err != nil {
		return nil, fail(span, apperr.Internal("rotate refresh token", err))
	}
	if _, err := s.resolver.ResolveUserID(ctx, userID); err != nil {
		_ = s.refresh.RevokeRefreshToken(ctx, next)
		return nil, fail(span, err)
	}
	u, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	return s.session(u, next)
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) {
	ctx, span := tracer.Start(ctx, "Accounts.Logout")
	defer span.End()
	if token == "" {
		return
	}
	_ = s.refresh.RevokeRefreshToken(ctx, token)
}

func (s *Service) session(u *model.User, refresh string) (*Session, error) {
	access, err := auth.IssueAccessToken(u.ID, u.Email, string(u.Role), s.opts.JWTSecret, s.opts.AccessTTL)
	if err != nil {
		return nil, apperr.Internal("issue access token", err)
	}
	return &Session{
		User:         u,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.opts.AccessTTL.Seconds()),
	}, nil
}

// Me returns the principal's own account.
func (s *Service) Me(ctx context.Context, p policy.Principal) (*model.User, error) {
	u, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, storeErr("user", err)
	}
	return u, nil
}

// UpdateMeInput holds the optional self-service profile fields.
type UpdateMeInput struct {
	Name  *string
	Email *string
}

// UpdateMe edits the principal's name and email.
func (s *Service) UpdateMe(ctx context.Context, p policy.Principal, in UpdateMeInput) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "Accounts.UpdateMe")
	defer span.End()

	if err := policy.Check(p, policy.SelfEdit, policy.Target{UserID: p.UserID}, "user"); err != nil {
		return nil, err
	}
	var u *model.User
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if u, err = tx.Users.FindByID(ctx, p.UserID); err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Validation("name cannot be empty")
			}
			u.Name = name
		}
		if in.Email != nil {
			email := NormalizeEmail(*in.Email)
			if err := validateEmail(email); err != nil {
				return err
			}
			if email != u.Email {
				taken, err := tx.Users.EmailTaken(ctx, email, u.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperr.Conflict(apperr.CodeEmailTaken, "email is already registered")
				}
				u.Email = email
			}
		}
		return tx.Users.Update(ctx, u)
	})
	if err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	return u, nil
}

// ChangePassword replaces the password after verifying the current one.
// Every open session is revoked.
func (s *Service) ChangePassword(ctx context.Context, p policy.Principal, current, next string) error {
	ctx, span := tracer.Start(ctx, "Accounts.ChangePassword")
	defer span.End()

	if err := policy.Check(p, policy.SelfEdit, policy.Target{UserID: p.UserID}, "user"); err != nil {
		return err
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	u, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return fail(span, storeErr("user", err))
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return apperr.ValidationCode(apperr.CodePasswordMismatch, "current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.opts.BcryptCost)
	if err != nil {
		return fail(span, apperr.Internal("hash password", err))
	}
	u.PasswordHash = string(hash)
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Users.Update(ctx, u); err != nil {
			return err
		}
		return auth.NewRefreshStore(tx.DB(), s.opts.RefreshTTL).WithClock(s.now).RevokeAllForUser(ctx, u.ID)
	})
	return fail(span, storeErr("user", err))
}

// UpdatePreferences merges prefs into the stored preferences. An empty value
// removes the key.
func (s *Service) UpdatePreferences(ctx context.Context, p policy.Principal, prefs map[string]string) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "Accounts.UpdatePreferences")
	defer span.End()

	if err := policy.Check(p, policy.SelfEdit, policy.Target{UserID: p.UserID}, "user"); err != nil {
		return nil, err
	}
	u, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	if u.Preferences == nil {
		u.Preferences = model.StringMap{}
	}
	for k, v := range prefs {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, apperr.Validation("preference keys cannot be empty")
		}
		if v == "" {
			delete(u.Preferences, k)
			continue
		}
		u.Preferences[k] = v
	}
	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, fail(span, storeErr("user", err))
	}
	return u, nil
}

// DeleteMe soft-deletes the principal's own account. Admins are exempt.
func (s *Service) DeleteMe(ctx context.Context, p policy.Principal) error {
	ctx, span := tracer.Start(ctx, "Accounts.DeleteMe")
	defer span.End()

	if err := policy.Check(p, policy.SelfDelete, policy.Target{UserID: p.UserID}, "user"); err != nil {
		return err
	}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		u, err := tx.Users.FindByID(ctx, p.UserID)
		if err != nil {
			return err
		}
		next, err := lifecycle.TransitionAccount(lifecycle.AccountStateOf(u), lifecycle.EventSelfDelete, u.Role, s.clock(), "")
		if err != nil {
			return err
		}
		lifecycle.ApplyAccountState(u, next)
		if err := tx.Users.Update(ctx, u); err != nil {
			return err
		}
		if err := auth.NewRefreshStore(tx.DB(), s.opts.RefreshTTL).WithClock(s.now).RevokeAllForUser(ctx, u.ID); err != nil {
			return err
		}
		return s.trail.Record(ctx, tx, audit.Event{
			ActorID:    u.ID,
			Action:     audit.ActionUserSelfDeleted,
			EntityType: audit.EntityUser,
			EntityID:   u.ID,
		})
	})
	return fail(span, storeErr("user", err))
}
