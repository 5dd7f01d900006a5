package auth

import (
	"context"
	"errors"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/lifecycle"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

// Resolver turns a bearer credential into a Principal. It has no side effects.
type Resolver struct {
	store  *store.Store
	secret string
}

func NewResolver(st *store.Store, secret string) *Resolver {
	return &Resolver{store: st, secret: secret}
}

// Resolve validates token and loads the account behind it, including
// soft-deleted accounts so their state can be rejected explicitly.
func (r *Resolver) Resolve(ctx context.Context, token string) (policy.Principal, error) {
	if token == "" {
		return policy.Principal{}, apperr.Auth(apperr.CodeUnauthenticated, "authentication required")
	}
	claims, err := ParseAccessToken(token, r.secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return policy.Principal{}, apperr.Auth(apperr.CodeTokenExpired, "access token has expired")
		}
		return policy.Principal{}, apperr.Auth(apperr.CodeTokenMalformed, "access token is invalid")
	}
	return r.ResolveUserID(ctx, claims.Subject)
}

// ResolveUserID applies the account-state rules to an already authenticated
// subject id.
func (r *Resolver) ResolveUserID(ctx context.Context, userID string) (policy.Principal, error) {
	u, err := r.store.Users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return policy.Principal{}, apperr.Auth(apperr.CodeUnauthenticated, "account no longer exists")
	}
	if err != nil {
		return policy.Principal{}, apperr.Internal("load principal", err)
	}
	if err := lifecycle.CheckAuthenticatable(lifecycle.AccountStateOf(u)); err != nil {
		return policy.Principal{}, err
	}
	return r.principalFor(ctx, u)
}

func (r *Resolver) principalFor(ctx context.Context, u *model.User) (policy.Principal, error) {
	p := policy.Principal{UserID: u.ID, Role: u.Role, AccountStatus: u.AccountStatus}
	switch u.Role {
	case model.RoleNonprofit:
		org, err := r.store.Organizations.FindByUserID(ctx, u.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return policy.Principal{}, apperr.Internal("load organization", err)
		}
		if org != nil {
			p.OrgID = org.ID
		}
	case model.RoleResearcher:
		prof, err := r.store.Profiles.FindByUserID(ctx, u.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return policy.Principal{}, apperr.Internal("load profile", err)
		}
		if prof != nil {
			p.ProfileID = prof.ID
		}
	}
	return p, nil
}
