// Package service implements the platform's operations. Each operation resolves
// the target entity, asks the policy whether the principal may act, runs the
// relevant state machine and persists the result together with its trail
// entry in one transaction.
package service

import (
	"errors"
	"time"

	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/audit"
	"github.com/d9705996/researchbridge/internal/auth"
	"github.com/d9705996/researchbridge/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

var tracer = otel.Tracer("github.com/d9705996/researchbridge/internal/service")

// Options configures a Service.
type Options struct {
	JWTSecret        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	ApprovalRequired bool
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the entry point for every operation.
type Service struct {
	store    *store.Store
	resolver *auth.Resolver
	refresh  *auth.RefreshStore
	trail    audit.Trail
	opts     Options
	now      func() time.Time
}

func New(st *store.Store, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:    st,
		resolver: auth.NewResolver(st, opts.JWTSecret),
		refresh:  auth.NewRefreshStore(st.DB(), opts.RefreshTTL).WithClock(now),
		trail:    audit.Trail{Now: now},
		opts:     opts,
		now:      now,
	}
}

// Resolver returns the principal resolver bound to the same store.
func (s *Service) Resolver() *auth.Resolver { return s.resolver }

func (s *Service) clock() time.Time { return s.now().UTC() }

// storeErr converts a repository error into the taxonomy. Errors that already
// belong to the taxonomy pass through unchanged.
func storeErr(entity string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(entity)
	case errors.Is(err, store.ErrDuplicate) && entity == "user":
		return apperr.Conflict(apperr.CodeEmailTaken, "email is already registered")
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict(apperr.CodeDuplicate, entity+" already exists")
	}
	return apperr.Internal(entity+" store failure", err)
}

// fail records err on span when it is unexpected and returns it.
func fail(span trace.Span, err error) error {
	if err != nil && apperr.KindOf(err) == apperr.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
