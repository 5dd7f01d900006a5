// Package store is the repository layer over GORM. Every repository works on
// the same *gorm.DB handle, so a Store obtained inside Transaction scopes all of
// its repositories to that transaction.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("store: duplicate record")
)

// Store groups the repositories.
type Store struct {
	db *gorm.DB

	Users         *UserRepo
	Organizations *OrganizationRepo
	Profiles      *ProfileRepo
	Projects      *ProjectRepo
	Milestones    *MilestoneRepo
	Reviews       *ReviewRepo
	Applications  *ApplicationRepo
	Audit         *AuditRepo
}

// New returns a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         &UserRepo{db: db},
		Organizations: &OrganizationRepo{db: db},
		Profiles:      &ProfileRepo{db: db},
		Projects:      &ProjectRepo{db: db},
		Milestones:    &MilestoneRepo{db: db},
		Reviews:       &ReviewRepo{db: db},
		Applications:  &ApplicationRepo{db: db},
		Audit:         &AuditRepo{db: db},
	}
}

// DB exposes the underlying handle for collaborators that manage their own
// tables, such as the refresh token store.
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn with a Store bound to a single database transaction.
// Any error returned by fn rolls the transaction back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

// Page bounds a list query. Zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}
