// Package seed creates the bootstrap admin account when no live admin exists.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/d9705996/researchbridge/internal/audit"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// AdminOptions configures the seed admin user.
type AdminOptions struct {
	Email    string
	Password string // if empty, a random password is generated
	// Out receives the generated password. Defaults to os.Stdout.
	Out io.Writer
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// EnsureAdmin creates an active admin account unless a live admin already
// exists. Safe to call on every startup. It reports whether an account was
// created.
func EnsureAdmin(ctx context.Context, st *store.Store, opts AdminOptions, log *slog.Logger) (bool, error) {
	n, err := st.Users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		log.InfoContext(ctx, "seed admin already exists")
		return false, nil
	}

	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if email == "" {
		return false, errors.New("seed admin email is empty")
	}

	password := opts.Password
	if password == "" {
		password, err = generatePassword()
		if err != nil {
			return false, fmt.Errorf("generate seed password: %w", err)
		}
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		// Printed exactly once; it is never logged.
		_, _ = fmt.Fprintf(out, "[researchbridge] seed admin password: %s\n", password)
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return false, fmt.Errorf("hash seed password: %w", err)
	}

	u := &model.User{
		Email:         email,
		Name:          "Seed Admin",
		PasswordHash:  string(hash),
		Role:          model.RoleAdmin,
		AccountStatus: model.AccountActive,
		Preferences:   model.StringMap{},
	}
	err = st.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Users.Create(ctx, u); err != nil {
			return err
		}
		return audit.Trail{}.Record(ctx, tx, audit.Event{
			ActorID:    u.ID,
			Action:     audit.ActionUserSeeded,
			EntityType: audit.EntityUser,
			EntityID:   u.ID,
		})
	})
	if err != nil {
		return false, fmt.Errorf("insert seed admin: %w", err)
	}

	log.InfoContext(ctx, "seed admin created", "email", email, "user_id", u.ID)
	return true, nil
}

func generatePassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
