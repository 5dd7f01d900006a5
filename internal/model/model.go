// Package model contains GORM model definitions shared across packages.
// All models are driver-agnostic: they work with both PostgreSQL and SQLite.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StringMap is a map[string]string that GORM serialises as JSON into a TEXT column.
type StringMap map[string]string

// User is the GORM model for the users table.
//
// DeletedAt is a plain nullable timestamp rather than gorm.DeletedAt: soft-deleted
// rows must stay visible to the principal resolver and the admin restore path.
type User struct {
	ID               string        `gorm:"type:text;primaryKey"`
	Name             string        `gorm:"type:text;not null;default:''"`
	Email            string        `gorm:"type:text;not null;index:idx_users_email_live,unique,where:deleted_at IS NULL"`
	PasswordHash     string        `gorm:"type:text;not null;default:''"`
	Role             Role          `gorm:"type:text;not null"`
	AccountStatus    AccountStatus `gorm:"type:text;not null;default:'active'"`
	SuspensionReason string        `gorm:"type:text;not null;default:''"`
	Preferences      StringMap     `gorm:"type:text;not null;default:'{}';serializer:json"`
	DeletedAt        *time.Time    `gorm:"index"`
	CreatedAt        time.Time     `gorm:"not null"`
	UpdatedAt        time.Time     `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Organization is the nonprofit tenant owned by exactly one nonprofit user.
type Organization struct {
	ID        string    `gorm:"type:text;primaryKey"`
	UserID    string    `gorm:"type:text;not null;uniqueIndex"`
	Name      string    `gorm:"type:text;not null"`
	Mission   string    `gorm:"type:text;not null;default:''"`
	Website   string    `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (o *Organization) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// ResearcherProfile is the 1:1 profile row of a researcher user.
type ResearcherProfile struct {
	ID        string    `gorm:"type:text;primaryKey"`
	UserID    string    `gorm:"type:text;not null;uniqueIndex"`
	Headline  string    `gorm:"type:text;not null;default:''"`
	Expertise string    `gorm:"type:text;not null;default:''"`
	Bio       string    `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (p *ResearcherProfile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Project is a brief posted by an organization.
type Project struct {
	ID              string          `gorm:"type:text;primaryKey"`
	OrgID           string          `gorm:"type:text;not null;index"`
	Title           string          `gorm:"type:text;not null"`
	Problem         string          `gorm:"type:text;not null;default:''"`
	Outcomes        string          `gorm:"type:text;not null;default:''"`
	MethodsRequired string          `gorm:"type:text;not null;default:''"`
	Timeline        string          `gorm:"type:text;not null;default:''"`
	BudgetMin       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	DataSensitivity string          `gorm:"type:text;not null;default:''"`
	Status          ProjectStatus   `gorm:"type:text;not null;index"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (p *Project) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Milestone tracks one deliverable of a project.
type Milestone struct {
	ID          string          `gorm:"type:text;primaryKey"`
	ProjectID   string          `gorm:"type:text;not null;index"`
	Name        string          `gorm:"type:text;not null"`
	Description string          `gorm:"type:text;not null;default:''"`
	DueDate     *time.Time      `gorm:""`
	Status      MilestoneStatus `gorm:"type:text;not null"`
	CompletedAt *time.Time      `gorm:""`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (m *Milestone) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// ProjectReview is one append-only entry of a project's review trail.
type ProjectReview struct {
	ID             string        `gorm:"type:text;primaryKey"`
	ProjectID      string        `gorm:"type:text;not null;index"`
	ReviewerID     *string       `gorm:"type:text"`
	Action         string        `gorm:"type:text;not null"`
	PreviousStatus ProjectStatus `gorm:"type:text;not null"`
	NewStatus      ProjectStatus `gorm:"type:text;not null"`
	Notes          string        `gorm:"type:text;not null;default:''"`
	CreatedAt      time.Time     `gorm:"not null;index"`
}

// BeforeCreate generates a UUID primary key if not set.
func (r *ProjectReview) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// Application associates a researcher profile with an organization's project.
type Application struct {
	ID           string            `gorm:"type:text;primaryKey"`
	ProjectID    string            `gorm:"type:text;not null;index"`
	OrgID        string            `gorm:"type:text;not null;index"`
	ProfileID    string            `gorm:"type:text;not null;index"`
	ResearcherID string            `gorm:"type:text;not null;index"`
	Status       ApplicationStatus `gorm:"type:text;not null"`
	CoverLetter  string            `gorm:"type:text;not null;default:''"`
	DecidedAt    *time.Time        `gorm:""`
	CreatedAt    time.Time         `gorm:"not null"`
	UpdatedAt    time.Time         `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (a *Application) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// AuditLog is one append-only admin/lifecycle event.
type AuditLog struct {
	ID         string    `gorm:"type:text;primaryKey"`
	ActorID    string    `gorm:"type:text;not null;index"`
	Action     string    `gorm:"type:text;not null"`
	EntityType string    `gorm:"type:text;not null;index:idx_audit_entity"`
	EntityID   string    `gorm:"type:text;not null;index:idx_audit_entity"`
	Details    StringMap `gorm:"type:text;not null;default:'{}';serializer:json"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// BeforeCreate generates a UUID primary key if not set.
func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// RefreshToken is the GORM model for the refresh_tokens table.
type RefreshToken struct {
	ID        string    `gorm:"type:text;primaryKey"`
	UserID    string    `gorm:"type:text;not null;index"`
	TokenHash string    `gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (rt *RefreshToken) BeforeCreate(_ *gorm.DB) error {
	if rt.ID == "" {
		rt.ID = uuid.New().String()
	}
	return nil
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Organization{},
		&ResearcherProfile{},
		&Project{},
		&Milestone{},
		&ProjectReview{},
		&Application{},
		&AuditLog{},
		&RefreshToken{},
	}
}
