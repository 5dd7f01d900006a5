package handler

import (
	"time"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/service"
)

type userAttrs struct {
	Name             string              `json:"name"`
	Email            string              `json:"email"`
	Role             model.Role          `json:"role"`
	AccountStatus    model.AccountStatus `json:"accountStatus"`
	SuspensionReason string              `json:"suspensionReason,omitempty"`
	Preferences      model.StringMap     `json:"preferences"`
	DeletedAt        *time.Time          `json:"deletedAt"`
	CreatedAt        time.Time           `json:"createdAt"`
}

func userResource(u *model.User) jsonapi.ResourceObject {
	prefs := u.Preferences
	if prefs == nil {
		prefs = model.StringMap{}
	}
	return jsonapi.ResourceObject{
		Type: "users",
		ID:   u.ID,
		Attributes: userAttrs{
			Name:             u.Name,
			Email:            u.Email,
			Role:             u.Role,
			AccountStatus:    u.AccountStatus,
			SuspensionReason: u.SuspensionReason,
			Preferences:      prefs,
			DeletedAt:        u.DeletedAt,
			CreatedAt:        u.CreatedAt,
		},
	}
}

type organizationAttrs struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Mission string `json:"mission"`
	Website string `json:"website"`
}

func organizationResource(o *model.Organization) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{
		Type:       "organizations",
		ID:         o.ID,
		Attributes: organizationAttrs{UserID: o.UserID, Name: o.Name, Mission: o.Mission, Website: o.Website},
	}
}

type profileAttrs struct {
	UserID    string `json:"userId"`
	Headline  string `json:"headline"`
	Expertise string `json:"expertise"`
	Bio       string `json:"bio"`
}

func profileResource(p *model.ResearcherProfile) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{
		Type:       "researcher_profiles",
		ID:         p.ID,
		Attributes: profileAttrs{UserID: p.UserID, Headline: p.Headline, Expertise: p.Expertise, Bio: p.Bio},
	}
}

type projectAttrs struct {
	OrgID               string              `json:"orgId"`
	Title               string              `json:"title"`
	Problem             string              `json:"problem"`
	Outcomes            string              `json:"outcomes"`
	MethodsRequired     string              `json:"methodsRequired"`
	Timeline            string              `json:"timeline"`
	BudgetMin           float64             `json:"budgetMin"`
	DataSensitivity     string              `json:"dataSensitivity"`
	Status              model.ProjectStatus `json:"status"`
	MilestoneCount      int                 `json:"milestoneCount"`
	CompletedMilestones int                 `json:"completedMilestones"`
	CompletionRate      int                 `json:"completionRate"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

func projectResource(v *service.ProjectView) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{
		Type: "projects",
		ID:   v.ID,
		Attributes: projectAttrs{
			OrgID:               v.OrgID,
			Title:               v.Title,
			Problem:             v.Problem,
			Outcomes:            v.Outcomes,
			MethodsRequired:     v.MethodsRequired,
			Timeline:            v.Timeline,
			BudgetMin:           v.BudgetMin.InexactFloat64(),
			DataSensitivity:     v.DataSensitivity,
			Status:              v.Status,
			MilestoneCount:      v.MilestoneCount,
			CompletedMilestones: v.CompletedMilestones,
			CompletionRate:      v.CompletionRate,
			CreatedAt:           v.CreatedAt,
			UpdatedAt:           v.UpdatedAt,
		},
	}
}

type milestoneAttrs struct {
	ProjectID       string                `json:"projectId"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	DueDate         *time.Time            `json:"dueDate"`
	Status          model.MilestoneStatus `json:"status"`
	CompletedAt     *time.Time            `json:"completedAt"`
	IsOverdue       bool                  `json:"isOverdue"`
	DaysUntilDue    *int                  `json:"daysUntilDue"`
	EffectiveStatus model.MilestoneStatus `json:"effectiveStatus"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

func milestoneResource(v *service.MilestoneView) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{
		Type: "milestones",
		ID:   v.ID,
		Attributes: milestoneAttrs{
			ProjectID:       v.ProjectID,
			Name:            v.Name,
			Description:     v.Description,
			DueDate:         v.DueDate,
			Status:          v.Status,
			CompletedAt:     v.CompletedAt,
			IsOverdue:       v.IsOverdue,
			DaysUntilDue:    v.DaysUntilDue,
			EffectiveStatus: v.EffectiveStatus,
			CreatedAt:       v.CreatedAt,
			UpdatedAt:       v.UpdatedAt,
		},
	}
}

type reviewAttrs struct {
	ProjectID      string              `json:"projectId"`
	ReviewerID     *string             `json:"reviewerId"`
	Action         string              `json:"action"`
	PreviousStatus model.ProjectStatus `json:"previousStatus"`
	NewStatus      model.ProjectStatus `json:"newStatus"`
	Notes          string              `json:"notes"`
	CreatedAt      time.Time           `json:"createdAt"`
}

func reviewResource(r *model.ProjectReview) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{
		Type: "project_reviews",
		ID:   r.ID,
		Attributes: reviewAttrs{
			ProjectID:      r.ProjectID,
			ReviewerID:     r.ReviewerID,
			Action:         r.Action,
			PreviousStatus: r.PreviousStatus,
			NewStatus:      r.NewStatus,
			Notes:          r.Notes,
			CreatedAt:      r.CreatedAt,
		},
	}
}

type applicationAttrs struct {
	ProjectID    string                  `json:"projectId"`
	OrgID        string                  `json:"orgId"`
	ProfileID    string                  `json:"profileId"`
	ResearcherID string                  `json:"researcherId"`
	Status       model.ApplicationStatus `json:"status"`
	CoverLetter  string                  `json:"coverLetter"`
	DecidedAt    *time.Time              `json:"decidedAt"`
	CreatedAt    time.Time               `json:"createdAt"`
}

func applicationResource(a *model.Application) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{
		Type: "applications",
		ID:   a.ID,
		Attributes: applicationAttrs{
			ProjectID:    a.ProjectID,
			OrgID:        a.OrgID,
			ProfileID:    a.ProfileID,
			ResearcherID: a.ResearcherID,
			Status:       a.Status,
			CoverLetter:  a.CoverLetter,
			DecidedAt:    a.DecidedAt,
			CreatedAt:    a.CreatedAt,
		},
	}
}

type auditAttrs struct {
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Details    model.StringMap `json:"details"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func auditResource(e *model.AuditLog) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{
		Type: "audit_events",
		ID:   e.ID,
		Attributes: auditAttrs{
			ActorID:    e.ActorID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Details:    e.Details,
			CreatedAt:  e.CreatedAt,
		},
	}
}
