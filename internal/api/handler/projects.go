package handler

import (
	"net/http"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/service"
	"github.com/shopspring/decimal"
)

// projectRequest is the create and update body. Absent fields are left alone.
type projectRequest struct {
	OrgID           string               `json:"orgId"`
	Title           *string              `json:"title"`
	Problem         *string              `json:"problem"`
	Outcomes        *string              `json:"outcomes"`
	MethodsRequired *string              `json:"methodsRequired"`
	Timeline        *string              `json:"timeline"`
	BudgetMin       *decimal.Decimal     `json:"budgetMin"`
	DataSensitivity *string              `json:"dataSensitivity"`
	Status          *model.ProjectStatus `json:"status"`
}

func (p projectRequest) input() service.ProjectInput {
	return service.ProjectInput{
		OrgID:           p.OrgID,
		Title:           p.Title,
		Problem:         p.Problem,
		Outcomes:        p.Outcomes,
		MethodsRequired: p.MethodsRequired,
		Timeline:        p.Timeline,
		BudgetMin:       p.BudgetMin,
		DataSensitivity: p.DataSensitivity,
		Status:          p.Status,
	}
}

// BrowseProjects handles GET /api/v1/projects?q=&limit=&offset=.
func (h *Handler) BrowseProjects(w http.ResponseWriter, r *http.Request) {
	pg, err := page(r)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	views, err := h.svc.BrowseProjects(r.Context(), r.URL.Query().Get("q"), pg)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(views, projectResource), pagination(pg, len(views)))
}

// GetProject handles GET /api/v1/projects/{id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetProject(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, projectResource(v))
}

// CreateProject handles POST /api/v1/projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}
	in := req.input()
	in.Status = nil
	v, err := h.svc.CreateProject(r.Context(), principal(r), in)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusCreated, projectResource(v))
}

// UpdateProject handles PATCH /api/v1/projects/{id}.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.UpdateProject(r.Context(), principal(r), r.PathValue("id"), req.input())
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, projectResource(v))
}

// DeleteProject handles DELETE /api/v1/projects/{id}.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), principal(r), r.PathValue("id")); err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitProject handles POST /api/v1/projects/{id}/submit.
func (h *Handler) SubmitProject(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.SubmitForReview(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, projectResource(v))
}

// ReviewProject handles POST /api/v1/projects/{id}/review.
func (h *Handler) ReviewProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
		Notes    string `json:"notes"`
	}
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.ReviewProject(r.Context(), principal(r), r.PathValue("id"), req.Decision, req.Notes)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, projectResource(v))
}

// ListReviews handles GET /api/v1/projects/{id}/reviews.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.ListReviews(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(reviews, reviewResource), nil)
}
