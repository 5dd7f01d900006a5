package handler

import (
	"net/http"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/service"
)

// milestoneRequest is the create and update body. A null dueDate clears it.
type milestoneRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	DueDate     nullableDate           `json:"dueDate"`
	Status      *model.MilestoneStatus `json:"status"`
}

func (m milestoneRequest) input() service.MilestoneInput {
	return service.MilestoneInput{
		Name:         m.Name,
		Description:  m.Description,
		DueDate:      m.DueDate.Value,
		ClearDueDate: m.DueDate.Set && m.DueDate.Value == nil,
		Status:       m.Status,
	}
}

// ListMilestones handles GET /api/v1/projects/{id}/milestones.
func (h *Handler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.ListMilestones(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(ms, milestoneResource), nil)
}

// CreateMilestone handles POST /api/v1/projects/{id}/milestones.
func (h *Handler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.CreateMilestone(r.Context(), principal(r), r.PathValue("id"), req.input())
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusCreated, milestoneResource(v))
}

// GetMilestone handles GET /api/v1/milestones/{id}.
func (h *Handler) GetMilestone(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetMilestone(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, milestoneResource(v))
}

// UpdateMilestone handles PATCH /api/v1/milestones/{id}.
func (h *Handler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.UpdateMilestone(r.Context(), principal(r), r.PathValue("id"), req.input())
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, milestoneResource(v))
}

// DeleteMilestone handles DELETE /api/v1/milestones/{id}.
func (h *Handler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMilestone(r.Context(), principal(r), r.PathValue("id")); err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
