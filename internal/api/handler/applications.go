package handler

import (
	"net/http"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
)

// Apply handles POST /api/v1/projects/{id}/applications.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CoverLetter string `json:"coverLetter"`
	}
	if !decode(w, r, &req) {
		return
	}
	app, err := h.svc.Apply(r.Context(), principal(r), r.PathValue("id"), req.CoverLetter)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusCreated, applicationResource(app))
}

// ListProjectApplications handles GET /api/v1/projects/{id}/applications.
func (h *Handler) ListProjectApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListProjectApplications(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(apps, applicationResource), nil)
}

// DecideApplication handles POST /api/v1/applications/{id}/decision.
func (h *Handler) DecideApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
	}
	if !decode(w, r, &req) {
		return
	}
	app, err := h.svc.DecideApplication(r.Context(), principal(r), r.PathValue("id"), req.Decision)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, applicationResource(app))
}

// WithdrawApplication handles POST /api/v1/applications/{id}/withdraw.
func (h *Handler) WithdrawApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.WithdrawApplication(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, applicationResource(app))
}
