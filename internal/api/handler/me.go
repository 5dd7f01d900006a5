package handler

import (
	"net/http"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/service"
)

type updateMeRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type changePasswordRequest struct {
	current string
	next    string
}

func (r *changePasswordRequest) UnmarshalJSON(data []byte) error {
	return decodeFields(data, map[string]any{"currentPassword": &r.current, "newPassword": &r.next})
}

// GetMe handles GET /api/v1/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Me(r.Context(), principal(r))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, userResource(u))
}

// UpdateMe handles PATCH /api/v1/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateMe(r.Context(), principal(r), service.UpdateMeInput{Name: req.Name, Email: req.Email})
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, userResource(u))
}

// DeleteMe handles DELETE /api/v1/me.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMe(r.Context(), principal(r)); err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles PUT /api/v1/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), principal(r), req.current, req.next); err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePreferences handles PUT /api/v1/me/preferences.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs map[string]string
	if !decode(w, r, &prefs) {
		return
	}
	u, err := h.svc.UpdatePreferences(r.Context(), principal(r), prefs)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, userResource(u))
}

// GetMyOrganization handles GET /api/v1/me/organization.
func (h *Handler) GetMyOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.svc.MyOrganization(r.Context(), principal(r))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, organizationResource(org))
}

// SaveMyOrganization handles PUT /api/v1/me/organization.
func (h *Handler) SaveMyOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Mission string `json:"mission"`
		Website string `json:"website"`
	}
	if !decode(w, r, &req) {
		return
	}
	org, err := h.svc.SaveMyOrganization(r.Context(), principal(r), service.OrganizationInput(req))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, organizationResource(org))
}

// GetMyProfile handles GET /api/v1/me/profile.
func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := h.svc.MyProfile(r.Context(), principal(r))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, profileResource(prof))
}

// SaveMyProfile handles PUT /api/v1/me/profile.
func (h *Handler) SaveMyProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Headline  string `json:"headline"`
		Expertise string `json:"expertise"`
		Bio       string `json:"bio"`
	}
	if !decode(w, r, &req) {
		return
	}
	prof, err := h.svc.SaveMyProfile(r.Context(), principal(r), service.ProfileInput(req))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, profileResource(prof))
}

// ListMyProjects handles GET /api/v1/me/projects.
func (h *Handler) ListMyProjects(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListMyProjects(r.Context(), principal(r))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(views, projectResource), nil)
}

// ListMyApplications handles GET /api/v1/me/applications.
func (h *Handler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListMyApplications(r.Context(), principal(r))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(apps, applicationResource), nil)
}
