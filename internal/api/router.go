// Package api wires all API routes onto the provided ServeMux.
package api

import (
	"net/http"

	"github.com/d9705996/researchbridge/internal/api/handler"
	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/api/middleware"
	"github.com/d9705996/researchbridge/internal/health"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all application routes on mux.
func RegisterRoutes(mux *http.ServeMux, h *health.Handler, api *handler.Handler, res middleware.Resolver) {
	protected := middleware.RequireAuth(res)
	optional := middleware.OptionalAuth(res)
	auth := func(fn http.HandlerFunc) http.Handler { return protected(fn) }
	maybe := func(fn http.HandlerFunc) http.Handler { return optional(fn) }

	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /api/v1/health", h.ServeHealth)
	mux.HandleFunc("GET /api/v1/ready", h.ServeReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth endpoints
	mux.HandleFunc("POST /api/v1/auth/register", api.Register)
	mux.HandleFunc("POST /api/v1/auth/login", api.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", api.Refresh)
	mux.Handle("POST /api/v1/auth/logout", auth(api.Logout))

	// Self service
	mux.Handle("GET /api/v1/me", auth(api.GetMe))
	mux.Handle("PATCH /api/v1/me", auth(api.UpdateMe))
	mux.Handle("DELETE /api/v1/me", auth(api.DeleteMe))
	mux.Handle("PUT /api/v1/me/password", auth(api.ChangePassword))
	mux.Handle("PUT /api/v1/me/preferences", auth(api.UpdatePreferences))
	mux.Handle("GET /api/v1/me/organization", auth(api.GetMyOrganization))
	mux.Handle("PUT /api/v1/me/organization", auth(api.SaveMyOrganization))
	mux.Handle("GET /api/v1/me/profile", auth(api.GetMyProfile))
	mux.Handle("PUT /api/v1/me/profile", auth(api.SaveMyProfile))
	mux.Handle("GET /api/v1/me/projects", auth(api.ListMyProjects))
	mux.Handle("GET /api/v1/me/applications", auth(api.ListMyApplications))

	// Projects; open projects are readable anonymously
	mux.Handle("GET /api/v1/projects", maybe(api.BrowseProjects))
	mux.Handle("GET /api/v1/projects/{id}", maybe(api.GetProject))
	mux.Handle("GET /api/v1/projects/{id}/milestones", maybe(api.ListMilestones))
	mux.Handle("POST /api/v1/projects", auth(api.CreateProject))
	mux.Handle("PATCH /api/v1/projects/{id}", auth(api.UpdateProject))
	mux.Handle("DELETE /api/v1/projects/{id}", auth(api.DeleteProject))
	mux.Handle("POST /api/v1/projects/{id}/submit", auth(api.SubmitProject))
	mux.Handle("POST /api/v1/projects/{id}/review", auth(api.ReviewProject))
	mux.Handle("GET /api/v1/projects/{id}/reviews", auth(api.ListReviews))
	mux.Handle("POST /api/v1/projects/{id}/milestones", auth(api.CreateMilestone))
	mux.Handle("POST /api/v1/projects/{id}/applications", auth(api.Apply))
	mux.Handle("GET /api/v1/projects/{id}/applications", auth(api.ListProjectApplications))

	// Milestones
	mux.Handle("GET /api/v1/milestones/{id}", auth(api.GetMilestone))
	mux.Handle("PATCH /api/v1/milestones/{id}", auth(api.UpdateMilestone))
	mux.Handle("DELETE /api/v1/milestones/{id}", auth(api.DeleteMilestone))

	// Applications
	mux.Handle("POST /api/v1/applications/{id}/decision", auth(api.DecideApplication))
	mux.Handle("POST /api/v1/applications/{id}/withdraw", auth(api.WithdrawApplication))

	// Admin; the policy rejects non-admin principals per operation
	mux.Handle("GET /api/v1/admin/users", auth(api.ListUsers))
	mux.Handle("POST /api/v1/admin/users/{id}/approve", auth(api.ApproveUser))
	mux.Handle("POST /api/v1/admin/users/{id}/suspend", auth(api.SuspendUser))
	mux.Handle("POST /api/v1/admin/users/{id}/unsuspend", auth(api.UnsuspendUser))
	mux.Handle("POST /api/v1/admin/users/{id}/restore", auth(api.RestoreUser))
	mux.Handle("PUT /api/v1/admin/users/{id}/status", auth(api.SetUserStatus))
	mux.Handle("DELETE /api/v1/admin/users/{id}", auth(api.HardDeleteUser))
	mux.Handle("GET /api/v1/admin/projects", auth(api.ListAllProjects))
	mux.Handle("GET /api/v1/admin/audit", auth(api.ListAuditEvents))

	// Catch-all 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		jsonapi.RenderError(w, http.StatusNotFound, "not_found", "Not Found", "no route matches "+r.URL.Path)
	})
}
