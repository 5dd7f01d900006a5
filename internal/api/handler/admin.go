package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/store"
)

// ListUsers handles GET /api/v1/admin/users?status=&role=&includeDeleted=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	pg, err := page(r)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	q := r.URL.Query()
	f := store.UserFilter{
		Status: model.AccountStatus(q.Get("status")),
		Role:   model.Role(q.Get("role")),
		Page:   pg,
	}
	if v := q.Get("includeDeleted"); v != "" {
		if f.IncludeDeleted, err = strconv.ParseBool(v); err != nil {
			jsonapi.RenderErr(w, r, apperr.Validation("includeDeleted must be a boolean"))
			return
		}
	}
	users, err := h.svc.ListUsers(r.Context(), principal(r), f)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(users, userResource), pagination(pg, len(users)))
}

type userTransition func(ctx context.Context, p policy.Principal, userID string) (*model.User, error)

func (h *Handler) transitionUser(w http.ResponseWriter, r *http.Request, fn userTransition) {
	u, err := fn(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, userResource(u))
}

// ApproveUser handles POST /api/v1/admin/users/{id}/approve.
func (h *Handler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	h.transitionUser(w, r, h.svc.ApproveUser)
}

// UnsuspendUser handles POST /api/v1/admin/users/{id}/unsuspend.
func (h *Handler) UnsuspendUser(w http.ResponseWriter, r *http.Request) {
	h.transitionUser(w, r, h.svc.UnsuspendUser)
}

// RestoreUser handles POST /api/v1/admin/users/{id}/restore.
func (h *Handler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	h.transitionUser(w, r, h.svc.RestoreUser)
}

// SuspendUser handles POST /api/v1/admin/users/{id}/suspend. The body is optional.
func (h *Handler) SuspendUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	h.transitionUser(w, r, func(ctx context.Context, p policy.Principal, id string) (*model.User, error) {
		return h.svc.SuspendUser(ctx, p, id, req.Reason)
	})
}

// SetUserStatus handles PUT /api/v1/admin/users/{id}/status.
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.AccountStatus `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.transitionUser(w, r, func(ctx context.Context, p policy.Principal, id string) (*model.User, error) {
		return h.svc.SetAccountStatus(ctx, p, id, req.Status)
	})
}

// HardDeleteUser handles DELETE /api/v1/admin/users/{id}. The confirmation is
// read from the confirm query parameter or a JSON body.
func (h *Handler) HardDeleteUser(w http.ResponseWriter, r *http.Request) {
	confirm := r.URL.Query().Get("confirm")
	if confirm == "" && r.ContentLength > 0 {
		var req struct {
			Confirm string `json:"confirm"`
		}
		if !decode(w, r, &req) {
			return
		}
		confirm = req.Confirm
	}
	if err := h.svc.HardDeleteUser(r.Context(), principal(r), r.PathValue("id"), confirm); err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAllProjects handles GET /api/v1/admin/projects?status=.
func (h *Handler) ListAllProjects(w http.ResponseWriter, r *http.Request) {
	pg, err := page(r)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	status := model.ProjectStatus(r.URL.Query().Get("status"))
	views, err := h.svc.ListAllProjects(r.Context(), principal(r), status, pg)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(views, projectResource), pagination(pg, len(views)))
}

// ListAuditEvents handles GET /api/v1/admin/audit?entityType=&entityId=&actorId=&limit=.
func (h *Handler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	pg, err := page(r)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	q := r.URL.Query()
	events, err := h.svc.ListAuditEvents(r.Context(), principal(r), store.AuditFilter{
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorID:    q.Get("actorId"),
		Limit:      pg.Limit,
	})
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderList(w, http.StatusOK, list(events, auditResource), nil)
}
