// Package handler contains HTTP handlers grouped by resource.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/api/middleware"
	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/d9705996/researchbridge/internal/policy"
	"github.com/d9705996/researchbridge/internal/service"
	"github.com/d9705996/researchbridge/internal/store"
)

const maxPageSize = 100

// Handler serves every resource route on top of the service layer.
type Handler struct {
	svc *service.Service
}

// New creates a Handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// decode reads a JSON body into v and writes a 400 error when it is malformed.
// Field-level validation errors raised while decoding keep their own status.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if _, ok := apperr.As(err); ok {
			jsonapi.RenderErr(w, r, err)
			return false
		}
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return false
	}
	return true
}

// principal returns the resolved caller, or the zero Principal for anonymous requests.
func principal(r *http.Request) policy.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}

// page parses the limit and offset query parameters.
func page(r *http.Request) (store.Page, error) {
	var p store.Page
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, apperr.Validation("limit must be a positive integer")
		}
		p.Limit = min(n, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, apperr.Validation("offset must be zero or a positive integer")
		}
		p.Offset = n
	}
	return p, nil
}

func list[T any](items []T, conv func(*T) jsonapi.ResourceObject) []any {
	out := make([]any, len(items))
	for i := range items {
		out[i] = conv(&items[i])
	}
	return out
}

func pagination(p store.Page, count int) *jsonapi.Pagination {
	return &jsonapi.Pagination{Limit: p.Limit, Offset: p.Offset, Count: count}
}

// decodeFields unmarshals selected top-level keys of a JSON object into the
// given destinations. Unknown keys are ignored.
func decodeFields(data []byte, fields map[string]any) error {
	obj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for key, dst := range fields {
		if v, ok := obj[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return err
			}
		}
	}
	return nil
}

// nullableDate distinguishes an absent date, an explicit null and a value.
type nullableDate struct {
	Set   bool
	Value *time.Time
}

func (d *nullableDate) UnmarshalJSON(data []byte) error {
	d.Set = true
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperr.Validation("dates must be strings")
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Value = &t
	return nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation("dates must be YYYY-MM-DD or RFC 3339")
}
