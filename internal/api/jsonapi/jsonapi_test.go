package jsonapi_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/d9705996/researchbridge/internal/api/jsonapi"
	"github.com/d9705996/researchbridge/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOne(t *testing.T) {
	type attrs struct {
		Name string `json:"name"`
	}

	w := httptest.NewRecorder()
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type:       "widgets",
		ID:         "1",
		Attributes: attrs{Name: "test"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.api+json", w.Header().Get("Content-Type"))

	var doc jsonapi.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.NotNil(t, doc.Data)
}

func TestRenderList_EmptySlice(t *testing.T) {
	w := httptest.NewRecorder()
	jsonapi.RenderList(w, http.StatusOK, nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var doc jsonapi.ListDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.NotNil(t, doc.Data)
	assert.Len(t, doc.Data, 0)
}

func TestRenderError(t *testing.T) {
	w := httptest.NewRecorder()
	jsonapi.RenderError(w, http.StatusNotFound, "not_found", "Not Found", "the resource does not exist")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var doc jsonapi.ErrorDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "not_found", doc.Errors[0].Code)
	assert.Equal(t, "the resource does not exist", doc.Errors[0].Detail)
}

func TestRenderErrors_MultipleErrors(t *testing.T) {
	w := httptest.NewRecorder()
	jsonapi.RenderErrors(w, http.StatusUnprocessableEntity, []jsonapi.ErrorObject{
		{
			Code: "missing_field", Title: "Missing Field", Detail: "name is required",
			Source: &jsonapi.ErrorSource{Pointer: "/data/attributes/name"},
		},
		{
			Code: "missing_field", Title: "Missing Field", Detail: "email is required",
			Source: &jsonapi.ErrorSource{Pointer: "/data/attributes/email"},
		},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var doc jsonapi.ErrorDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Len(t, doc.Errors, 2)
}

func TestRenderErr_MapsKindToStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
		title  string
	}{
		{apperr.Validation("name is required"), http.StatusUnprocessableEntity, "invalid_input", "validation_error"},
		{apperr.NotFound("project"), http.StatusNotFound, "not_found", "not_found"},
		{apperr.RoleForbidden(apperr.CodeSelfDeleteForbidden, "no"), http.StatusForbidden, "self_delete_forbidden", "role_forbidden"},
		{apperr.InvalidTransition("", "no"), http.StatusConflict, "invalid_transition", "invalid_transition"},
		{apperr.Conflict(apperr.CodeEmailTaken, "taken"), http.StatusConflict, "email_taken", "conflict"},
		{apperr.ConfirmationRequired("confirm"), http.StatusPreconditionRequired, "confirmation_missing", "confirmation_required"},
		{apperr.Auth(apperr.CodeAccountSuspended, "suspended"), http.StatusUnauthorized, "account_suspended", "auth_error"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			jsonapi.RenderErr(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody), tc.err)

			assert.Equal(t, tc.status, w.Code)
			var doc jsonapi.ErrorDocument
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
			require.Len(t, doc.Errors, 1)
			assert.Equal(t, tc.code, doc.Errors[0].Code)
			assert.Equal(t, tc.title, doc.Errors[0].Title)
		})
	}
}

func TestRenderErr_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	jsonapi.RenderErr(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody),
		apperr.Internal("load user", errors.New("dial tcp 10.0.0.1:5432: refused")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")

	w = httptest.NewRecorder()
	jsonapi.RenderErr(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody), errors.New("foreign"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "foreign")
}
