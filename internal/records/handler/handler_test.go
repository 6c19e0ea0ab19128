package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
	dErrors "rdmrecords/pkg/domain-errors"
	"rdmrecords/pkg/testutil"
)

// stubService returns canned results and records the last input.
type stubService struct {
	Service
	identity models.Identity
	input    models.DraftInput
	err      error
}

func (s *stubService) CreateDraft(_ context.Context, identity models.Identity, input models.DraftInput) (*models.DraftResult, error) {
	s.identity, s.input = identity, input
	if s.err != nil {
		return nil, s.err
	}
	var errs pidmodels.FieldErrors
	errs.Add("pids.doi", "Missing DOI for required field.")
	return &models.DraftResult{Draft: &models.Draft{ID: "r1", ParentID: "p1", PIDs: input.PIDs}, Errors: errs}, nil
}

func (s *stubService) GetRecord(_ context.Context, id string) (*models.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Record{ID: id, PIDs: pidmodels.PIDSet{"doi": {Identifier: "10.1234/rdm.r1", Provider: "datacite", Status: pidmodels.StatusReserved}}}, nil
}

func (s *stubService) Publish(_ context.Context, identity models.Identity, id string) (*models.Record, error) {
	s.identity = identity
	if s.err != nil {
		return nil, s.err
	}
	return &models.Record{ID: id}, nil
}

func (s *stubService) DeleteDraft(context.Context, models.Identity, string) error {
	return s.err
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

// do sends body as userID; an empty userID is an anonymous request.
func do(t *testing.T, h http.Handler, userID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewRequestWithBody(t, method, path, body)
	if userID != "" {
		req = testutil.WithUserID(req, userID)
	}
	return testutil.DoRequest(h, req)
}

func TestCreateDraft(t *testing.T) {
	svc := &stubService{}
	rec := do(t, newRouter(svc), "u1", http.MethodPost, "/records",
		`{"metadata":{"title":"A"},"access":{"record":"Restricted"},"pids":{" DOI ":{"identifier":" 10.5555/x ","provider":"external"}}}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "u1", svc.identity.UserID)
	assert.Equal(t, models.VisibilityRestricted, svc.input.Access.Record)
	assert.Equal(t, pidmodels.PID{Identifier: "10.5555/x", Provider: "external"}, svc.input.PIDs["doi"])

	resp := testutil.UnmarshalResponse[DraftResponse](t, rec)
	assert.Equal(t, "r1", resp.ID)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "pids.doi", resp.Errors[0].Field)
}

func TestCreateDraftRejectsStatusAndBadAccess(t *testing.T) {
	router := newRouter(&stubService{})

	rec := do(t, router, "u1", http.MethodPost, "/records", `{"pids":{"doi":{"identifier":"x","provider":"external","status":"registered"}}}`)
	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")

	rec = do(t, router, "u1", http.MethodPost, "/records", `{"access":{"record":"secret"}}`)
	testutil.AssertStatusAndError(t, rec, http.StatusUnprocessableEntity, "validation_error")
}

func TestRequiresIdentity(t *testing.T) {
	rec := do(t, newRouter(&stubService{}), "", http.MethodPost, "/records/r1/draft/actions/publish", "")
	testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestGetRecord(t *testing.T) {
	rec := do(t, newRouter(&stubService{}), "", http.MethodGet, "/records/r1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := testutil.UnmarshalResponse[RecordResponse](t, rec)
	assert.Equal(t, pidmodels.StatusReserved, resp.PIDs["doi"].Status)
}

func TestPublishValidationErrorListsFields(t *testing.T) {
	var errs pidmodels.FieldErrors
	errs.Add("pids.doi", "Missing DOI for required field.")
	errs.Add("pids.oai", "Unknown provider.")
	svc := &stubService{err: dErrors.Wrap(&pidmodels.ValidationError{Errors: errs}, dErrors.CodeValidation, "invalid persistent identifiers")}

	rec := do(t, newRouter(svc), "u1", http.MethodPost, "/records/r1/draft/actions/publish", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := testutil.UnmarshalResponse[ValidationErrorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Error)
	assert.Len(t, resp.Errors, 2)
}

func TestErrorCodesMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "draft not found"), http.StatusNotFound},
		{"conflict", dErrors.New(dErrors.CodeConflict, "record was modified"), http.StatusConflict},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "restricted"), http.StatusForbidden},
		{"internal", dErrors.New(dErrors.CodeInternal, "db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newRouter(&stubService{err: tt.err}), "u1", http.MethodDelete, "/records/r1/draft", "")
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "db down")
			}
		})
	}
}

func TestDeleteDraftNoContent(t *testing.T) {
	rec := do(t, newRouter(&stubService{}), "u1", http.MethodDelete, "/records/r1/draft", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
