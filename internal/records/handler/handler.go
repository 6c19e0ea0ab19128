// Package handler exposes the record lifecycle over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
	dErrors "rdmrecords/pkg/domain-errors"
	"rdmrecords/pkg/platform/httputil"
	"rdmrecords/pkg/requestcontext"
)

// Service defines the record lifecycle operations the handler needs.
type Service interface {
	CreateDraft(ctx context.Context, identity models.Identity, input models.DraftInput) (*models.DraftResult, error)
	UpdateDraft(ctx context.Context, identity models.Identity, id string, input models.DraftInput) (*models.DraftResult, error)
	GetDraft(ctx context.Context, id string) (*models.Draft, error)
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	Publish(ctx context.Context, identity models.Identity, id string) (*models.Record, error)
	NewVersion(ctx context.Context, identity models.Identity, recordID string) (*models.Draft, error)
	Edit(ctx context.Context, identity models.Identity, recordID string) (*models.Draft, error)
	DeleteDraft(ctx context.Context, identity models.Identity, id string) error
	DeleteRecord(ctx context.Context, identity models.Identity, id string) (*models.Record, error)
	RestoreRecord(ctx context.Context, identity models.Identity, id string) (*models.Record, error)
}

// Handler wires record endpoints to the record service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts record endpoints on the router. Authentication is applied
// by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/records", func(r chi.Router) {
		r.Post("/", h.HandleCreateDraft)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetRecord)
			r.Delete("/", h.HandleDeleteRecord)
			r.Post("/restore", h.HandleRestoreRecord)
			r.Post("/versions", h.HandleNewVersion)
			r.Post("/draft", h.HandleEdit)
			r.Get("/draft", h.HandleGetDraft)
			r.Put("/draft", h.HandleUpdateDraft)
			r.Delete("/draft", h.HandleDeleteDraft)
			r.Post("/draft/actions/publish", h.HandlePublish)
		})
	})
}

// identity returns the caller or writes 401.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return models.Identity{}, false
	}
	return models.Identity{UserID: userID}, true
}

// fail logs and writes err. Validation failures carry their field errors.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"record_id", chi.URLParam(r, "id"),
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	} else {
		h.logger.InfoContext(ctx, op+" rejected", attrs...)
	}

	var verr *pidmodels.ValidationError
	if errors.As(err, &verr) {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:       string(dErrors.CodeValidation),
			Description: dErrors.MessageOf(err),
			Errors:      verr.Errors,
		})
		return
	}
	httputil.WriteError(w, err)
}

func (h *Handler) logDone(ctx context.Context, msg, id string, start time.Time) {
	h.logger.InfoContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx),
		"record_id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// HandleCreateDraft handles POST /records.
func (h *Handler) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DraftRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	res, err := h.service.CreateDraft(ctx, identity, req.Input())
	if err != nil {
		h.fail(w, r, "create draft", err)
		return
	}
	h.logDone(ctx, "draft created", res.Draft.ID, start)
	httputil.WriteJSON(w, http.StatusCreated, FromDraft(res.Draft, res.Errors))
}

// HandleUpdateDraft handles PUT /records/{id}/draft.
func (h *Handler) HandleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DraftRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	res, err := h.service.UpdateDraft(ctx, identity, id, req.Input())
	if err != nil {
		h.fail(w, r, "update draft", err)
		return
	}
	h.logDone(ctx, "draft updated", id, start)
	httputil.WriteJSON(w, http.StatusOK, FromDraft(res.Draft, res.Errors))
}

// HandleGetDraft handles GET /records/{id}/draft.
func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}
	draft, err := h.service.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get draft", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDraft(draft, nil))
}

// HandleGetRecord handles GET /records/{id}.
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}

// HandlePublish handles POST /records/{id}/draft/actions/publish.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	record, err := h.service.Publish(ctx, identity, id)
	if err != nil {
		h.fail(w, r, "publish", err)
		return
	}
	h.logDone(ctx, "record published", id, start)
	httputil.WriteJSON(w, http.StatusAccepted, FromRecord(record))
}

// HandleNewVersion handles POST /records/{id}/versions.
func (h *Handler) HandleNewVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	draft, err := h.service.NewVersion(ctx, identity, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "new version", err)
		return
	}
	h.logDone(ctx, "new version draft", draft.ID, start)
	httputil.WriteJSON(w, http.StatusCreated, FromDraft(draft, nil))
}

// HandleEdit handles POST /records/{id}/draft.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	draft, err := h.service.Edit(ctx, identity, id)
	if err != nil {
		h.fail(w, r, "edit", err)
		return
	}
	h.logDone(ctx, "edit draft opened", id, start)
	httputil.WriteJSON(w, http.StatusCreated, FromDraft(draft, nil))
}

// HandleDeleteDraft handles DELETE /records/{id}/draft.
func (h *Handler) HandleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteDraft(ctx, identity, id); err != nil {
		h.fail(w, r, "delete draft", err)
		return
	}
	h.logDone(ctx, "draft deleted", id, start)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteRecord handles DELETE /records/{id}.
func (h *Handler) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	record, err := h.service.DeleteRecord(ctx, identity, id)
	if err != nil {
		h.fail(w, r, "delete record", err)
		return
	}
	h.logDone(ctx, "record deleted", id, start)
	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}

// HandleRestoreRecord handles POST /records/{id}/restore.
func (h *Handler) HandleRestoreRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	record, err := h.service.RestoreRecord(ctx, identity, id)
	if err != nil {
		h.fail(w, r, "restore record", err)
		return
	}
	h.logDone(ctx, "record restored", id, start)
	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}
