package controlapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// handleListContextFields processes GET /api/v1/context-fields.
func (a *API) handleListContextFields(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, a.registry.ContextFields())
}

// handleCreateContextField processes POST /api/v1/context-fields.
func (a *API) handleCreateContextField(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req ContextFieldRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderError(w, r, http.StatusBadRequest, codeInvalidJSON, "Invalid JSON payload: "+err.Error())
		return
	}

	req.Sanitize()
	if errResp := req.Validate(a.validate); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	if strategy.IsStandardField(req.Name) {
		renderError(w, r, http.StatusConflict, codeConflict, "A standard context field with this name already exists")
		return
	}

	field := req.ContextField()
	if err := a.repo.CreateContextField(r.Context(), field); err != nil {
		if errors.Is(err, store.ErrConflict) {
			renderError(w, r, http.StatusConflict, codeConflict, "A context field with this name already exists")
			return
		}

		log.Error("failed to create context field in db", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, codeInternal, "Failed to create context field")
		return
	}

	a.afterMutation(r.Context(), cache.ChangeContext, field.Name)

	log.Info("context field created", slog.String("context_field", field.Name))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, field)
}

// handleDeleteContextField processes DELETE /api/v1/context-fields/{name}.
// Standard fields are part of every context and cannot be removed.
func (a *API) handleDeleteContextField(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	name := chi.URLParam(r, "name")

	if strategy.IsStandardField(name) {
		renderError(w, r, http.StatusForbidden, codeForbidden, "Standard context fields cannot be deleted")
		return
	}

	if err := a.repo.DeleteContextField(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, codeNotFound, "Context field not found")
			return
		}

		log.Error("failed to delete context field from db", slog.String("context_field", name), slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, codeInternal, "Failed to delete context field")
		return
	}

	a.afterMutation(r.Context(), cache.ChangeContext, name)

	log.Info("context field deleted", slog.String("context_field", name))
	w.WriteHeader(http.StatusNoContent)
}
