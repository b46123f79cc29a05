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

// handleListDefinitions processes GET /api/v1/strategies.
// Built-in definitions come first, then custom ones sorted by name.
func (a *API) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, a.registry.Definitions())
}

// handleGetDefinition processes GET /api/v1/strategies/{name}.
func (a *API) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	def, ok := a.registry.Definition(name)
	if !ok {
		renderError(w, r, http.StatusNotFound, codeNotFound, "Strategy not found")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, def)
}

// handleCreateDefinition processes POST /api/v1/strategies.
//
// Responsibilities:
// 1. Decodes, sanitizes and validates the payload.
// 2. Rejects names taken by built-in strategies.
// 3. Persists the definition and refreshes the registry.
// 4. Announces the change to the other replicas.
func (a *API) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req DefinitionRequest
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

	if strategy.IsBuiltin(req.Name) {
		renderError(w, r, http.StatusConflict, codeConflict, "A built-in strategy with this name already exists")
		return
	}

	def := req.Definition()
	if err := a.repo.CreateDefinition(r.Context(), def); err != nil {
		if errors.Is(err, store.ErrConflict) {
			renderError(w, r, http.StatusConflict, codeConflict, "A strategy with this name already exists")
			return
		}

		log.Error("failed to create strategy in db", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, codeInternal, "Failed to create strategy")
		return
	}

	a.afterMutation(r.Context(), cache.ChangeStrategy, def.Name)

	log.Info("strategy created", slog.String("strategy", def.Name), slog.Int("parameters", len(def.Parameters)))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, def)
}

// handleUpdateDefinition processes PUT /api/v1/strategies/{name}.
// The name in the path wins over the one in the body; renames are not supported.
func (a *API) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	name := chi.URLParam(r, "name")

	if strategy.IsBuiltin(name) {
		renderError(w, r, http.StatusForbidden, codeForbidden, "Built-in strategies cannot be modified")
		return
	}

	var req DefinitionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderError(w, r, http.StatusBadRequest, codeInvalidJSON, "Invalid JSON payload: "+err.Error())
		return
	}

	req.Name = name
	req.Sanitize()
	if errResp := req.Validate(a.validate); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	def := req.Definition()
	if err := a.repo.UpdateDefinition(r.Context(), def); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, codeNotFound, "Strategy not found")
			return
		}

		log.Error("failed to update strategy in db", slog.String("strategy", name), slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, codeInternal, "Failed to update strategy")
		return
	}

	a.afterMutation(r.Context(), cache.ChangeStrategy, def.Name)

	log.Info("strategy updated", slog.String("strategy", def.Name))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, def)
}

// handleDeleteDefinition processes DELETE /api/v1/strategies/{name}.
func (a *API) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	name := chi.URLParam(r, "name")

	if strategy.IsBuiltin(name) {
		renderError(w, r, http.StatusForbidden, codeForbidden, "Built-in strategies cannot be deleted")
		return
	}

	if err := a.repo.DeleteDefinition(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, codeNotFound, "Strategy not found")
			return
		}

		log.Error("failed to delete strategy from db", slog.String("strategy", name), slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, codeInternal, "Failed to delete strategy")
		return
	}

	a.afterMutation(r.Context(), cache.ChangeStrategy, name)

	log.Info("strategy deleted", slog.String("strategy", name))
	w.WriteHeader(http.StatusNoContent)
}

// handleValidateInstance processes POST /api/v1/strategies/validate.
// It reports every violation of the instance against its definition.
func (a *API) handleValidateInstance(w http.ResponseWriter, r *http.Request) {
	var req InstanceRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, codeInvalidJSON, "Invalid JSON payload: "+err.Error())
		return
	}
	if errResp := validateStruct(a.validate, &req); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	def, ok := a.registry.Definition(req.Strategy.Name)
	if !ok {
		renderError(w, r, http.StatusNotFound, codeNotFound, "Strategy not found")
		return
	}

	violations := strategy.ValidateInstance(req.Strategy, def, a.registry)
	if violations == nil {
		violations = []strategy.Violation{}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, InstanceValidationResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	})
}

// renderError writes an ErrorResponse without details.
func renderError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: code, Message: message})
}
