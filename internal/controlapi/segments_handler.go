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
)

// handleListSegments processes GET /api/v1/segments.
func (a *API) handleListSegments(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, a.registry.Segments())
}

// handleGetSegment processes GET /api/v1/segments/{name}.
func (a *API) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	seg, ok := a.registry.Segment(chi.URLParam(r, "name"))
	if !ok {
		renderError(w, r, http.StatusNotFound, codeNotFound, "Segment not found")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, seg)
}

// handleCreateSegment processes POST /api/v1/segments.
// Segment constraints are checked against the registry like instance
// constraints, so a segment can never reference an unknown context field.
func (a *API) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req SegmentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderError(w, r, http.StatusBadRequest, codeInvalidJSON, "Invalid JSON payload: "+err.Error())
		return
	}

	req.Sanitize()
	if errResp := req.Validate(a.validate, a.registry); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	seg := req.Segment()
	if err := a.repo.CreateSegment(r.Context(), seg); err != nil {
		if errors.Is(err, store.ErrConflict) {
			renderError(w, r, http.StatusConflict, codeConflict, "A segment with this name already exists")
			return
		}

		log.Error("failed to create segment in db", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, codeInternal, "Failed to create segment")
		return
	}

	a.afterMutation(r.Context(), cache.ChangeSegment, seg.Name)

	log.Info("segment created", slog.String("segment", seg.Name), slog.Int("constraints", len(seg.Constraints)))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, seg)
}

// handleUpdateSegment processes PUT /api/v1/segments/{name}.
// The name in the path wins over the one in the body.
func (a *API) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	name := chi.URLParam(r, "name")

	var req SegmentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderError(w, r, http.StatusBadRequest, codeInvalidJSON, "Invalid JSON payload: "+err.Error())
		return
	}

	req.Name = name
	req.Sanitize()
	if errResp := req.Validate(a.validate, a.registry); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	seg := req.Segment()
	if err := a.repo.UpdateSegment(r.Context(), seg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, codeNotFound, "Segment not found")
			return
		}

		log.Error("failed to update segment in db", slog.String("segment", name), slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, codeInternal, "Failed to update segment")
		return
	}

	a.afterMutation(r.Context(), cache.ChangeSegment, seg.Name)

	log.Info("segment updated", slog.String("segment", seg.Name))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, seg)
}

// handleDeleteSegment processes DELETE /api/v1/segments/{name}.
// Instances still naming the segment skip it from then on.
func (a *API) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	name := chi.URLParam(r, "name")

	if err := a.repo.DeleteSegment(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, codeNotFound, "Segment not found")
			return
		}

		log.Error("failed to delete segment from db", slog.String("segment", name), slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, codeInternal, "Failed to delete segment")
		return
	}

	a.afterMutation(r.Context(), cache.ChangeSegment, name)

	log.Info("segment deleted", slog.String("segment", name))
	w.WriteHeader(http.StatusNoContent)
}
