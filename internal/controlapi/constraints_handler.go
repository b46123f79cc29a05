package controlapi

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// handleListOperators processes GET /api/v1/operators.
func (a *API) handleListOperators(w http.ResponseWriter, r *http.Request) {
	ops := constraint.Operators()
	out := make([]OperatorInfo, len(ops))
	for i, op := range ops {
		out[i] = OperatorInfo{
			Operator:    op,
			Label:       constraint.LabelFor(op),
			Description: constraint.DescriptionFor(op),
			Family:      op.Family(),
			MultiValue:  op.MultiValue(),
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, out)
}

// handleValidateConstraint processes POST /api/v1/constraints/validate.
// Unknown operators are reported as violations, not as a bad request, so an
// editor can show them next to the offending field.
func (a *API) handleValidateConstraint(w http.ResponseWriter, r *http.Request) {
	var c constraint.Constraint
	if err := render.DecodeJSON(r.Body, &c); err != nil {
		renderError(w, r, http.StatusBadRequest, codeInvalidJSON, "Invalid JSON payload: "+err.Error())
		return
	}

	violations := strategy.ValidateConstraint(c, a.registry)
	if violations == nil {
		violations = []strategy.Violation{}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ConstraintValidationResponse{
		Complete:   constraint.IsComplete(c),
		Normalized: constraint.Normalize(c),
		Text:       constraint.Format(c),
		Violations: violations,
	})
}
