// Package controlapi implements the REST API of the mimir service.
// It handles HTTP routing, request decoding, validation, and response formatting.
package controlapi

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/plan"
	"github.com/rafaeljc/mimir/internal/ruleengine"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeInvalidJSON  = "ERR_INVALID_JSON"
	codeInvalidInput = "ERR_INVALID_INPUT"
	codeNotFound     = "ERR_NOT_FOUND"
	codeConflict     = "ERR_CONFLICT"
	codeForbidden    = "ERR_FORBIDDEN"
	codeUnauthorized = "ERR_UNAUTHORIZED"
	codeInternal     = "ERR_INTERNAL"
)

// nameRegex restricts strategy and context field names to identifier-like
// strings so they stay usable as path segments.
var nameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)

// newValidator builds the request validator. Field names in errors use the
// JSON tag so they match what the client sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// -----------------------------------------------------------------------------
// Strategy definitions
// -----------------------------------------------------------------------------

// DefinitionRequest is the payload of POST /strategies and PUT /strategies/{name}.
type DefinitionRequest struct {
	Name        string                         `json:"name" validate:"required,max=255"`
	DisplayName string                         `json:"displayName,omitempty" validate:"max=255"`
	Description string                         `json:"description,omitempty"`
	Deprecated  bool                           `json:"deprecated"`
	Parameters  []strategy.ParameterDefinition `json:"parameters" validate:"dive"`
}

// Sanitize trims whitespace from the free-text fields.
func (r *DefinitionRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.Description = strings.TrimSpace(r.Description)
	for i := range r.Parameters {
		r.Parameters[i].Name = strings.TrimSpace(r.Parameters[i].Name)
		r.Parameters[i].Description = strings.TrimSpace(r.Parameters[i].Description)
	}
}

// Validate checks the struct tags plus the rules tags cannot express.
func (r *DefinitionRequest) Validate(v *validator.Validate) *ErrorResponse {
	if errResp := validateStruct(v, r); errResp != nil {
		return errResp
	}
	if !nameRegex.MatchString(r.Name) {
		return &ErrorResponse{
			Code:    codeInvalidInput,
			Message: "Name must start with a letter and contain only letters, numbers, '_', '.' and '-'",
		}
	}

	seen := make(map[string]struct{}, len(r.Parameters))
	var details []ErrorDetail
	for _, p := range r.Parameters {
		if _, dup := seen[p.Name]; dup {
			details = append(details, ErrorDetail{Field: "parameters." + p.Name, Issue: "duplicate parameter name"})
		}
		seen[p.Name] = struct{}{}
	}
	if len(details) > 0 {
		return &ErrorResponse{Code: codeInvalidInput, Message: "Invalid strategy parameters", Details: details}
	}
	return nil
}

// Definition maps the request onto the domain model. Stored definitions are
// always editable.
func (r *DefinitionRequest) Definition() *strategy.Definition {
	params := r.Parameters
	if params == nil {
		params = []strategy.ParameterDefinition{}
	}
	return &strategy.Definition{
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Deprecated:  r.Deprecated,
		Editable:    true,
		Parameters:  params,
	}
}

// -----------------------------------------------------------------------------
// Context fields
// -----------------------------------------------------------------------------

// ContextFieldRequest is the payload of POST /context-fields.
type ContextFieldRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description,omitempty"`
	LegalValues []string `json:"legalValues,omitempty" validate:"dive,required"`
	Stickiness  bool     `json:"stickiness"`
}

// Sanitize trims whitespace from the name, description and legal values.
func (r *ContextFieldRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	for i, v := range r.LegalValues {
		r.LegalValues[i] = strings.TrimSpace(v)
	}
}

// Validate checks the struct tags and the name format.
func (r *ContextFieldRequest) Validate(v *validator.Validate) *ErrorResponse {
	if errResp := validateStruct(v, r); errResp != nil {
		return errResp
	}
	if !nameRegex.MatchString(r.Name) {
		return &ErrorResponse{
			Code:    codeInvalidInput,
			Message: "Name must start with a letter and contain only letters, numbers, '_', '.' and '-'",
		}
	}
	return nil
}

// ContextField maps the request onto the domain model.
func (r *ContextFieldRequest) ContextField() *strategy.ContextField {
	return &strategy.ContextField{
		Name:        r.Name,
		Description: r.Description,
		LegalValues: r.LegalValues,
		Stickiness:  r.Stickiness,
	}
}

// -----------------------------------------------------------------------------
// Segments
// -----------------------------------------------------------------------------

// SegmentRequest is the payload of POST /segments and PUT /segments/{name}.
type SegmentRequest struct {
	Name        string                  `json:"name" validate:"required,max=255"`
	Description string                  `json:"description,omitempty"`
	Constraints []constraint.Constraint `json:"constraints"`
}

// Sanitize trims whitespace from the name and description.
func (r *SegmentRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

// Validate checks the struct tags, the name format and every constraint
// against the context fields known to reg.
func (r *SegmentRequest) Validate(v *validator.Validate, reg *strategy.Registry) *ErrorResponse {
	if errResp := validateStruct(v, r); errResp != nil {
		return errResp
	}
	if !nameRegex.MatchString(r.Name) {
		return &ErrorResponse{
			Code:    codeInvalidInput,
			Message: "Name must start with a letter and contain only letters, numbers, '_', '.' and '-'",
		}
	}

	violations := strategy.ValidateSegment(strategy.Segment{Constraints: r.Constraints}, reg)
	if len(violations) == 0 {
		return nil
	}
	details := make([]ErrorDetail, 0, len(violations))
	for _, vi := range violations {
		details = append(details, ErrorDetail{Field: vi.Field, Issue: vi.Message})
	}
	return &ErrorResponse{Code: codeInvalidInput, Message: "Invalid segment constraints", Details: details}
}

// Segment maps the request onto the domain model.
func (r *SegmentRequest) Segment() *strategy.Segment {
	cs := r.Constraints
	if cs == nil {
		cs = []constraint.Constraint{}
	}
	return &strategy.Segment{Name: r.Name, Description: r.Description, Constraints: cs}
}

// -----------------------------------------------------------------------------
// Operators and constraints
// -----------------------------------------------------------------------------

// OperatorInfo is one entry of the operator catalogue.
type OperatorInfo struct {
	Operator    constraint.Operator `json:"operator"`
	Label       string              `json:"label"`
	Description string              `json:"description"`
	Family      constraint.Family   `json:"family"`
	MultiValue  bool                `json:"multiValue"`
}

// ConstraintValidationResponse is returned by POST /constraints/validate.
type ConstraintValidationResponse struct {
	Complete   bool                  `json:"complete"`
	Normalized constraint.Constraint `json:"normalized"`
	Text       string                `json:"text"`
	Violations []strategy.Violation  `json:"violations"`
}

// -----------------------------------------------------------------------------
// Instances: validation, plans and playground
// -----------------------------------------------------------------------------

// InstanceRequest carries a strategy instance, as used by POST /strategies/validate.
type InstanceRequest struct {
	Strategy strategy.Instance `json:"strategy"`
}

// InstanceValidationResponse lists what prevents an instance from being committed.
type InstanceValidationResponse struct {
	Valid      bool                 `json:"valid"`
	Violations []strategy.Violation `json:"violations"`
}

// PlanRequest is the payload of POST /plans. Committed drops incomplete
// constraints before deriving, as a saved strategy would. Segments named by
// the instance are resolved from the registry.
type PlanRequest struct {
	Strategy  strategy.Instance `json:"strategy"`
	Committed bool              `json:"committed"`
}

// Plan sources reported in PlanResponse.Source.
const (
	sourceMemory  = "l1"
	sourceRedis   = "l2"
	sourceDerived = "derived"
)

// PlanResponse wraps a derived plan with its memoization key.
type PlanResponse struct {
	Key    string    `json:"key"`
	Source string    `json:"source"`
	Plan   plan.Plan `json:"plan"`
}

// PlaygroundRequest is the payload of POST /playground.
type PlaygroundRequest struct {
	Strategy    strategy.Instance  `json:"strategy"`
	Context     ruleengine.Context `json:"context"`
	FeatureName string             `json:"featureName,omitempty"`
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details provides optional granular validation errors.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail provides context about specific field validation failures.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// validateStruct runs the validator and flattens its errors into details.
func validateStruct(v *validator.Validate, s any) *ErrorResponse {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ErrorResponse{Code: codeInvalidInput, Message: err.Error()}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		details = append(details, ErrorDetail{Field: field, Issue: issueFor(fe)})
	}
	return &ErrorResponse{Code: codeInvalidInput, Message: "Request validation failed", Details: details}
}

func issueFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed '" + fe.Tag() + "' validation"
	}
}
