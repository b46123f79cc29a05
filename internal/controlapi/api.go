package controlapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/rafaeljc/mimir/internal/plan"
	"github.com/rafaeljc/mimir/internal/ruleengine"
	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/strategy"
	"github.com/rafaeljc/mimir/internal/validation"
)

// Reloader refreshes the local registry from the store.
// The syncer service implements it; the API calls it after every mutation so
// the replica that served the write reads its own changes.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Publisher announces registry changes to the other replicas.
type Publisher interface {
	PublishChange(ctx context.Context, kind, name string) error
}

// PlanCache is the in-process (L1) plan cache.
type PlanCache interface {
	Get(key string) (*plan.Plan, bool)
	Set(key string, p *plan.Plan)
}

// SharedPlanCache is the plan cache shared between replicas (L2).
type SharedPlanCache interface {
	GetPlan(ctx context.Context, key string) (*plan.Plan, bool, error)
	SetPlan(ctx context.Context, key string, p *plan.Plan) error
}

// Dependencies groups what the API needs. Repo, Registry and Engine are
// required; the rest are optional and may be left nil.
type Dependencies struct {
	Repo     store.Repository
	Registry *strategy.Registry
	Engine   *ruleengine.Engine

	Reloader  Reloader
	Publisher Publisher
	L1        PlanCache
	L2        SharedPlanCache

	Logger *slog.Logger
}

// API is the main struct that holds dependencies and the router.
// It follows the Dependency Injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	repo     store.Repository
	registry *strategy.Registry
	engine   *ruleengine.Engine

	reloader  Reloader
	publisher Publisher
	l1        PlanCache
	l2        SharedPlanCache

	logger   *slog.Logger
	validate *validator.Validate

	// now is the clock used by the playground.
	now func() time.Time

	// apiKeyHash is the SHA-256 hash of the valid API key.
	apiKeyHash string

	// skipAuth disables authentication when true (test/dev environments only).
	skipAuth bool
}

// NewAPI creates a new API instance with authentication enabled.
// The apiKeyHash parameter must be the SHA-256 hash of the API key.
func NewAPI(deps Dependencies, apiKeyHash string) *API {
	return NewAPIWithConfig(deps, apiKeyHash, false)
}

// NewAPIWithConfig creates a new API instance with explicit control over authentication.
// This constructor is primarily used in tests to disable authentication.
//
// Panics if:
//   - Repo, Registry or Engine are nil
//   - apiKeyHash is empty when skipAuth is false
func NewAPIWithConfig(deps Dependencies, apiKeyHash string, skipAuth bool) *API {
	validation.AssertImplemented(deps.Repo, "repository")
	validation.AssertNotNil(deps.Registry, "registry")
	validation.AssertNotNil(deps.Engine, "engine")

	if !skipAuth && apiKeyHash == "" {
		panic("controlapi: apiKeyHash cannot be empty when authentication is enabled")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	api := &API{
		Router:     chi.NewRouter(),
		repo:       deps.Repo,
		registry:   deps.Registry,
		engine:     deps.Engine,
		reloader:   deps.Reloader,
		publisher:  deps.Publisher,
		l1:         deps.L1,
		l2:         deps.L2,
		logger:     log,
		validate:   newValidator(),
		now:        time.Now,
		apiKeyHash: apiKeyHash,
		skipAuth:   skipAuth,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// RequestID: Adds a unique ID to each request context (essential for tracing).
	a.Router.Use(middleware.RequestID)
	// RealIP: correctly sets the IP if behind a proxy/LB.
	a.Router.Use(middleware.RealIP)
	a.Router.Use(Metrics)
	a.Router.Use(RequestLogger(a.logger))
	// Recoverer: Prevents the server from crashing on panics, returning 500 instead.
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// Public
	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)

		r.Get("/strategies", a.handleListDefinitions)
		r.Post("/strategies", a.handleCreateDefinition)
		r.Post("/strategies/validate", a.handleValidateInstance)
		r.Get("/strategies/{name}", a.handleGetDefinition)
		r.Put("/strategies/{name}", a.handleUpdateDefinition)
		r.Delete("/strategies/{name}", a.handleDeleteDefinition)

		r.Get("/context-fields", a.handleListContextFields)
		r.Post("/context-fields", a.handleCreateContextField)
		r.Delete("/context-fields/{name}", a.handleDeleteContextField)

		r.Get("/segments", a.handleListSegments)
		r.Post("/segments", a.handleCreateSegment)
		r.Get("/segments/{name}", a.handleGetSegment)
		r.Put("/segments/{name}", a.handleUpdateSegment)
		r.Delete("/segments/{name}", a.handleDeleteSegment)

		r.Get("/operators", a.handleListOperators)
		r.Post("/constraints/validate", a.handleValidateConstraint)

		r.Post("/plans", a.handleDerivePlan)
		r.Post("/playground", a.handlePlayground)
	})
}

// handleHealthCheck reports that the HTTP server is serving.
// Dependency checks live on the observability server's readiness probe.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
