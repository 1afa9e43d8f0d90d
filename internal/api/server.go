package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/darmiel/idgate/internal/api/middleware"
	"github.com/darmiel/idgate/internal/audit"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/engine"
	"github.com/darmiel/idgate/internal/service"
	"github.com/darmiel/idgate/internal/telemetry"
	"github.com/darmiel/idgate/internal/token"
)

// Login modes of the POST /auth/login route.
const (
	LoginModeLocal     = "local"
	LoginModeDelegated = "delegated"
)

type Server struct {
	authService *service.AuthService
	validator   *token.Validator
	policies    *engine.Registry
	auditor     core.Auditor

	loginMode      string
	exposeDetail   bool
	allowedOrigins []string
}

type ServerOptions struct {
	AuthService *service.AuthService
	Validator   *token.Validator
	Policies    *engine.Registry
	Auditor     core.Auditor

	// LoginMode selects the strategy of LoginRoute, LoginModeLocal if empty.
	LoginMode string

	// ExposeDetail attaches internal error detail to 5xx responses.
	ExposeDetail bool

	// AllowedOrigins for CORS, all origins if empty.
	AllowedOrigins []string
}

func NewServer(opts ServerOptions) *Server {
	if opts.Auditor == nil {
		opts.Auditor = audit.NewNoopAuditor()
	}
	if opts.LoginMode == "" {
		opts.LoginMode = LoginModeLocal
	}
	return &Server{
		authService:    opts.AuthService,
		validator:      opts.Validator,
		policies:       opts.Policies,
		auditor:        opts.Auditor,
		loginMode:      opts.LoginMode,
		exposeDetail:   opts.ExposeDetail,
		allowedOrigins: opts.AllowedOrigins,
	}
}

// Routes builds the router. It fails if a route references an unknown policy.
func (s *Server) Routes() (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RecoverMiddleware)
	r.Use(middleware.CorrelationIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(s.cors())

	// public routes
	r.Get(HealthCheckRoute, s.handleHealth)
	r.Get(AboutRoute, s.handleAbout)
	r.Method(http.MethodGet, MetricsRoute, telemetry.Handler())

	r.Post(LoginRoute, s.handleLogin)
	r.Post(APILoginRoute, s.handleLocalLogin)
	r.Post(RegisterRoute, s.handleRegister)

	var bindErr error
	require := func(names ...string) func(http.Handler) http.Handler {
		mw, err := middleware.RequirePolicies(s.policies, names...)
		if err != nil {
			if bindErr == nil {
				bindErr = err
			}
			return func(next http.Handler) http.Handler { return next }
		}
		return mw
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(s.validator))

		r.With(require(core.PolicyAnyAuthenticatedUser)).Get(ValidateRoute, s.handleValidate)
		r.With(require(core.PolicyAnyAuthenticatedUser)).Get(AuthValidateRoute, s.handleValidate)
		r.With(require(core.PolicyUser)).Get(ProfileRoute, s.handleProfile)

		r.Group(func(r chi.Router) {
			r.Use(require(core.PolicyAnyAuthenticatedUser, core.PolicyAdmin))
			r.Get(ListAuditsRoute, s.handleAdminAudit)
			r.Post(ExplainRoute, s.handleExplain)
			r.Get(ListPoliciesRoute, s.handleListPolicies)
		})
	})

	if bindErr != nil {
		return nil, fmt.Errorf("building routes: %w", bindErr)
	}
	return r, nil
}

func (s *Server) cors() func(http.Handler) http.Handler {
	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.TokenExpiredHeader, middleware.CorrelationIDHeader},
		MaxAge:         300,
	})
}
