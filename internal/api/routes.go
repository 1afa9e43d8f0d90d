package api

const (
	HealthCheckRoute = "/hc"
	AboutRoute       = "/about"
	MetricsRoute     = "/metrics"

	LoginRoute        = "/auth/login"
	APILoginRoute     = "/api/auth/login"
	RegisterRoute     = "/api/auth/register"
	ValidateRoute     = "/validate"
	AuthValidateRoute = "/auth/validate"
	ProfileRoute      = "/api/users/me"

	AdminParent       = "/v1/admin/"
	ListAuditsRoute   = AdminParent + "audits"
	ExplainRoute      = AdminParent + "explain"
	ListPoliciesRoute = AdminParent + "policies"
)
