package api

import (
	"net/http"

	"github.com/darmiel/idgate/internal/api/presenter"
	"github.com/darmiel/idgate/internal/buildinfo"
)

// AboutResponse is the body of AboutRoute.
type AboutResponse struct {
	buildinfo.Info

	LoginMode string   `json:"login_mode"`
	Policies  []string `json:"policies"`
}

// handleHealth is a liveness probe. It never touches the credential store or
// the identity provider.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, AboutResponse{
		Info:      buildinfo.GetBuildInfo(),
		LoginMode: s.loginMode,
		Policies:  s.policies.Names(),
	}, http.StatusOK)
}
