package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/idgate/internal/api/middleware"
	"github.com/darmiel/idgate/internal/api/presenter"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/service"
)

// handleLogin dispatches to the configured login strategy.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.loginMode == LoginModeDelegated {
		s.handleDelegatedLogin(w, r)
		return
	}
	s.handleLocalLogin(w, r)
}

func (s *Server) handleLocalLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := DecodePayload(r, &req); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode login payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "login failed")
		return
	}
	presenter.JSON(w, r, resp, http.StatusOK)
}

// handleDelegatedLogin relays the identity provider's answer, status included.
func (s *Server) handleDelegatedLogin(w http.ResponseWriter, r *http.Request) {
	var req service.DelegatedLoginRequest
	if err := DecodePayload(r, &req); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode delegated login payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	res, err := s.authService.DelegatedLogin(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, service.ErrUpstreamUnavailable.Error())
		return
	}
	presenter.JSON(w, r, res.Envelope, res.Status)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := DecodePayload(r, &req); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode register payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "registration failed")
		return
	}
	w.Header().Set("Location", ProfileRoute)
	presenter.JSON(w, r, resp, http.StatusCreated)
}

// handleValidate lists the claims of the caller's token.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		presenter.Error(w, r, "unauthenticated", http.StatusUnauthorized)
		return
	}
	presenter.JSON(w, r, claims.List(), http.StatusOK)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity := core.IdentityFrom(r.Context())

	resp, err := s.authService.Profile(r.Context(), identity.SubjectID)
	if err != nil {
		s.fail(w, r, err, "failed to load profile")
		return
	}
	presenter.JSON(w, r, resp, http.StatusOK)
}

// fail renders a service error. Server-side failures are logged in full,
// clients only get detail outside production.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := service.StatusOf(err)
	if status < http.StatusInternalServerError {
		presenter.Err(w, r, err, short)
		return
	}

	log.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg(short)

	detail := err
	var he *service.HTTPError
	if errors.As(err, &he) {
		detail = he.Wrapped
	}
	presenter.Fault(w, r, detail, short, status, s.exposeDetail)
}
