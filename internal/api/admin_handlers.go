package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/idgate/internal/api/presenter"
	"github.com/darmiel/idgate/internal/audit"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/service"
)

const defaultAuditLimit = 50

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	reader, ok := audit.ReaderOf(s.auditor)
	if !ok {
		presenter.Error(w, r, "the configured auditor cannot be queried", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")
	filterCorrelationID := q.Get("correlation_id")
	filterSubject := q.Get("subject")

	limit := defaultAuditLimit
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v <= 0 {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterSubject != "" {
		logger.Debug().Msg("applying audit log filters")
		entries, err = reader.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterSubject != "" && entry.Subject != filterSubject {
				return false
			}
			return true
		}, limit)
	} else {
		entries, err = reader.GetRecent(limit)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []core.AuditEntry{}
	}
	presenter.JSON(w, r, entries, http.StatusOK)
}

// handleExplain traces the requested policies against the identity of a supplied token.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req service.ExplainRequest
	if err := DecodePayload(r, &req); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode explain payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	trace, err := s.authService.Explain(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "explain failed")
		return
	}
	presenter.JSON(w, r, trace, http.StatusOK)
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.policies.Policies(), http.StatusOK)
}
