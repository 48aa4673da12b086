package http

import (
	"net/http"
	"time"

	"tally/internal/core"
	applog "tally/internal/log"
)

// handleAnalytics serves the full report for the current month. Reports
// are cached per user and month; a cache hit skips the materialization
// pass, which is safe because it is idempotent within a month and every
// mutation drops the cached entry.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	now := time.Now()
	key := s.reportCacheKey(userID, core.MonthOf(now))
	if report, ok := s.reportCache.Get(key); ok {
		logger.DebugContext(r.Context(), "Report cache hit", applog.FieldUserID, userID)
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.analytics.BuildReport(r.Context(), userID, now)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	s.reportCache.Set(key, report)
	writeJSON(w, http.StatusOK, report)
}
