package http

import (
	"net/http"
	"strings"

	"tally/internal/core"
)

type recurringRequest struct {
	CategoryID  int64      `json:"category_id"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	DayOfMonth  int        `json:"day_of_month"`
}

type recurringResponse struct {
	ID          int64      `json:"id"`
	CategoryID  int64      `json:"category_id"`
	Category    string     `json:"category"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	DayOfMonth  int        `json:"day_of_month"`
	Active      bool       `json:"active"`
}

func toRecurringResponse(t core.RecurringTemplate) recurringResponse {
	return recurringResponse{
		ID:          t.ID,
		CategoryID:  t.CategoryID,
		Category:    t.CategoryName,
		Amount:      t.Amount,
		Description: t.Description,
		DayOfMonth:  t.DayOfMonth,
		Active:      t.Active,
	}
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.materializer.CreateTemplate(r.Context(), core.RecurringTemplate{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		DayOfMonth:  req.DayOfMonth,
	})
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	// The next report run may materialize from this template.
	s.invalidateReport(userID)
	writeJSON(w, http.StatusCreated, toRecurringResponse(created))
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	templates, err := s.materializer.Templates(r.Context(), userID)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	out := make([]recurringResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toRecurringResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": out})
}

func (s *Server) handleToggleRecurring(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.materializer.ToggleTemplate(r.Context(), id, userID); err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	s.invalidateReport(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.materializer.DeleteTemplate(r.Context(), id, userID); err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	s.invalidateReport(userID)
	w.WriteHeader(http.StatusNoContent)
}
