package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/storage"
)

type budgetRequest struct {
	CategoryID *int64     `json:"category_id"`
	Month      string     `json:"month"`
	Amount     core.Money `json:"amount"`
}

type budgetResponse struct {
	ID         int64      `json:"id"`
	CategoryID *int64     `json:"category_id"`
	Category   string     `json:"category,omitempty"`
	Month      core.Month `json:"month"`
	Amount     core.Money `json:"amount"`
}

func toBudgetResponse(b storage.BudgetWithCategory) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Category:   b.CategoryName,
		Month:      b.Month,
		Amount:     b.Amount,
	}
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	if err := s.budgets.Set(r.Context(), userID, month, req.Amount, req.CategoryID); err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	s.invalidateReport(userID, month)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	month, err := queryMonth(r)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	budgets, err := s.budgets.List(r.Context(), userID, month)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
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

	if err := s.budgets.Delete(r.Context(), id, userID); err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	s.invalidateReport(userID)
	w.WriteHeader(http.StatusNoContent)
}

// handleBudgetStatus returns the per-budget utilization for one month
// without building a full analytics report.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	month, err := queryMonth(r)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	statuses, err := s.budgets.StatusForMonth(r.Context(), userID, month)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":   month,
		"budgets": statuses,
	})
}
