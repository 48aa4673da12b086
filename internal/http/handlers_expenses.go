package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

type expenseRequest struct {
	CategoryID  int64      `json:"category_id"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

type expenseResponse struct {
	ID          int64      `json:"id"`
	CategoryID  int64      `json:"category_id"`
	Category    string     `json:"category"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Category:    e.CategoryName,
		Amount:      e.Amount,
		Description: e.Description,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
	}
}

func toExpenseResponses(expenses []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.ledger.Create(r.Context(), core.Expense{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date,
	})
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	s.invalidateReport(userID, core.MonthOf(created.Date.Time))
	writeJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
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

	expense, err := s.ledger.Get(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
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

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The old row's month also needs its cached report dropped when the
	// date moves across months.
	previous, err := s.ledger.Get(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	updated, err := s.ledger.Update(r.Context(), core.Expense{
		ID:          id,
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date,
	})
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	s.invalidateReport(userID,
		core.MonthOf(previous.Date.Time), core.MonthOf(updated.Date.Time))
	writeJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
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

	expense, err := s.ledger.Get(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), id, userID); err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	s.invalidateReport(userID, core.MonthOf(expense.Date.Time))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	filter, err := parseExpenseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := s.ledger.List(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expenses": toExpenseResponses(expenses),
		"count":    len(expenses),
	})
}

// parseExpenseFilter reads the list filters from query parameters. All
// are optional; amounts are decimal strings like the request bodies.
func parseExpenseFilter(r *http.Request) (storage.ExpenseFilter, error) {
	q := r.URL.Query()
	var f storage.ExpenseFilter

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.From = &d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.To = &d
	}
	if v := strings.TrimSpace(q.Get("category_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, core.ErrInvalidCategory
		}
		f.CategoryID = &id
	}
	if v := strings.TrimSpace(q.Get("min_amount")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return f, err
		}
		f.MinCents = &cents
	}
	if v := strings.TrimSpace(q.Get("max_amount")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return f, err
		}
		f.MaxCents = &cents
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	f.Sort = strings.TrimSpace(q.Get("sort"))
	return f, nil
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	categories, err := s.ledger.Categories(r.Context())
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	type categoryResponse struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}
