package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Repository) {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := applog.New(applog.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
	ledger := services.NewLedger(repo, nil, logger)
	budgets := services.NewBudgets(repo, logger)
	materializer := services.NewMaterializer(repo, logger)
	analytics := services.NewAnalytics(ledger, budgets, materializer, nil, logger)
	users := services.NewUsers(repo, logger)

	s := NewServer(Options{
		Addr:               ":0",
		Ledger:             ledger,
		Budgets:            budgets,
		Materializer:       materializer,
		Analytics:          analytics,
		Users:              users,
		Logger:             logger,
		ReportCacheSize:    16,
		ReportCacheTTL:     time.Minute,
		RateLimitPerMinute: 10000,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, repo
}

func doJSON(t *testing.T, s *Server, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID > 0 {
		req.Header.Set(userIDHeader, strconv.FormatInt(userID, 10))
	}
	rr := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func registerUser(t *testing.T, s *Server, username string) int64 {
	t.Helper()
	rr := doJSON(t, s, http.MethodPost, "/api/register", 0, map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cret",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", username, rr.Code, rr.Body.String())
	}
	resp := decodeBody[userResponse](t, rr)
	return resp.ID
}

func findCategory(t *testing.T, s *Server, userID int64, name string) int64 {
	t.Helper()
	rr := doJSON(t, s, http.MethodGet, "/api/categories", userID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("categories: status %d", rr.Code)
	}
	resp := decodeBody[struct {
		Categories []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"categories"`
	}](t, rr)
	for _, c := range resp.Categories {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return 0
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, s, http.MethodGet, path, 0, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestServer(t)

	id := registerUser(t, s, "alice")
	if id == 0 {
		t.Fatal("register returned zero id")
	}

	rr := doJSON(t, s, http.MethodPost, "/api/login", 0, map[string]string{
		"email":    "alice@example.com",
		"password": "s3cret",
	})
	if rr.Code != http.StatusOK {
		t.Errorf("login status = %d, want 200", rr.Code)
	}
	user := decodeBody[userResponse](t, rr)
	if user.Role != "admin" {
		t.Errorf("first user role = %q, want admin", user.Role)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/login", 0, map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rr.Code)
	}
}

func TestExpenseEndpointsRequireIdentity(t *testing.T) {
	s, _ := newTestServer(t)
	rr := doJSON(t, s, http.MethodGet, "/api/expenses", 0, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without identity header", rr.Code)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	userID := registerUser(t, s, "alice")
	food := findCategory(t, s, userID, "Food")

	rr := doJSON(t, s, http.MethodPost, "/api/expenses", userID, map[string]any{
		"category_id": food,
		"amount":      "12.50",
		"description": "groceries",
		"date":        "2026-08-15",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	created := decodeBody[expenseResponse](t, rr)
	if created.Amount.Cents != 1250 {
		t.Errorf("amount = %d cents, want 1250", created.Amount.Cents)
	}

	rr = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/expenses/%d", created.ID), userID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	rr = doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), userID, map[string]any{
		"category_id": food,
		"amount":      "20.00",
		"description": "big groceries",
		"date":        "2026-08-16",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}
	updated := decodeBody[expenseResponse](t, rr)
	if updated.Amount.Cents != 2000 || updated.Description != "big groceries" {
		t.Errorf("update not applied: %+v", updated)
	}

	rr = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), userID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/expenses/%d", created.ID), userID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rr.Code)
	}
}

func TestExpenseValidationStatus(t *testing.T) {
	s, _ := newTestServer(t)
	userID := registerUser(t, s, "alice")
	food := findCategory(t, s, userID, "Food")

	rr := doJSON(t, s, http.MethodPost, "/api/expenses", userID, map[string]any{
		"category_id": food,
		"amount":      "10.00",
		"description": "   ",
		"date":        "2026-08-15",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank description status = %d, want 422", rr.Code)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/expenses", userID, map[string]any{
		"category_id": food,
		"amount":      "not a number",
		"description": "x",
		"date":        "2026-08-15",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad amount status = %d, want 400", rr.Code)
	}
}

func TestExpenseOwnerIsolationOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)
	alice := registerUser(t, s, "alice")
	bob := registerUser(t, s, "bob")
	food := findCategory(t, s, alice, "Food")

	rr := doJSON(t, s, http.MethodPost, "/api/expenses", alice, map[string]any{
		"category_id": food,
		"amount":      "5.00",
		"description": "lunch",
		"date":        "2026-08-15",
	})
	created := decodeBody[expenseResponse](t, rr)

	rr = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/expenses/%d", created.ID), bob, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want 404", rr.Code)
	}
	rr = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), bob, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("cross-user delete status = %d, want 404", rr.Code)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	userID := registerUser(t, s, "alice")
	food := findCategory(t, s, userID, "Food")
	month := core.MonthOf(time.Now()).String()

	rr := doJSON(t, s, http.MethodPost, "/api/budgets", userID, map[string]any{
		"category_id": food,
		"month":       month,
		"amount":      "400.00",
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("set budget status = %d, body %s", rr.Code, rr.Body.String())
	}

	// Spend 90% of the budget.
	rr = doJSON(t, s, http.MethodPost, "/api/expenses", userID, map[string]any{
		"category_id": food,
		"amount":      "360.00",
		"description": "stocking up",
		"date":        core.DateOf(time.Now()).String(),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d", rr.Code)
	}

	rr = doJSON(t, s, http.MethodGet, "/api/budgets/status?month="+month, userID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("budget status = %d", rr.Code)
	}
	resp := decodeBody[struct {
		Budgets []core.BudgetStatus `json:"budgets"`
	}](t, rr)
	if len(resp.Budgets) != 1 {
		t.Fatalf("got %d budget statuses, want 1", len(resp.Budgets))
	}
	st := resp.Budgets[0]
	if st.Pct != 90 || !st.Over80 || st.Overspent {
		t.Errorf("status = pct %v over80 %v overspent %v, want 90 true false",
			st.Pct, st.Over80, st.Overspent)
	}
}

func TestAnalyticsEndpointMaterializesAndCaches(t *testing.T) {
	s, _ := newTestServer(t)
	userID := registerUser(t, s, "alice")
	rent := findCategory(t, s, userID, "Rent")

	rr := doJSON(t, s, http.MethodPost, "/api/recurring", userID, map[string]any{
		"category_id":  rent,
		"amount":       "900.00",
		"description":  "rent",
		"day_of_month": 1,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create template status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s, http.MethodGet, "/api/analytics", userID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("analytics status = %d, body %s", rr.Code, rr.Body.String())
	}
	first := decodeBody[struct {
		Materialized int     `json:"materialized"`
		MonthTotal   float64 `json:"month_total"`
	}](t, rr)
	if first.Materialized != 1 {
		t.Errorf("materialized = %d, want 1", first.Materialized)
	}
	if first.MonthTotal != 900.0 {
		t.Errorf("month total = %v, want 900.0", first.MonthTotal)
	}

	// Second read is served from cache and unchanged.
	rr = doJSON(t, s, http.MethodGet, "/api/analytics", userID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("cached analytics status = %d", rr.Code)
	}
	second := decodeBody[struct {
		Materialized int     `json:"materialized"`
		MonthTotal   float64 `json:"month_total"`
	}](t, rr)
	if second.MonthTotal != first.MonthTotal {
		t.Errorf("cached total = %v, want %v", second.MonthTotal, first.MonthTotal)
	}
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	s, _ := newTestServer(t)
	admin := registerUser(t, s, "admin")
	bob := registerUser(t, s, "bob")

	rr := doJSON(t, s, http.MethodGet, "/api/users", bob, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("non-admin list status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, s, http.MethodGet, "/api/users", admin, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("admin list status = %d, want 200", rr.Code)
	}

	rr = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/users/%d/promote", bob), admin, nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("promote status = %d, want 204", rr.Code)
	}

	rr = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/users/%d/demote", admin), admin, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("self-demote status = %d, want 422", rr.Code)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	s, _ := newTestServer(t)
	s.limiter = newRateLimiter(2)
	t.Cleanup(s.limiter.stop)
	userID := registerUser(t, s, "alice")
	food := findCategory(t, s, userID, "Food")

	var last int
	for i := 0; i < 3; i++ {
		rr := doJSON(t, s, http.MethodPost, "/api/expenses", userID, map[string]any{
			"category_id": food,
			"amount":      "1.00",
			"description": "spam",
			"date":        "2026-08-15",
		})
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third mutation status = %d, want 429", last)
	}
}
