package http

import (
	"net/http"
	"time"

	"tally/internal/core"
	applog "tally/internal/log"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// requireAdmin resolves the caller and rejects non-admins.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (core.User, bool) {
	logger := requestLogger(r, s.log)
	callerID, err := currentUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return core.User{}, false
	}
	caller, err := s.users.Get(r.Context(), callerID)
	if err != nil {
		writeServiceError(w, logger, r, err)
		return core.User{}, false
	}
	if caller.Role != core.RoleAdmin {
		logger.WarnContext(r.Context(), "Admin endpoint denied",
			applog.FieldUserID, callerID)
		writeError(w, http.StatusForbidden, "admin role required")
		return core.User{}, false
	}
	return caller, true
}

// handleListUsers is the admin overview: every account with its
// all-time spend.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	users, err := s.users.List(r.Context())
	if err != nil {
		writeServiceError(w, logger, r, err)
		return
	}

	type userOverview struct {
		userResponse
		TotalSpent core.Money `json:"total_spent"`
	}
	out := make([]userOverview, 0, len(users))
	for _, u := range users {
		total, err := s.ledger.TotalByUser(r.Context(), u.ID)
		if err != nil {
			writeServiceError(w, logger, r, err)
			return
		}
		out = append(out, userOverview{userResponse: toUserResponse(u), TotalSpent: total})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.users.Promote(r.Context(), id); err != nil {
		writeServiceError(w, logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDemote(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, s.log)
	caller, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id == caller.ID {
		writeError(w, http.StatusUnprocessableEntity, "cannot demote yourself")
		return
	}

	if err := s.users.Demote(r.Context(), id); err != nil {
		writeServiceError(w, logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
