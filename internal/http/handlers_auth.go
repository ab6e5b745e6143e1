package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"finquery/internal/auth"
	"finquery/internal/core"
	applog "finquery/internal/log"
)

const ownerContextKey contextKey = "owner"

// requireAuth validates the bearer token and stores the username in the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		username, err := s.tokens.Validate(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), ownerContextKey, username)
		next(w, r.WithContext(ctx))
	}
}

// ownerFrom returns the authenticated username stored by requireAuth.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey).(string)
	return owner
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = sanitizeInput(req.Username)
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Password hashing failed", applog.FieldError, err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := s.backend.CreateUser(r.Context(), req.Username, hash)
	if errors.Is(err, core.ErrUserExists) {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "User creation failed", applog.FieldError, err, applog.FieldOwner, req.Username)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "User registered", applog.FieldOwner, user.Username)
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleToken exchanges form-encoded credentials for a bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	user, err := s.backend.UserByName(r.Context(), username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Token issue failed", applog.FieldError, err, applog.FieldOwner, username)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	user, err := s.backend.UserByName(r.Context(), owner)
	if errors.Is(err, core.ErrUserNotFound) {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "User lookup failed", applog.FieldError, err, applog.FieldOwner, owner)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

// handleDeleteMe removes the account and every transaction it owns.
func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	if err := s.backend.PurgeOwner(r.Context(), owner); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Account purge failed", applog.FieldError, err, applog.FieldOwner, owner)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.invalidateCharts(owner)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Account deleted"})
}
