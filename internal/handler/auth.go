package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/pkordes/trek-booking/internal/auth"
	"github.com/pkordes/trek-booking/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      domain.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Login handles POST /auth/login (JSON or form). On success both session
// cookies are set.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isForm(r) {
		if err := parseForm(r); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid request body"))
			return
		}
		req = loginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	} else if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid request body"))
		return
	}

	session, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "account")
		return
	}

	auth.SetSessionCookies(w, session, s.opts.Cookies)
	writeJSON(w, http.StatusOK, sessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

// RefreshSession handles POST /auth/refresh. A rejected refresh token clears
// both cookies.
func (s *Server) RefreshSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.auth.Refresh(r.Context(), auth.RefreshTokenFromRequest(r))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			auth.ClearSessionCookies(w, s.opts.Cookies)
		}
		writeServiceError(w, r, err, "session")
		return
	}

	auth.SetSessionCookies(w, session, s.opts.Cookies)
	writeJSON(w, http.StatusOK, sessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

// Logout handles POST /auth/logout: clears both cookies and redirects home.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookies(w, s.opts.Cookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
