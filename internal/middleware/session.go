package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pkordes/trek-booking/internal/auth"
	"github.com/pkordes/trek-booking/internal/domain"
)

// SessionVerifier resolves the session carried in a request context.
type SessionVerifier interface {
	Verify(ctx context.Context) (domain.User, error)
}

// SessionCarrier copies the access token of the request (cookie or bearer
// header) into its context, where the service layer looks for it.
func SessionCarrier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := auth.AccessTokenFromRequest(r); token != "" {
			r = r.WithContext(auth.WithAccessToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession rejects requests without a valid session with 401 and puts
// the signed-in user into the context of the ones it lets through.
// SessionCarrier must run first.
func RequireSession(v SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := v.Verify(r.Context())
			switch {
			case errors.Is(err, domain.ErrUnauthorized):
				writeError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized: Please log in again.")
				return
			case err != nil:
				slog.ErrorContext(r.Context(), "verifying session", "error", err)
				writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}

// writeError writes the same {"error": {...}} envelope the handlers use.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
