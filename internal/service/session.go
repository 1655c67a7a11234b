package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkordes/trek-booking/internal/auth"
	"github.com/pkordes/trek-booking/internal/domain"
)

// MsgSessionExpired is shown whenever a protected call has no valid session.
const MsgSessionExpired = "Unauthorized: Please log in again."

// ErrSessionRequired is returned by every protected operation called without
// a valid session.
var ErrSessionRequired = fmt.Errorf("%w: %s", domain.ErrUnauthorized, MsgSessionExpired)

// UserResolver turns an access token into a user.
type UserResolver interface {
	GetUser(ctx context.Context, accessToken string) (domain.User, error)
}

// SessionVerifier checks the access token carried in the request context on
// every call. Nothing is cached between calls.
type SessionVerifier struct {
	users UserResolver
}

// NewSessionVerifier constructs a SessionVerifier backed by users.
func NewSessionVerifier(users UserResolver) *SessionVerifier {
	return &SessionVerifier{users: users}
}

// Verify returns the signed-in user or ErrSessionRequired. A failure of the
// auth backend itself is returned wrapped, not as ErrSessionRequired.
func (v *SessionVerifier) Verify(ctx context.Context) (domain.User, error) {
	token := auth.AccessTokenFromContext(ctx)
	if token == "" {
		return domain.User{}, ErrSessionRequired
	}

	u, err := v.users.GetUser(ctx, token)
	if errors.Is(err, domain.ErrUnauthorized) {
		return domain.User{}, ErrSessionRequired
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("service.SessionVerifier.Verify: %w", err)
	}
	return u, nil
}
