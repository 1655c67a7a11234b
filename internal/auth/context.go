package auth

import (
	"context"

	"github.com/pkordes/trek-booking/internal/domain"
)

type ctxKey int

const (
	accessTokenKey ctxKey = iota
	userKey
)

// WithAccessToken returns a context carrying the caller's access token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessTokenFromContext returns the access token, or "" when none was set.
func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}

// WithUser returns a context carrying the verified user.
func WithUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the verified user, if any.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey).(domain.User)
	return u, ok
}
