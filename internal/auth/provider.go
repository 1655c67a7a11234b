// Package auth issues and verifies admin sessions.
//
// A session is a pair of HS256 JWTs: a short-lived access token presented on
// every protected request and a longer-lived refresh token exchanged for a new
// pair. Both travel in HttpOnly cookies (see cookies.go).
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/trek-booking/internal/domain"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"

	issuer = "trek-booking"
)

var (
	// ErrInvalidCredentials is returned by SignIn for an unknown email or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = fmt.Errorf("%w: Invalid login credentials", domain.ErrUnauthorized)

	// ErrInvalidToken covers missing, malformed, expired and mistyped tokens.
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized)
)

// Accounts is the account lookup the provider needs.
type Accounts interface {
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error)
}

// Config controls token signing and lifetimes.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Provider signs users in and resolves tokens back to users.
type Provider struct {
	accounts Accounts
	cfg      Config
	now      func() time.Time
}

// NewProvider constructs a Provider. now may be nil, meaning time.Now.
func NewProvider(accounts Accounts, cfg Config, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{accounts: accounts, cfg: cfg, now: now}
}

type claims struct {
	Type  string `json:"typ"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignIn checks email and password and issues a new session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	acc, err := p.accounts.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("auth.Provider.SignIn: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return domain.Session{}, ErrInvalidCredentials
	}

	s, err := p.issue(acc)
	if err != nil {
		return domain.Session{}, fmt.Errorf("auth.Provider.SignIn: %w", err)
	}
	return s, nil
}

// Refresh exchanges a refresh token for a new session.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	acc, err := p.resolve(ctx, refreshToken, tokenRefresh)
	if err != nil {
		return domain.Session{}, fmt.Errorf("auth.Provider.Refresh: %w", err)
	}

	s, err := p.issue(acc)
	if err != nil {
		return domain.Session{}, fmt.Errorf("auth.Provider.Refresh: %w", err)
	}
	return s, nil
}

// GetUser returns the user an access token was issued to. The account is
// re-read, so removing it ends its sessions.
func (p *Provider) GetUser(ctx context.Context, accessToken string) (domain.User, error) {
	acc, err := p.resolve(ctx, accessToken, tokenAccess)
	if err != nil {
		return domain.User{}, fmt.Errorf("auth.Provider.GetUser: %w", err)
	}
	return domain.User{ID: acc.ID, Email: acc.Email}, nil
}

func (p *Provider) resolve(ctx context.Context, token, typ string) (domain.Account, error) {
	if token == "" {
		return domain.Account{}, ErrInvalidToken
	}

	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return p.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || c.Type != typ {
		return domain.Account{}, ErrInvalidToken
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return domain.Account{}, ErrInvalidToken
	}

	acc, err := p.accounts.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, ErrInvalidToken
	}
	if err != nil {
		return domain.Account{}, err
	}
	return acc, nil
}

func (p *Provider) issue(acc domain.Account) (domain.Session, error) {
	now := p.now()
	accessExp := now.Add(p.cfg.AccessTTL)

	access, err := p.sign(acc, tokenAccess, now, accessExp)
	if err != nil {
		return domain.Session{}, err
	}
	refresh, err := p.sign(acc, tokenRefresh, now, now.Add(p.cfg.RefreshTTL))
	if err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
		User:         domain.User{ID: acc.ID, Email: acc.Email},
	}, nil
}

func (p *Provider) sign(acc domain.Account, typ string, now, exp time.Time) (string, error) {
	c := claims{
		Type:  typ,
		Email: acc.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   acc.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// HashPassword returns the bcrypt hash stored for an account.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth.HashPassword: %w", err)
	}
	return string(h), nil
}
