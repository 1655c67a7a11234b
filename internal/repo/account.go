package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trek-booking/internal/domain"
)

// AccountRepo defines the persistence operations for admin accounts.
type AccountRepo interface {
	// GetByEmail looks an account up by its (case-insensitive) email.
	// Returns domain.ErrNotFound if there is none.
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetByID looks an account up by id.
	// Returns domain.ErrNotFound if there is none.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error)

	// Upsert creates the account or replaces its password hash.
	Upsert(ctx context.Context, email, passwordHash string) (domain.Account, error)
}

type pgAccountRepo struct {
	db db
}

// NewAccountRepo constructs an AccountRepo backed by the provided db connection.
func NewAccountRepo(db db) AccountRepo {
	return &pgAccountRepo{db: db}
}

func (r *pgAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE lower(email) = lower(@email)`

	a, err := scanAccount(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.GetByEmail: %w", mapPgErr(err))
	}
	return a, nil
}

func (r *pgAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	const q = `SELECT id, email, password_hash, created_at FROM accounts WHERE id = @id`

	a, err := scanAccount(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.GetByID: %w", mapPgErr(err))
	}
	return a, nil
}

func (r *pgAccountRepo) Upsert(ctx context.Context, email, passwordHash string) (domain.Account, error) {
	const q = `
		INSERT INTO accounts (email, password_hash)
		VALUES (lower(@email), @password_hash)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING id, email, password_hash, created_at`

	a, err := scanAccount(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email, "password_hash": passwordHash}))
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.Upsert: %w", mapPgErr(err))
	}
	return a, nil
}

func scanAccount(s scanner) (domain.Account, error) {
	var (
		a  domain.Account
		id pgtype.UUID
	)
	if err := s.Scan(&id, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		return domain.Account{}, err
	}
	a.ID = uuid.UUID(id.Bytes)
	return a, nil
}
