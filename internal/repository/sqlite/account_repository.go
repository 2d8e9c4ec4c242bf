package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"secure-auth/internal/domain"
	"secure-auth/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	is_active INTEGER NOT NULL DEFAULT 1,
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	lock_until DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (id, username, email, password_hash, role, is_active, failed_attempts, lock_until, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		string(account.Role),
		account.IsActive,
		account.FailedAttempts,
		account.LockUntil,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return repository.ErrDuplicateAccount
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getWhere(ctx, "email = ?", email)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getWhere(ctx, "username = ?", username)
}

func (r *AccountRepository) getWhere(ctx context.Context, where string, arg any) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, email, password_hash, role, is_active, failed_attempts, lock_until, created_at, updated_at
FROM accounts
WHERE `+where,
		arg,
	)
	return scanAccount(row)
}

func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, username, email, password_hash, role, is_active, failed_attempts, lock_until, created_at, updated_at
FROM accounts
ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE accounts
SET failed_attempts = failed_attempts + 1, updated_at = ?
WHERE id = ?
RETURNING failed_attempts`,
		time.Now().UTC(),
		id,
	)

	var attempts int
	if err := row.Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrAccountNotFound
		}
		return 0, fmt.Errorf("increment failed attempts: %w", err)
	}
	return attempts, nil
}

func (r *AccountRepository) SetLock(ctx context.Context, id string, until time.Time, attempts int) error {
	return r.updateLoginState(ctx, id, &until, attempts)
}

func (r *AccountRepository) ResetLoginState(ctx context.Context, id string) error {
	return r.updateLoginState(ctx, id, nil, 0)
}

func (r *AccountRepository) updateLoginState(ctx context.Context, id string, until *time.Time, attempts int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET failed_attempts = ?, lock_until = ?, updated_at = ?
WHERE id = ?`,
		attempts,
		until,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update login state rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row interface {
	Scan(dest ...any) error
}) (*domain.Account, error) {
	var (
		account   domain.Account
		role      string
		lockUntil sql.NullTime
	)
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.IsActive,
		&account.FailedAttempts,
		&lockUntil,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	account.Role = domain.Role(role)
	if lockUntil.Valid {
		t := lockUntil.Time
		account.LockUntil = &t
	}
	return &account, nil
}
