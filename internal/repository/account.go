package repository

import (
	"context"
	"errors"
	"time"

	"secure-auth/internal/domain"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount is returned when a username or email is already taken.
	ErrDuplicateAccount = errors.New("account already exists")
)

// AccountRepository defines persistence operations for Account entities.
// IncrementFailedAttempts, SetLock and ResetLoginState must be atomic so
// concurrent login attempts against one account never lose an update.
type AccountRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, id string) error

	// IncrementFailedAttempts adds one to the failed-attempt counter and
	// returns the new value.
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)
	// SetLock records a lock expiring at until and overwrites the counter.
	SetLock(ctx context.Context, id string, until time.Time, attempts int) error
	// ResetLoginState zeroes the counter and clears any lock.
	ResetLoginState(ctx context.Context, id string) error
}
