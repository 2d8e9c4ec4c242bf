package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"secure-auth/internal/domain"
	"secure-auth/internal/lockout"
	"secure-auth/internal/password"
	"secure-auth/internal/repository"
	"secure-auth/internal/token"
	"secure-auth/internal/validation"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password
	// so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a temporary lockout is in effect.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrDuplicateAccount is returned when the username or email is taken.
	ErrDuplicateAccount = errors.New("username or email already exists")
	// ErrAccountNotFound is returned when a referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPasswordMismatch is returned when the confirmation does not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// ValidationError aggregates every field-level violation found in an input.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// RegisterInput is the typed registration request consumed by the service.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthService orchestrates registration, login and account administration.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.Account, string, error)
	Login(ctx context.Context, email, plaintext string) (*domain.Account, string, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

type authService struct {
	accounts repository.AccountRepository
	hasher   *password.Hasher
	policy   lockout.Policy
	tokens   *token.Issuer
}

func NewAuthService(accounts repository.AccountRepository, hasher *password.Hasher, policy lockout.Policy, tokens *token.Issuer) AuthService {
	return &authService{
		accounts: accounts,
		hasher:   hasher,
		policy:   policy,
		tokens:   tokens,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*domain.Account, string, error) {
	username := validation.Sanitize(input.Username)
	email := validation.Sanitize(input.Email)

	if input.Password != input.ConfirmPassword {
		return nil, "", ErrPasswordMismatch
	}

	if errs := validation.ValidateRegistration(username, email, input.Password, input.ConfirmPassword); len(errs) > 0 {
		return nil, "", &ValidationError{Errors: errs}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, "", err
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			return nil, "", ErrDuplicateAccount
		}
		return nil, "", fmt.Errorf("create account: %w", err)
	}

	signed, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, "", err
	}

	return sanitizeAccount(account), signed, nil
}

func (s *authService) Login(ctx context.Context, email, plaintext string) (*domain.Account, string, error) {
	email = validation.Sanitize(email)
	if email == "" || plaintext == "" {
		return nil, "", ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup account: %w", err)
	}

	now := time.Now().UTC()
	if s.policy.IsLocked(account.LockUntil, now) {
		return nil, "", ErrAccountLocked
	}

	if !s.hasher.Verify(plaintext, account.PasswordHash) {
		if err := s.recordFailure(ctx, account.ID, now); err != nil {
			return nil, "", err
		}
		return nil, "", ErrInvalidCredentials
	}

	if account.FailedAttempts > 0 || account.LockUntil != nil {
		if err := s.accounts.ResetLoginState(ctx, account.ID); err != nil {
			return nil, "", fmt.Errorf("reset login state: %w", err)
		}
		account.FailedAttempts = 0
		account.LockUntil = nil
	}

	signed, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, "", err
	}

	return sanitizeAccount(account), signed, nil
}

// recordFailure bumps the counter atomically in the store and applies the
// lock transition when the policy threshold is reached.
func (s *authService) recordFailure(ctx context.Context, id string, now time.Time) error {
	attempts, err := s.accounts.IncrementFailedAttempts(ctx, id)
	if err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	if !s.policy.ShouldLock(attempts) {
		return nil
	}
	until := s.policy.LockedUntil(now)
	if err := s.accounts.SetLock(ctx, id, until, s.policy.AttemptsAfterLock(attempts)); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	return nil
}

func (s *authService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return sanitizeAccount(account), nil
}

func (s *authService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].PasswordHash = ""
	}
	return accounts, nil
}

func (s *authService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

func sanitizeAccount(account *domain.Account) *domain.Account {
	if account == nil {
		return nil
	}
	clean := *account
	clean.PasswordHash = ""
	return &clean
}
