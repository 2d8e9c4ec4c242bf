package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"secure-auth/internal/config"
	"secure-auth/internal/domain"
	"secure-auth/internal/password"
	"secure-auth/internal/repository"
	"secure-auth/internal/repository/sqlite"
)

// Seeds the database with the initial admin account. Safe to run repeatedly.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	accounts := sqlite.NewAccountRepository(db)
	if err := accounts.Init(ctx); err != nil {
		logger.Fatalf("init account repository: %v", err)
	}

	if _, err := accounts.GetByEmail(ctx, cfg.Seed.AdminEmail); err == nil {
		logger.Info("admin account already exists")
		return
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		logger.Fatalf("check admin account: %v", err)
	}

	hasher := password.NewHasher(cfg.Auth.BcryptCost)
	hash, err := hasher.Hash(cfg.Seed.AdminPassword)
	if err != nil {
		logger.Fatalf("hash admin password: %v", err)
	}

	admin := &domain.Account{
		ID:           uuid.NewString(),
		Username:     cfg.Seed.AdminUsername,
		Email:        cfg.Seed.AdminEmail,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := accounts.Create(ctx, admin); err != nil {
		logger.Fatalf("create admin account: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"email":    admin.Email,
		"username": admin.Username,
	}).Info("admin account created")
}
