package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
)

const bootstrapAdminEmail = "admin@gym.local"

// BootstrapAdmin creates an initial admin user when none exists.
// It is idempotent: if an admin already exists, it does nothing.
func BootstrapAdmin(ctx context.Context, repo UserRepository, verifier *CredentialVerifier, cfg Config, logger *slog.Logger) error {
	if !cfg.BootstrapAdminEnabled {
		return nil
	}

	has, err := repo.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	password, err := generatePassword(32)
	if err != nil {
		return err
	}
	hash, err := verifier.HashSecret(password)
	if err != nil {
		return err
	}

	if _, err := repo.Create(ctx, NewUser{
		FirstName:    "Gym",
		LastName:     "Administrator",
		Email:        bootstrapAdminEmail,
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	}); err != nil {
		return err
	}

	if cfg.InitialAdminPasswordPath != "" {
		if err := os.WriteFile(cfg.InitialAdminPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		logger.Info("initial admin created", "email", bootstrapAdminEmail, "password_file", cfg.InitialAdminPasswordPath)
	} else {
		logger.Warn("initial admin created", "email", bootstrapAdminEmail, "password", password)
	}

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	// base64 encoding: need 3/4 overhead; ensure enough bytes
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
