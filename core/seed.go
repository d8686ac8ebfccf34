package core

import (
	"context"
	"errors"
)

// DemoPassword is the shared password of the demo accounts shown on the login page.
const DemoPassword = "password"

// DemoUsers are the accounts created by `gymctl seed-demo`.
var DemoUsers = []NewUser{
	{FirstName: "Admin", LastName: "User", Email: "admin@gym.com", Role: RoleAdmin, IsActive: true},
	{FirstName: "Manager", LastName: "User", Email: "manager@gym.com", Role: RoleManager, IsActive: true},
	{FirstName: "Trainer", LastName: "User", Email: "trainer@gym.com", Role: RoleTrainer, IsActive: true},
	{FirstName: "Member", LastName: "User", Email: "member@gym.com", Role: RoleMember, IsActive: true},
}

// SeedResult reports what happened to one demo account.
type SeedResult struct {
	Email   string
	Role    Role
	Created bool
}

// SeedDemoUsers creates any missing demo account. Existing accounts are left untouched.
func SeedDemoUsers(ctx context.Context, repo UserRepository, verifier *CredentialVerifier) ([]SeedResult, error) {
	hash, err := verifier.HashSecret(DemoPassword)
	if err != nil {
		return nil, err
	}
	out := make([]SeedResult, 0, len(DemoUsers))
	for _, u := range DemoUsers {
		u.PasswordHash = hash
		_, err := repo.Create(ctx, u)
		switch {
		case err == nil:
			out = append(out, SeedResult{Email: u.Email, Role: u.Role, Created: true})
		case errors.Is(err, ErrDuplicateUser):
			out = append(out, SeedResult{Email: u.Email, Role: u.Role})
		default:
			return out, err
		}
	}
	return out, nil
}
