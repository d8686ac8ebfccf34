package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	repo := &fakeUserRepo{}
	verifier := NewCredentialVerifier(false, bcrypt.MinCost)
	cfg := defaultConfig()
	cfg.InitialAdminPasswordPath = filepath.Join(t.TempDir(), "admin.secret")

	if err := BootstrapAdmin(ctx, repo, verifier, cfg, discardLogger()); err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	if len(repo.users) != 1 || repo.users[0].Email != bootstrapAdminEmail || repo.users[0].Role != "admin" {
		t.Fatalf("users = %+v", repo.users)
	}
	raw, err := os.ReadFile(cfg.InitialAdminPasswordPath)
	if err != nil {
		t.Fatalf("read password file: %v", err)
	}
	password := strings.TrimSpace(string(raw))
	if len(password) != 32 {
		t.Fatalf("password length = %d", len(password))
	}
	if !verifier.Verify(password, repo.users[0].PasswordHash) {
		t.Fatalf("written password does not match stored hash")
	}

	// Second run is a no-op.
	if err := BootstrapAdmin(ctx, repo, verifier, cfg, discardLogger()); err != nil {
		t.Fatalf("BootstrapAdmin again: %v", err)
	}
	if len(repo.users) != 1 {
		t.Fatalf("admin created twice")
	}
}

func TestBootstrapAdminDisabled(t *testing.T) {
	repo := &fakeUserRepo{}
	cfg := defaultConfig()
	cfg.BootstrapAdminEnabled = false
	if err := BootstrapAdmin(context.Background(), repo, NewCredentialVerifier(false, bcrypt.MinCost), cfg, discardLogger()); err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	if len(repo.users) != 0 {
		t.Fatalf("users = %+v", repo.users)
	}
}

func TestSeedDemoUsers(t *testing.T) {
	ctx := context.Background()
	repo := &fakeUserRepo{}
	repo.add(t, "manager@gym.com", "", "other", RoleManager, true)
	verifier := NewCredentialVerifier(false, bcrypt.MinCost)

	results, err := SeedDemoUsers(ctx, repo, verifier)
	if err != nil {
		t.Fatalf("SeedDemoUsers: %v", err)
	}
	if len(results) != len(DemoUsers) {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if want := r.Email != "manager@gym.com"; r.Created != want {
			t.Errorf("%s created = %v", r.Email, r.Created)
		}
	}

	svc := newTestService(repo)
	if _, err := svc.Login(ctx, newTestSessionStore(), "trainer@gym.com", DemoPassword); err != nil {
		t.Fatalf("demo login: %v", err)
	}
}
