package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultLoginTimeout = 3 * time.Second

// AuthService runs login attempts against the users repository and keeps the
// result in the caller's session.
type AuthService struct {
	users    UserRepository
	verifier *CredentialVerifier
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewAuthService(users UserRepository, verifier *CredentialVerifier, timeout time.Duration, logger *slog.Logger) *AuthService {
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		verifier: verifier,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger,
	}
}

// Attempt walks a single login attempt through the state machine. It never
// touches the session; Login does that for established attempts.
func (s *AuthService) Attempt(ctx context.Context, identifier, secret string) *LoginAttempt {
	a := newLoginAttempt()
	a.advance(StateValidating)

	id := ClassifyIdentifier(identifier)
	if id.Value == "" || strings.TrimSpace(secret) == "" {
		return a.fail(ErrValidation)
	}
	a.Kind = id.Kind
	a.advance(StateQuerying)

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rec, err := s.users.FindByIdentifier(lookupCtx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrAmbiguousIdentifier) {
			return a.fail(ErrInvalidCredentials)
		}
		return a.fail(&ServiceError{Op: "lookup " + string(id.Kind), Err: err})
	}
	if !rec.IsActive {
		return a.fail(ErrAccountDisabled)
	}
	role, ok := ParseRole(rec.Role)
	if !ok || rec.PasswordHash == "" {
		return a.fail(ErrInvalidCredentials)
	}

	a.advance(StateVerifying)
	if !s.verifier.Verify(secret, rec.PasswordHash) {
		return a.fail(ErrInvalidCredentials)
	}

	p := rec.principal(role)
	a.Principal = &p
	a.advance(StateEstablished)
	return a
}

// Login performs one attempt and, on success, writes the principal and a fresh
// session token into store. The caller persists store.
func (s *AuthService) Login(ctx context.Context, store *SessionStore, identifier, secret string) (Principal, error) {
	a := s.Attempt(ctx, identifier, secret)
	if a.State != StateEstablished {
		level := slog.LevelInfo
		if errors.Is(a.Err, ErrService) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "login failed", "kind", a.Kind, "state", a.State, "trace", a.Trace, "error", a.Err)
		return Principal{}, a.Err
	}

	if err := store.Renew(ctx); err != nil {
		err = &ServiceError{Op: "renew session", Err: err}
		s.logger.Error("login failed", "kind", a.Kind, "user_id", a.Principal.ID, "error", err)
		return Principal{}, err
	}
	store.SetPrincipal(*a.Principal)
	store.SetSessionToken(newSessionToken(s.now()))
	s.logger.Info("login established", "kind", a.Kind, "user_id", a.Principal.ID, "role", a.Principal.Role)
	return *a.Principal, nil
}

// Logout clears the session and returns the login entry point.
func (s *AuthService) Logout(store *SessionStore) string {
	store.Clear()
	return LoginPath
}

// Restore returns the principal kept in store without asking the repository.
// Opaque tokens never expire; three-part tokens from older clients are checked
// for an exp claim and cleared once it has passed.
func (s *AuthService) Restore(store *SessionStore) (*Principal, bool) {
	token, hasToken := store.SessionToken()
	p := store.Principal()
	if !hasToken || p == nil {
		if hasToken || p != nil {
			store.Clear()
		}
		return nil, false
	}
	if isStructuredToken(token) && structuredTokenExpired(token, s.now()) {
		s.logger.Info("discarding expired session token", "user_id", p.ID)
		store.Clear()
		return nil, false
	}
	return p, true
}

func newSessionToken(now time.Time) string {
	return fmt.Sprintf("gym_%d_%s", now.UnixMilli(), randomHex(8))
}

func isStructuredToken(token string) bool {
	return strings.Count(token, ".") == 2
}

// structuredTokenExpired reads the exp claim without verifying the signature;
// these tokens were issued by a service that no longer exists. Unparsable
// tokens count as expired, a missing exp does not.
func structuredTokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}
	return exp.Before(now)
}
