package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Principal is the authenticated actor kept in the session. It is a snapshot,
// not a live view of the users table.
type Principal struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoginPath is where clients are sent when no session exists.
const LoginPath = "/login"

var (
	// ErrValidation is returned when identifier or password is blank.
	ErrValidation = errors.New("email or phone number and password are required")
	// ErrInvalidCredentials covers unknown identifiers, wrong passwords and
	// malformed rows alike so callers cannot tell which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email/phone or password")
	// ErrAccountDisabled is returned for rows whose active flag is false.
	ErrAccountDisabled = errors.New("account is disabled, contact a gym administrator")
	// ErrService marks data-layer faults that are not "no such row".
	ErrService = errors.New("authentication service unavailable")

	ErrUserNotFound        = errors.New("user not found")
	ErrAmbiguousIdentifier = errors.New("identifier matches more than one user")
	ErrDuplicateUser       = errors.New("email or phone number already registered")
)

// ServiceError wraps a lookup failure that points at misconfiguration
// (access policy, connectivity) rather than a user mistake.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return ErrService.Error() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// IdentifierKind says which column a login identifier is matched against.
type IdentifierKind string

const (
	IdentifierEmail IdentifierKind = "email"
	IdentifierPhone IdentifierKind = "phone"
)

// Identifier is a classified login identifier.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// ClassifyIdentifier treats anything containing '@' as an email.
func ClassifyIdentifier(raw string) Identifier {
	v := strings.TrimSpace(raw)
	if strings.Contains(v, "@") {
		return Identifier{Kind: IdentifierEmail, Value: v}
	}
	return Identifier{Kind: IdentifierPhone, Value: v}
}

// LoginState is a step of a single login attempt.
type LoginState string

const (
	StateIdle        LoginState = "idle"
	StateValidating  LoginState = "validating"
	StateQuerying    LoginState = "querying"
	StateVerifying   LoginState = "verifying"
	StateEstablished LoginState = "established"
	StateFailed      LoginState = "failed"
)

// LoginAttempt records how one attempt progressed. Established and Failed are
// terminal; a failed attempt is never resumed.
type LoginAttempt struct {
	State     LoginState
	Trace     []LoginState
	Kind      IdentifierKind
	Principal *Principal
	Err       error
}

func newLoginAttempt() *LoginAttempt {
	return &LoginAttempt{State: StateIdle, Trace: []LoginState{StateIdle}}
}

func (a *LoginAttempt) advance(next LoginState) {
	if a.terminal() {
		return
	}
	a.State = next
	a.Trace = append(a.Trace, next)
}

func (a *LoginAttempt) fail(err error) *LoginAttempt {
	a.Err = err
	a.advance(StateFailed)
	return a
}

func (a *LoginAttempt) terminal() bool {
	return a.State == StateEstablished || a.State == StateFailed
}

// Authenticator is the login contract consumed by the HTTP layer.
type Authenticator interface {
	Login(ctx context.Context, store *SessionStore, identifier, secret string) (Principal, error)
	Logout(store *SessionStore) string
	Restore(store *SessionStore) (*Principal, bool)
}
