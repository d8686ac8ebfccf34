package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

// Session value keys shared with the dashboard front end.
const (
	sessionKeyUser         = "authUser"
	sessionKeyToken        = "authToken"
	sessionKeyRefreshToken = "refreshToken"
	sessionKeyCSRF         = "csrf_token"
)

// sessionRevoker is implemented by server-side stores that can drop a
// session record by id.
type sessionRevoker interface {
	Revoke(ctx context.Context, id string) error
}

// SessionStore is a typed view over the auth keys of a gorilla session.
// Getters never fail: malformed values are logged and reported as absent.
type SessionStore struct {
	session *sessions.Session
	logger  *slog.Logger
	dirty   bool
}

func NewSessionStore(session *sessions.Session, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{session: session, logger: logger}
}

func (s *SessionStore) SetPrincipal(p Principal) {
	b, err := json.Marshal(p)
	if err != nil {
		s.logger.Error("encode session principal", "error", err)
		return
	}
	s.session.Values[sessionKeyUser] = string(b)
	s.dirty = true
}

// Principal returns nil when the snapshot is missing, unreadable or carries
// an unknown role.
func (s *SessionStore) Principal() *Principal {
	raw, ok := s.session.Values[sessionKeyUser].(string)
	if !ok || raw == "" {
		return nil
	}
	var p Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("decode session principal", "error", err)
		return nil
	}
	if !p.Role.Valid() {
		s.logger.Warn("session principal has unknown role", "role", p.Role)
		return nil
	}
	return &p
}

func (s *SessionStore) SetSessionToken(token string) {
	s.session.Values[sessionKeyToken] = token
	s.dirty = true
}

func (s *SessionStore) SessionToken() (string, bool) {
	tok, ok := s.session.Values[sessionKeyToken].(string)
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

// Clear removes every auth key. Other session values (the csrf token) stay.
func (s *SessionStore) Clear() {
	for _, k := range []string{sessionKeyUser, sessionKeyToken, sessionKeyRefreshToken} {
		if _, ok := s.session.Values[k]; ok {
			delete(s.session.Values, k)
			s.dirty = true
		}
	}
}

// Renew gives the session a new identity: the server-side record under the
// old id is dropped, the next Save mints a new id and the csrf token is
// replaced. Login calls it before writing the principal.
func (s *SessionStore) Renew(ctx context.Context) error {
	if rv, ok := s.session.Store().(sessionRevoker); ok && s.session.ID != "" {
		if err := rv.Revoke(ctx, s.session.ID); err != nil {
			return err
		}
	}
	s.session.ID = ""
	s.session.IsNew = true
	token, err := generateCSRFToken()
	if err != nil {
		return err
	}
	s.session.Values[sessionKeyCSRF] = token
	s.dirty = true
	return nil
}

// CSRFToken returns the token the client must echo in X-CSRF-Token.
func (s *SessionStore) CSRFToken() string {
	tok, _ := s.session.Values[sessionKeyCSRF].(string)
	return tok
}

// Dirty reports whether the values changed since the store was created or last saved.
func (s *SessionStore) Dirty() bool { return s.dirty }

func (s *SessionStore) Save(r *http.Request, w http.ResponseWriter) error {
	if err := s.session.Save(r, w); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
