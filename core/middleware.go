package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const sessionName = "gym_session"
const defaultSessionMaxAge = 18000 // 5h

// NewSessionBackend builds the configured gorilla store. The cookie backend
// signs with SESSION_KEY and encrypts with a key derived from it.
func NewSessionBackend(cfg Config, client redis.UniversalClient) (sessions.Store, error) {
	hashKey := []byte(cfg.SessionKey)
	blockKey := sha256.Sum256(hashKey)
	switch strings.ToLower(cfg.SessionBackend) {
	case "", "cookie":
		store := sessions.NewCookieStore(hashKey, blockKey[:])
		store.MaxAge(cfg.sessionMaxAge())
		return store, nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis session backend requires REDIS_URL")
		}
		store := NewRedisStore(client, hashKey)
		store.MaxAge(cfg.sessionMaxAge())
		return store, nil
	default:
		return nil, errors.New("unknown SESSION_BACKEND " + cfg.SessionBackend)
	}
}

// SessionMiddleware ensures a session exists and applies consistent cookie options.
// An unreadable cookie starts a fresh session; a backend outage marks the
// session pending so the gate answers "loading" instead of "logged out".
func SessionMiddleware(cfg Config, store sessions.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending := false
		session, err := store.Get(c.Request, sessionName)
		if err != nil {
			if errors.Is(err, ErrSessionBackend) {
				pending = true
				logger.Warn("session backend unavailable", "error", err)
			} else {
				logger.Debug("discarding unreadable session cookie", "error", err)
				session = sessions.NewSession(store, sessionName)
				session.IsNew = true
			}
		}
		if session == nil {
			session = sessions.NewSession(store, sessionName)
			session.IsNew = true
		}

		applySessionOptions(cfg, session)
		if !pending {
			// Save to ensure options are persisted even for anonymous users.
			if err := session.Save(c.Request, c.Writer); err != nil {
				if !errors.Is(err, ErrSessionBackend) {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to persist session")
					c.Abort()
					return
				}
				pending = true
				logger.Warn("session backend unavailable", "error", err)
			}
		}

		c.Set(ctxSession, session)
		c.Set(ctxSessionPending, pending)
		c.Next()
	}
}

// OriginRefererMiddleware validates Origin/Referer against allowed list and sets CORS headers.
func OriginRefererMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			// Same-origin navigation (no Origin header) is allowed.
			return true
		}
		if len(allowed) == 0 {
			return false
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		referer := c.GetHeader("Referer")
		if origin == "" && referer != "" {
			if u, err := url.Parse(referer); err == nil {
				origin = u.Scheme + "://" + u.Host
			}
		}

		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Credentials", "true")
	c.Header("Access-Control-Allow-Headers", "Content-Type, X-CSRF-Token")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
}

// CSRFMiddleware issues and validates a per-session CSRF token.
func CSRFMiddleware(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessionFrom(c)
		if session == nil || c.GetBool(ctxSessionPending) {
			if isSafeMethod(c.Request.Method) || csrfExemptPath(c.Request.URL.Path) {
				c.Next()
				return
			}
			c.Header("Retry-After", "1")
			respondError(c, http.StatusServiceUnavailable, "SESSION_PENDING", "session is still loading, retry shortly")
			c.Abort()
			return
		}

		token, _ := session.Values[sessionKeyCSRF].(string)
		if token == "" {
			var err error
			token, err = generateCSRFToken()
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to issue csrf token")
				c.Abort()
				return
			}
			session.Values[sessionKeyCSRF] = token
			applySessionOptions(cfg, session)
			if err := session.Save(c.Request, c.Writer); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to persist session")
				c.Abort()
				return
			}
		}

		if !isSafeMethod(c.Request.Method) && !csrfExemptPath(c.Request.URL.Path) {
			header := c.GetHeader("X-CSRF-Token")
			if header == "" || header != token {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "invalid csrf token")
				c.Abort()
				return
			}
		}

		// Expose token so frontend can read and reuse.
		c.Writer.Header().Set("X-CSRF-Token", token)
		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

// Paths that intentionally skip CSRF validation (e.g., login).
func csrfExemptPath(path string) bool {
	switch path {
	case "/api/v1/auth/login":
		return true
	default:
		return false
	}
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func applySessionOptions(cfg Config, session *sessions.Session) {
	if session.Options == nil {
		session.Options = &sessions.Options{}
	}
	session.Options.Path = "/"
	session.Options.MaxAge = cfg.sessionMaxAge()
	session.Options.HttpOnly = true
	session.Options.Secure = cfg.CookieSecure
	session.Options.SameSite = sameSiteFromString(cfg.CookieSameSite)
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}
