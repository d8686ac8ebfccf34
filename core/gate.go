package core

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	ctxSession        = "session"
	ctxSessionPending = "session_pending"
	ctxSessionStore   = "session_store"
	ctxAuthState      = "auth_state"
)

// AuthState is the per-request view of who is signed in. Pending means the
// session could not be read yet and no decision should be made.
type AuthState struct {
	Pending   bool
	Principal *Principal
}

type GateDecision int

const (
	GateLoading GateDecision = iota
	GateRedirectLogin
	GateRender
)

func (d GateDecision) String() string {
	switch d {
	case GateLoading:
		return "loading"
	case GateRedirectLogin:
		return "redirect_login"
	case GateRender:
		return "render"
	default:
		return "unknown"
	}
}

// Evaluate decides what a protected view does for the given state.
func Evaluate(state AuthState) GateDecision {
	switch {
	case state.Pending:
		return GateLoading
	case state.Principal == nil:
		return GateRedirectLogin
	default:
		return GateRender
	}
}

// NavItem is an entry of the dashboard sidebar. Items with no roles are shown
// to every signed-in principal.
type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
	Roles []Role `json:"roles,omitempty"`
}

// DefaultNavItems is the dashboard sidebar.
var DefaultNavItems = []NavItem{
	{ID: "overview", Label: "Overview", Path: "/dashboard?tab=overview"},
	{ID: "members", Label: "Members", Path: "/dashboard?tab=members", Roles: []Role{RoleStaff, RoleManager, RoleAdmin}},
	{ID: "classes", Label: "Classes", Path: "/dashboard?tab=classes"},
	{ID: "staff", Label: "Staff", Path: "/dashboard?tab=staff", Roles: []Role{RoleManager, RoleAdmin}},
	{ID: "payments", Label: "Payments", Path: "/dashboard?tab=payments", Roles: []Role{RoleStaff, RoleManager, RoleAdmin}},
	{ID: "analytics", Label: "Analytics", Path: "/dashboard?tab=analytics", Roles: []Role{RoleManager, RoleAdmin}},
}

// VisibleNavItems filters items for p, keeping their order.
func VisibleNavItems(p *Principal, items []NavItem) []NavItem {
	out := make([]NavItem, 0, len(items))
	if p == nil {
		return out
	}
	for _, item := range items {
		if len(item.Roles) == 0 {
			out = append(out, item)
			continue
		}
		for _, r := range item.Roles {
			if HasRole(p, r) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// AuthStateMiddleware restores the principal from the request session and
// stores the resulting AuthState on the context. It must run after
// SessionMiddleware.
func AuthStateMiddleware(auth Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := AuthState{Pending: c.GetBool(ctxSessionPending)}
		if sess := sessionFrom(c); sess != nil && !state.Pending {
			store := NewSessionStore(sess, logger)
			state.Principal, _ = auth.Restore(store)
			if store.Dirty() {
				if err := store.Save(c.Request, c.Writer); err != nil {
					logger.Error("persist cleared session", "error", err)
				}
			}
			c.Set(ctxSessionStore, store)
		}
		c.Set(ctxAuthState, state)
		c.Next()
	}
}

// CurrentAuth returns the state set by AuthStateMiddleware. Without it the
// request is treated as anonymous.
func CurrentAuth(c *gin.Context) AuthState {
	v, ok := c.Get(ctxAuthState)
	if !ok {
		return AuthState{}
	}
	st, _ := v.(AuthState)
	return st
}

// RequireLogin answers 503 while the session is pending and 401 with the
// login redirect when nobody is signed in.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gateLogin(c) {
			return
		}
		c.Next()
	}
}

// RequireRole admits principals ranked at or above role.
func RequireRole(role Role) gin.HandlerFunc {
	return requirePrincipal(func(p *Principal) bool { return HasRole(p, role) })
}

func RequirePermission(perm Permission) gin.HandlerFunc {
	return requirePrincipal(func(p *Principal) bool { return HasPermission(p, perm) })
}

// RequireRoute admits principals whose role is listed for route.
func RequireRoute(policy *RoutePolicy, route string) gin.HandlerFunc {
	return requirePrincipal(func(p *Principal) bool { return policy.CanAccess(p, route) })
}

func requirePrincipal(allow func(*Principal) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gateLogin(c) {
			return
		}
		if !allow(CurrentAuth(c).Principal) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "insufficient role for this resource")
			c.Abort()
			return
		}
		c.Next()
	}
}

func gateLogin(c *gin.Context) bool {
	switch Evaluate(CurrentAuth(c)) {
	case GateLoading:
		c.Header("Retry-After", "1")
		respondError(c, http.StatusServiceUnavailable, "SESSION_PENDING", "session is still loading, retry shortly")
		c.Abort()
		return false
	case GateRedirectLogin:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":    gin.H{"code": "UNAUTHORIZED", "message": "login required"},
			"redirect": LoginPath,
		})
		return false
	}
	return true
}

func sessionFrom(c *gin.Context) *sessions.Session {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*sessions.Session)
	return sess
}

// sessionStoreFrom returns the store built by AuthStateMiddleware, or a new one
// over the request session.
func sessionStoreFrom(c *gin.Context, logger *slog.Logger) *SessionStore {
	if v, ok := c.Get(ctxSessionStore); ok {
		if store, ok := v.(*SessionStore); ok {
			return store
		}
	}
	sess := sessionFrom(c)
	if sess == nil {
		return nil
	}
	return NewSessionStore(sess, logger)
}
