package core

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// RouterDeps are the collaborators wired into the HTTP layer.
type RouterDeps struct {
	Store    sessions.Store
	Auth     Authenticator
	Users    UserRepository
	Verifier *CredentialVerifier
	Routes   *RoutePolicy
	Status   *StatusService
	Logger   *slog.Logger
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registerValidators()
	r := gin.Default()

	// Global middleware: origin/CORS -> session -> CSRF -> auth state
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, deps.Store, logger))
	r.Use(CSRFMiddleware(cfg))
	r.Use(AuthStateMiddleware(deps.Auth, logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Identifier string `json:"identifier"`
				Email      string `json:"email"`
				Phone      string `json:"phone"`
				Password   string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			identifier := firstNonEmpty(strings.TrimSpace(req.Identifier), strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone))

			store := sessionStoreFrom(c, logger)
			if store == nil {
				respondError(c, http.StatusServiceUnavailable, "SERVICE_ERROR", "session unavailable")
				return
			}
			user, err := deps.Auth.Login(c.Request.Context(), store, identifier, req.Password)
			if err != nil {
				respondLoginError(c, err)
				return
			}
			token, _ := store.SessionToken()
			if err := store.Save(c.Request, c.Writer); err != nil {
				logger.Error("persist login session", "error", err)
				respondError(c, http.StatusServiceUnavailable, "SERVICE_ERROR", "failed to set session")
				return
			}
			c.Header("X-CSRF-Token", store.CSRFToken())

			c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
		})

		api.POST("/auth/logout", func(c *gin.Context) {
			store := sessionStoreFrom(c, logger)
			if store == nil {
				c.JSON(http.StatusOK, gin.H{"redirect": LoginPath})
				return
			}
			redirect := deps.Auth.Logout(store)
			if err := store.Save(c.Request, c.Writer); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
				return
			}
			c.JSON(http.StatusOK, gin.H{"redirect": redirect})
		})

		api.GET("/auth/session", func(c *gin.Context) {
			st := CurrentAuth(c)
			c.JSON(http.StatusOK, gin.H{
				"authenticated": st.Principal != nil,
				"pending":       st.Pending,
				"decision":      Evaluate(st).String(),
				"user":          st.Principal,
			})
		})

		authed := api.Group("", RequireLogin())

		authed.GET("/users/me", func(c *gin.Context) {
			p := CurrentAuth(c).Principal
			c.JSON(http.StatusOK, gin.H{
				"user":        p,
				"rank":        RankOf(p.Role),
				"permissions": p.Role.Permissions(),
			})
		})

		authed.GET("/navigation", func(c *gin.Context) {
			p := CurrentAuth(c).Principal
			c.JSON(http.StatusOK, gin.H{
				"items":  VisibleNavItems(p, DefaultNavItems),
				"routes": deps.Routes.Routes(p),
			})
		})

		authed.GET("/access", func(c *gin.Context) {
			route := strings.TrimSpace(c.Query("route"))
			if route == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "route is required")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"route":   route,
				"allowed": deps.Routes.CanAccess(CurrentAuth(c).Principal, route),
			})
		})

		admin := api.Group("/admin")
		admin.Use(RequireRole(RoleAdmin))

		admin.GET("/system/status", func(c *gin.Context) {
			st, err := deps.Status.Collect(c.Request.Context())
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load system status")
				return
			}
			c.JSON(http.StatusOK, st)
		})

		admin.GET("/users", func(c *gin.Context) {
			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			filter := UserFilter{Search: c.Query("search"), Page: page, PerPage: perPage}
			if v := strings.TrimSpace(c.Query("role")); v != "" && !strings.EqualFold(v, "all") {
				role, ok := ParseRole(v)
				if !ok {
					respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid role")
					return
				}
				filter.Role = role
			}
			if v := strings.TrimSpace(c.Query("active")); v != "" {
				active, err := strconv.ParseBool(v)
				if err != nil {
					respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "active must be true or false")
					return
				}
				filter.Active = &active
			}

			ctx := c.Request.Context()
			items, total, err := deps.Users.List(ctx, filter)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch users")
				return
			}
			stats, err := deps.Users.Stats(ctx)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch user stats")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"items":       items,
				"page":        page,
				"per_page":    perPage,
				"total_items": total,
				"total_pages": calcTotalPages(total, perPage),
				"stats":       stats,
			})
		})

		admin.POST("/users", func(c *gin.Context) {
			var req NewUserInput
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
				return
			}
			nu := req.NewUser()

			hash, err := deps.Verifier.HashSecret(req.Password)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to hash password")
				return
			}
			nu.PasswordHash = hash

			rec, err := deps.Users.Create(c.Request.Context(), nu)
			if err != nil {
				if errors.Is(err, ErrDuplicateUser) {
					respondError(c, http.StatusConflict, "CONFLICT", ErrDuplicateUser.Error())
					return
				}
				logger.Error("create user", "error", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create user")
				return
			}
			logger.Info("user created", "user_id", rec.ID, "role", nu.Role, "by", CurrentAuth(c).Principal.ID)

			c.JSON(http.StatusCreated, UserListItem{
				ID:        rec.ID,
				FirstName: rec.FirstName,
				LastName:  rec.LastName,
				Email:     rec.Email,
				Phone:     rec.Phone,
				Role:      displayRole(rec.Role),
				IsActive:  rec.IsActive,
				CreatedAt: rec.CreatedAt,
			})
		})

		admin.PATCH("/users/:id/active", func(c *gin.Context) {
			var req struct {
				IsActive *bool `json:"is_active"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "is_active is required")
				return
			}
			id := c.Param("id")
			actor := CurrentAuth(c).Principal
			if sameUserID(id, actor.ID) && !*req.IsActive {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "you cannot disable your own account")
				return
			}
			item, err := deps.Users.SetActive(c.Request.Context(), id, *req.IsActive)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update user")
				return
			}
			logger.Info("user active flag changed", "user_id", id, "active", item.IsActive, "by", actor.ID)
			c.JSON(http.StatusOK, item)
		})
	}

	return r
}

// respondLoginError maps the login error taxonomy onto HTTP statuses. The
// message for unknown users and wrong passwords is the same.
func respondLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", ErrValidation.Error())
	case errors.Is(err, ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", ErrInvalidCredentials.Error())
	case errors.Is(err, ErrAccountDisabled):
		respondError(c, http.StatusForbidden, "ACCOUNT_DISABLED", ErrAccountDisabled.Error())
	case errors.Is(err, ErrService):
		respondError(c, http.StatusServiceUnavailable, "SERVICE_ERROR", ErrService.Error()+", check the database connection and access policy")
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "login failed")
	}
}

// sameUserID compares ids the way the repository resolves them: any textual
// form of the same UUID matches.
func sameUserID(a, b string) bool {
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ua == ub
}

func parsePagination(pageStr, perPageStr string) (int, int, error) {
	page := 1
	perPage := defaultPerPage
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("page must be an integer of 1 or more")
		}
		page = p
	}
	if strings.TrimSpace(perPageStr) != "" {
		p, err := strconv.Atoi(perPageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("per_page must be an integer of 1 or more")
		}
		if p > maxPerPage {
			p = maxPerPage
		}
		perPage = p
	}
	return page, perPage, nil
}

func calcTotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
