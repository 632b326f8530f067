package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campuskit/iam-service/internal/infra/config"
	"github.com/campuskit/iam-service/internal/transport/http/handlers"
	"github.com/campuskit/iam-service/internal/transport/http/middleware"
	"github.com/campuskit/iam-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Sessions    *usecase.SessionService
	Invitations *usecase.InvitationService
	Roles       *usecase.RoleService
	Permissions *usecase.PermissionService
	Subjects    *usecase.SubjectService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))

	if metrics, err := middleware.NewHTTPMetrics(nil, "iam"); err != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Sessions)
	adminMiddleware := middleware.RequireAdmin(deps.Services.Sessions)

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Sessions)
		authHandler.RegisterRoutes(authGroup, buildLoginMiddlewares(deps)...)

		invitationHandler := handlers.NewInvitationHandler(deps.Services.Invitations)
		invitationHandler.RegisterPublicRoutes(api, buildAcceptMiddlewares(deps)...)

		invitationGroup := api.Group("/invitations")
		invitationGroup.Use(authMiddleware, adminMiddleware)
		invitationHandler.RegisterAdminRoutes(invitationGroup, buildInviteMiddlewares(deps)...)

		rolesGroup := api.Group("/roles")
		rolesGroup.Use(authMiddleware, adminMiddleware)
		roleHandler := handlers.NewRoleHandler(deps.Services.Roles)
		roleHandler.RegisterRoutes(rolesGroup)

		permissionsGroup := api.Group("/permissions")
		permissionsGroup.Use(authMiddleware, adminMiddleware)
		permissionHandler := handlers.NewPermissionHandler(deps.Services.Permissions)
		permissionHandler.RegisterRoutes(permissionsGroup)

		subjectsGroup := api.Group("/subjects")
		subjectsGroup.Use(authMiddleware, adminMiddleware)
		subjectHandler := handlers.NewSubjectHandler(deps.Services.Subjects, deps.Services.Roles)
		subjectHandler.RegisterRoutes(subjectsGroup)
	}

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	return buildIPRateLimit(deps, "auth_login_ip", deps.rateLimitConfig().LoginMaxAttempts)
}

func buildAcceptMiddlewares(deps Dependencies) []gin.HandlerFunc {
	return buildIPRateLimit(deps, "invitation_accept_ip", deps.rateLimitConfig().AcceptMaxAttempts)
}

func buildInviteMiddlewares(deps Dependencies) []gin.HandlerFunc {
	return buildIPRateLimit(deps, "invitation_create_ip", deps.rateLimitConfig().InviteMaxAttempts)
}

func (d Dependencies) rateLimitConfig() config.RateLimitSettings {
	if d.Config == nil {
		return config.RateLimitSettings{}
	}
	return d.Config.RateLimit
}

func buildIPRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return nil
	}

	window := deps.rateLimitConfig().WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
