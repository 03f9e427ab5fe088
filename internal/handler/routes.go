package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/iqrolife/iqrolife-api/internal/middleware"
	"github.com/iqrolife/iqrolife-api/internal/models"
)

type auditSink interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// Routes groups the handlers mounted on the engine. Nil handlers are skipped.
type Routes struct {
	APIPrefix     string
	Authenticator *middleware.Authenticator
	Audit         auditSink

	Auth      *AuthHandler
	Menus     *MenuHandler
	Roles     *RoleHandler
	Users     *UserHandler
	AuditLogs *AuditHandler
	Proxy     *ProxyHandler
	Metrics   *MetricsHandler

	Dashboard       *DashboardHandler
	DashboardPrefix string
	DashboardGuard  middleware.DashboardGuardConfig
}

// Register mounts every configured route on r.
func (rt Routes) Register(r *gin.Engine) {
	if rt.Metrics != nil {
		r.GET("/health", rt.Metrics.Health)
		r.GET("/ready", rt.Metrics.Ready)
		r.GET("/metrics", rt.Metrics.Prometheus)
	}

	prefix := rt.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	requireSession := rt.Authenticator.RequireSession()

	if rt.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/login", rt.Auth.Login)
		auth.GET("/session", rt.Auth.Session)
		auth.POST("/session/refresh", rt.Auth.RefreshSession)
		auth.POST("/logout", rt.Auth.Logout)
		auth.POST("/forgot-password", rt.Auth.ForgotPassword)
		auth.POST("/reset-password", rt.Auth.ResetPassword)
		auth.POST("/change-password", requireSession, rt.Auth.ChangePassword)
		auth.PUT("/profile", requireSession, rt.Auth.UpdateProfile)
	}

	if rt.Menus != nil {
		menus := api.Group("/menus", requireSession)
		menus.GET("/visible", middleware.WithResponseMeta(), rt.Menus.Visible)
		admin := menus.Group("", middleware.RequirePermission(models.PermManageMenu))
		admin.GET("", rt.Menus.List)
		admin.GET("/:id", rt.Menus.Get)
		admin.POST("", rt.Menus.Create)
		admin.PUT("/:id", rt.Menus.Update)
		admin.DELETE("/:id", rt.Menus.Delete)
	}

	if rt.Roles != nil {
		roles := api.Group("/roles", requireSession, middleware.RequirePermission(models.PermManageRoles))
		roles.GET("", rt.Roles.List)
		roles.GET("/preview/:label", rt.Roles.Preview)
		roles.GET("/:id", rt.Roles.Get)
		roles.POST("", rt.Roles.Create)
		roles.PUT("/:id", rt.Roles.Update)
		roles.DELETE("/:id", rt.Roles.Delete)
	}

	if rt.Users != nil {
		users := api.Group("/users", requireSession, middleware.RequirePermission(models.PermManageUsers))
		users.GET("", rt.Users.List)
		users.GET("/:id", rt.Users.Get)
		users.POST("", rt.Users.Create)
		users.PUT("/:id", rt.Users.Update)
		users.DELETE("/:id", rt.Users.Delete)
	}

	if rt.AuditLogs != nil {
		logs := api.Group("/audit-logs", requireSession, middleware.RequirePermission(models.PermAccessAll))
		logs.GET("", rt.AuditLogs.List)
		logs.POST("/exports", rt.AuditLogs.Export)
		api.GET("/exports/:token", rt.AuditLogs.Download)
	}

	if rt.Proxy != nil {
		handlers := []gin.HandlerFunc{requireSession}
		if rt.Audit != nil {
			handlers = append(handlers, middleware.Audit(rt.Audit, models.AuditActionBackendWrite, "backend"))
		}
		handlers = append(handlers, rt.Proxy.Forward)
		api.Any("/backend/*path", handlers...)
	}

	if rt.Dashboard != nil {
		dashPrefix := strings.TrimRight(rt.DashboardPrefix, "/")
		if dashPrefix == "" {
			dashPrefix = "/dashboard"
		}
		guard := rt.Authenticator.DashboardGuard(rt.DashboardGuard)
		r.GET(dashPrefix, guard, rt.Dashboard.Serve)
		r.GET(dashPrefix+"/*path", guard, rt.Dashboard.Serve)
	}
}
