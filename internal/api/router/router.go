package router

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shift-handover/config"
	"shift-handover/internal/api/handler"
	"shift-handover/internal/api/middleware"
	"shift-handover/pkg/jwt"
	"shift-handover/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 写接口限流（每 IP 每分钟）
	writeLimit := middleware.RateLimit(rdb, cfg.Server.RateLimit, time.Minute, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 交班 / 接班（车间终端使用，无需登录）
		handovers := v1.Group("/handovers")
		{
			handovers.POST("", writeLimit, h.Handover.SubmitHandover)
			handovers.GET("/latest", h.Handover.GetLatestPending)
			handovers.GET("/next-id", writeLimit, h.Handover.NextID)
			handovers.GET("/:id", h.Handover.GetHandover)
			handovers.POST("/:id/claim", writeLimit, h.Claim.ClaimHandover)
			handovers.GET("/:id/status", h.Claim.GetStatus)
		}

		// 看板（合并视图数据量大，启用 gzip）
		dashboard := v1.Group("/dashboard")
		dashboard.Use(gzip.Gzip(gzip.DefaultCompression))
		{
			dashboard.GET("", h.Dashboard.GetDashboard)
			dashboard.GET("/combined", h.Dashboard.GetCombined)
		}

		// 管理端
		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(jwtMgr, rdb, logger), middleware.RoleAuth("admin"))
		{
			admin.GET("/handovers", h.Admin.ListRecent)
			admin.DELETE("/handovers/:id", h.Admin.DeleteHandover)
			admin.DELETE("/handovers/:id/receive", h.Admin.RevokeReceive)
			admin.POST("/logout", h.Admin.Logout)
		}
	}

	return r
}
