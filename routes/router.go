package routes

import (
	"net/http"

	"github.com/BerniceZTT/followup_ledger/middleware"
	"github.com/BerniceZTT/followup_ledger/repository"
	"github.com/BerniceZTT/followup_ledger/service"
	"github.com/BerniceZTT/followup_ledger/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies 路由依赖
type Dependencies struct {
	Ledger *service.LedgerService
	Store  repository.Store
	JWTKey []byte
}

// protected 需要登录的接口统一经过认证和操作日志
func (d Dependencies) protected() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.AuthMiddleware(d.JWTKey),
		middleware.OperationLoggerMiddleware(d.Store),
	}
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	RegisterClientRoutes(router, deps)
	RegisterFollowUpRoutes(router, deps)
	RegisterDashboardRoutes(router, deps)

	// 健康检查路由
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 数据库状态检查路由
	router.GET("/api/db-status", func(c *gin.Context) {
		status, err := deps.Store.DatabaseStatus(c.Request.Context())
		if err != nil {
			utils.ErrorResponse(c, "获取数据库状态失败: "+err.Error(), http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		utils.HandleError(c, utils.CreateNotFoundError("接口 "+c.Request.Method+" "+c.Request.URL.Path))
	})
}
