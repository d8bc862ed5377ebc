package middleware

import (
	"net/http"
	"strings"

	"github.com/BerniceZTT/followup_ledger/models"
	"github.com/BerniceZTT/followup_ledger/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 校验身份提供方签发的 Bearer token，并把会话放入上下文
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		utils.Logger.Debug().
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("authorization", getShortAuthHeader(authHeader)).
			Msg("验证请求")

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if !strings.HasPrefix(authHeader, "Bearer ") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "未授权访问",
				"code":    "MISSING_TOKEN",
			})
			return
		}

		session, err := utils.ParseToken(token, secret)
		if err != nil {
			utils.Logger.Info().Err(err).Msg("Token验证失败")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "无效的token: " + err.Error(),
				"code":    "INVALID_TOKEN",
			})
			return
		}

		c.Set(utils.SessionKey, session)
		utils.Logger.Debug().
			Str("actorId", session.ActorID).
			Str("role", string(session.Role)).
			Msg("验证成功")

		c.Next()
	}
}

// RequireRoles 只允许指定角色访问
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		session, err := utils.GetSession(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "用户未认证",
				"code":    "UNAUTHENTICATED",
			})
			return
		}
		if !allowed[session.Role] {
			utils.Logger.Info().
				Str("actorId", session.ActorID).
				Str("role", string(session.Role)).
				Str("path", c.Request.URL.Path).
				Msg("权限不足")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "权限不足",
				"code":    "INSUFFICIENT_PERMISSION",
			})
			return
		}
		c.Next()
	}
}

// getShortAuthHeader 获取截断的授权头，保护敏感信息
func getShortAuthHeader(header string) string {
	if len(header) > 15 {
		return header[:15] + "..."
	}
	return header
}
