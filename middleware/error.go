package middleware

import (
	"github.com/BerniceZTT/followup_ledger/utils"

	"github.com/gin-gonic/gin"
)

// ErrorHandler 处理通过 c.Error 登记但尚未写出响应的错误
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		utils.HandleError(c, c.Errors.Last().Err)
	}
}
