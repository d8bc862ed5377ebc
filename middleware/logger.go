package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/BerniceZTT/followup_ledger/utils"

	"github.com/gin-gonic/gin"
)

// bodyLogWriter 用于记录响应内容
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现 ResponseWriter 接口
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// readBody 读取请求体后放回，后续处理器仍可读取
func readBody(c *gin.Context) []byte {
	if c.Request.Body == nil {
		return nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("读取请求体失败")
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	return body
}

// Logger 请求/响应日志中间件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		headers := make(map[string]string)
		for k, v := range c.Request.Header {
			if len(v) > 0 {
				headers[k] = v[0]
			}
		}
		entry := utils.ApiRequestLog{
			Method:   c.Request.Method,
			Route:    c.FullPath(),
			URL:      c.Request.URL.Path,
			ClientID: c.Param("id"),
			Params:   c.Request.URL.Query(),
			Body:     string(readBody(c)),
			Headers:  headers,
		}

		blw := &bodyLogWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBufferString(""),
		}
		c.Writer = blw

		utils.LogApiRequest(entry)

		c.Next()

		utils.LogApiResponse(entry, c.Writer.Status(), time.Since(start), blw.body.String())
	}
}

// Recovery 恢复中间件
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.Logger.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("服务崩溃")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "服务器内部错误",
			"code":    "INTERNAL_ERROR",
		})
	})
}
