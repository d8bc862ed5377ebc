package utils

import (
	"errors"
	"regexp"

	"github.com/BerniceZTT/followup_ledger/models"

	"github.com/gin-gonic/gin"
)

// SessionKey 会话在gin上下文中的键
const SessionKey = "session"

var nonDigit = regexp.MustCompile(`\D`)

// IsValidPhone 验证手机号是否有效（含区号10到11位数字）
func IsValidPhone(phone string) bool {
	cleaned := nonDigit.ReplaceAllString(phone, "")
	return len(cleaned) >= 10 && len(cleaned) <= 11
}

// GetSession 获取当前请求的会话
func GetSession(c *gin.Context) (models.Session, error) {
	value, exists := c.Get(SessionKey)
	if !exists {
		return models.Session{}, errors.New("未授权访问")
	}
	session, ok := value.(*models.Session)
	if !ok || session == nil {
		return models.Session{}, errors.New("会话格式无效")
	}
	return *session, nil
}
