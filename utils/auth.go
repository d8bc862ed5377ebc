package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/BerniceZTT/followup_ledger/models"

	"github.com/dgrijalva/jwt-go"
)

// GenerateToken 生成JWT令牌，正式环境由身份服务签发，此处用于联调和测试
func GenerateToken(session models.Session, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  session.ActorID,
		"name": session.Name,
		"role": string(session.Role),
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		Logger.Error().Err(err).Msg("生成token失败")
		return "", err
	}
	return tokenString, nil
}

// ParseToken 解析和验证JWT令牌，返回请求会话
func ParseToken(tokenString string, secret []byte) (*models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("无效的token")
	}

	return sessionFromClaims(claims)
}

// sessionFromClaims 从令牌负载提取会话信息
func sessionFromClaims(claims jwt.MapClaims) (*models.Session, error) {
	id, _ := claims["sub"].(string)
	if id == "" {
		return nil, errors.New("token缺少用户ID")
	}
	role, _ := claims["role"].(string)
	if !models.Role(role).IsValid() {
		return nil, fmt.Errorf("无效的用户角色: %q", role)
	}
	name, _ := claims["name"].(string)

	return &models.Session{
		ActorID: id,
		Name:    name,
		Role:    models.Role(role),
	}, nil
}
