package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ApiError 自定义API错误
type ApiError struct {
	StatusCode int
	Message    string
	ErrorCode  string
	Details    gin.H
}

// Error 实现error接口
func (e *ApiError) Error() string {
	return e.Message
}

// NewApiError 创建API错误
func NewApiError(message string, statusCode int, errorCode string) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    message,
		ErrorCode:  errorCode,
	}
}

// ApiErrorer 可以转换为API错误的业务错误
type ApiErrorer interface {
	ApiError() *ApiError
}

// CreateNotFoundError 创建资源不存在错误
func CreateNotFoundError(resource string) *ApiError {
	return NewApiError(resource+"不存在", http.StatusNotFound, "RESOURCE_NOT_FOUND")
}

// CreateUnauthorizedError 创建未授权错误
func CreateUnauthorizedError() *ApiError {
	return NewApiError("未授权访问", http.StatusUnauthorized, "UNAUTHORIZED")
}

// CreateBadRequestError 创建错误请求错误
func CreateBadRequestError(message string) *ApiError {
	return NewApiError(message, http.StatusBadRequest, "BAD_REQUEST")
}

// ToApiError 把任意错误转换为API错误，未知错误视为500
func ToApiError(err error) *ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var convertible ApiErrorer
	if errors.As(err, &convertible) {
		return convertible.ApiError()
	}
	return NewApiError(err.Error(), http.StatusInternalServerError, "INTERNAL_ERROR")
}

// HandleError 处理错误并返回适当的响应
func HandleError(c *gin.Context, err error) {
	if c == nil || err == nil {
		return
	}

	apiErr := ToApiError(err)
	context := map[string]interface{}{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"status": apiErr.StatusCode,
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		LogError(err, context, "API错误")
	} else {
		LogInfo(context, "请求被拒绝: "+apiErr.Message)
	}

	response := gin.H{"success": false, "error": apiErr.Message}
	if apiErr.ErrorCode != "" {
		response["code"] = apiErr.ErrorCode
	}
	for k, v := range apiErr.Details {
		response[k] = v
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, response)
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, data interface{}, message string, statusCode ...int) {
	code := http.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	response := gin.H{"success": true}
	if data != nil {
		response["data"] = data
	}
	if message != "" {
		response["message"] = message
	}

	c.JSON(code, response)
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, message string, statusCode int) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   message,
	})
}
