package service

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BerniceZTT/followup_ledger/repository"
	"github.com/BerniceZTT/followup_ledger/utils"

	"github.com/gin-gonic/gin"
)

// 冲突错误码
const (
	CodeFollowUpPending  = "FOLLOW_UP_PENDING"
	CodeNoFollowUp       = "NO_FOLLOW_UP"
	CodeConcurrentUpdate = "CONCURRENT_UPDATE"
)

// PastDateError 预约时间不在未来
type PastDateError struct {
	At  time.Time
	Now time.Time
}

func (e *PastDateError) Error() string {
	return fmt.Sprintf("不能预约过去的时间: %s", e.At.UTC().Format(time.RFC3339))
}

// ApiError 转换为API错误
func (e *PastDateError) ApiError() *utils.ApiError {
	return utils.NewApiError(e.Error(), http.StatusBadRequest, "PAST_DATE")
}

// NotFoundError 客户或记录不存在
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s不存在: %s", e.Resource, e.ID)
}

// ApiError 转换为API错误
func (e *NotFoundError) ApiError() *utils.ApiError {
	return utils.NewApiError(e.Error(), http.StatusNotFound, "RESOURCE_NOT_FOUND")
}

// ConflictError 当前状态不允许该操作
type ConflictError struct {
	Code        string
	Reason      string
	Resolutions []Resolution
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// ApiError 转换为API错误，待处理跟进会附带可选的处理方式
func (e *ConflictError) ApiError() *utils.ApiError {
	apiErr := utils.NewApiError(e.Reason, http.StatusConflict, e.Code)
	if len(e.Resolutions) > 0 {
		apiErr.Details = gin.H{"resolutions": e.Resolutions}
	}
	return apiErr
}

// ValidationError 请求字段不合法
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ApiError 转换为API错误
func (e *ValidationError) ApiError() *utils.ApiError {
	apiErr := utils.NewApiError(e.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
	apiErr.Details = gin.H{"field": e.Field}
	return apiErr
}

// ForbiddenError 当前会话无权执行操作
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

// ApiError 转换为API错误
func (e *ForbiddenError) ApiError() *utils.ApiError {
	return utils.NewApiError(e.Reason, http.StatusForbidden, "FORBIDDEN")
}

func pendingFollowUpError() *ConflictError {
	return &ConflictError{
		Code:        CodeFollowUpPending,
		Reason:      "客户已有进行中或已逾期的跟进，请先完成、标记流失或取消后再预约",
		Resolutions: Resolutions(),
	}
}

// translateStoreError 把存储层错误转换为业务错误
func translateStoreError(err error, clientID string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{Resource: "客户", ID: clientID}
	case errors.Is(err, repository.ErrVersionConflict):
		return &ConflictError{Code: CodeConcurrentUpdate, Reason: "客户记录已被其他操作修改，请刷新后重试"}
	case errors.Is(err, repository.ErrLiveFollowUpExists):
		return pendingFollowUpError()
	}
	return err
}
