package domain

import (
	"errors"
	"fmt"
)

// 业务错误分为四类，传输层按类别映射 HTTP 状态码：
// 校验失败 400、资源冲突 409、资源不存在 404、外部依赖故障 502。

// ValidationError 输入校验失败
type ValidationError struct {
	Field  string // 出错的字段
	Detail string // 面向用户的描述
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// NewValidationError 构造校验错误
func NewValidationError(field, detail string) *ValidationError {
	return &ValidationError{Field: field, Detail: detail}
}

// ConflictError 资源已存在或状态冲突
type ConflictError struct {
	Resource string // 冲突的资源类型
	Detail   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Detail)
}

// NewConflictError 构造冲突错误
func NewConflictError(resource, detail string) *ConflictError {
	return &ConflictError{Resource: resource, Detail: detail}
}

// NotFoundError 资源不存在
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError 构造资源不存在错误
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ExternalError 外部依赖（凭证系统、DNS 解析等）调用失败。
// Err 保留底层错误供日志排查，不向前端暴露。
type ExternalError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// NewExternalError 包装外部依赖错误
func NewExternalError(service, op string, err error) *ExternalError {
	return &ExternalError{Service: service, Op: op, Err: err}
}

// IsValidation 判断是否校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict 判断是否冲突错误
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound 判断是否资源不存在错误
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsExternal 判断是否外部依赖错误
func IsExternal(err error) bool {
	var ee *ExternalError
	return errors.As(err, &ee)
}
