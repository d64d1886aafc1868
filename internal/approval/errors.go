package approval

import (
	"errors"
	"fmt"

	"backend/internal/common"
)

// Kind 业务错误类别
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"  // 缺少有效的调用者身份
	KindNotFound     Kind = "not_found"     // 资源不存在或不属于当前组织
	KindForbidden    Kind = "forbidden"     // 身份有效但缺少所需角色/关系
	KindInvalidState Kind = "invalid_state" // 当前数据状态下不允许该操作
	KindValidation   Kind = "validation"    // 请求参数不合法
)

// Error 审批域业务错误，携带类别、业务码与可展示消息
type Error struct {
	Kind    Kind
	Code    int // 业务状态码，见 internal/common 的码表
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// WithCode 覆盖类别默认业务码
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// defaultCode 类别对应的默认业务码
func defaultCode(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return common.CodeUnauthorized
	case KindNotFound:
		return common.CodeNotFound
	case KindForbidden:
		return common.CodeForbidden
	case KindInvalidState:
		return common.CodeInvalidState
	case KindValidation:
		return common.CodeValidationFailed
	}
	return common.CodeInternalError
}

// NewError 创建指定类别的业务错误
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: defaultCode(kind), Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthorized 未认证错误
func ErrUnauthorized(format string, args ...any) *Error {
	return NewError(KindUnauthorized, format, args...)
}

// ErrNotFound 资源不存在错误
// 跨组织访问也返回此错误，避免泄露资源是否存在
func ErrNotFound(format string, args ...any) *Error {
	return NewError(KindNotFound, format, args...)
}

// ErrForbidden 权限不足错误
func ErrForbidden(format string, args ...any) *Error {
	return NewError(KindForbidden, format, args...)
}

// ErrInvalidState 状态不合法错误，消息需包含当前状态值
func ErrInvalidState(format string, args ...any) *Error {
	return NewError(KindInvalidState, format, args...)
}

// ErrValidation 参数校验错误
func ErrValidation(format string, args ...any) *Error {
	return NewError(KindValidation, format, args...)
}

// KindOf 提取错误类别，非业务错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound 判断是否为资源不存在错误
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsForbidden 判断是否为权限不足错误
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsInvalidState 判断是否为状态不合法错误
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }

// IsValidation 判断是否为参数校验错误
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
