package xerr

import "fmt"

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

// 常用预定义错误
var (
	ErrSuccess     = New(OK, "Success")
	ErrServerError = New(InternalServerError, "系统错误，请联系工作人员")
	ErrParam       = New(BadRequest, "参数错误")

	// 通知 / 会话领域常用错误
	ErrNotificationNotFound = New(NotFound, "通知不存在或已删除")
	ErrConversationNotFound = New(NotFound, "会话不存在")
	ErrEmptyMessage         = New(BadRequest, "消息内容和附件不能同时为空")
	ErrTooManyAttachments   = New(BadRequest, "单条消息最多携带 5 个附件")
)
