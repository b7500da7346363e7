package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"webmail/backend/internal/auth"
	"webmail/backend/internal/domain"
)

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest   = "请求参数格式错误"
	MsgRequestBodyEmpty = "请求体不能为空"

	// 认证相关
	MsgAuthRequired       = "需要登录认证"
	MsgInvalidCredentials = "邮箱或密码错误"
	MsgUserInactive       = "账户已停用"
	MsgTokenExpired       = "登录已过期，请重新登录"
	MsgTokenInvalid       = "无效的访问令牌"
	MsgPermissionDenied   = "权限不足"

	// 外部依赖
	MsgExternalError = "外部服务暂时不可用，请稍后重试"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)

// RespondError 按错误类别映射 HTTP 状态码：
// 校验 400、冲突 409、不存在 404、外部依赖 502，其余一律 500。
// 外部依赖的底层错误只进日志，不透给前端。
func RespondError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		BadRequest(c, ve.Detail)
		return
	}

	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		Conflict(c, ce.Detail)
		return
	}

	var ne *domain.NotFoundError
	if errors.As(err, &ne) {
		NotFound(c, notFoundMessage(ne.Resource))
		return
	}

	var ee *domain.ExternalError
	if errors.As(err, &ee) {
		BadGateway(c, MsgExternalError)
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(c, MsgInvalidCredentials)
	case errors.Is(err, auth.ErrUserInactive):
		Forbidden(c, MsgUserInactive)
	case errors.Is(err, auth.ErrUserNotFound):
		NotFound(c, "用户不存在")
	default:
		InternalError(c, MsgInternalError)
	}
}

// notFoundMessage 资源类型 -> 中文消息
func notFoundMessage(resource string) string {
	switch resource {
	case "domain":
		return "域名不存在"
	case "user":
		return "用户不存在"
	case "message":
		return "邮件不存在"
	default:
		return "资源不存在"
	}
}
