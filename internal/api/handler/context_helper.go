package handler

import (
	"github.com/gin-gonic/gin"

	pkgerrors "shift-handover/pkg/errors"
	"shift-handover/pkg/jwt"
	"shift-handover/pkg/response"
)

// MustGetEmployeeCode 从 Gin 上下文中安全提取管理员工号。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetEmployeeCode(c *gin.Context) (string, bool) {
	v, exists := c.Get("employee_code")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 从 Gin 上下文中提取当前 Token 的 Claims（注销时使用 jti 与剩余有效期）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("token_claims")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// handleStorageError 存储层错误的兜底映射：瞬时错误 503，其余 500
func handleStorageError(c *gin.Context, err error) {
	if pkgerrors.IsRetryable(err) {
		response.ServiceUnavailable(c, 50301, "系统繁忙，请稍后重试")
		return
	}
	_ = c.Error(err)
	response.InternalError(c)
}
