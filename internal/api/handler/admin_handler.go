package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shift-handover/internal/dto"
	"shift-handover/internal/service"
	"shift-handover/pkg/redis"
	"shift-handover/pkg/response"
)

// AdminHandler 管理端 HTTP 处理器
type AdminHandler struct {
	adminSvc service.AdminService
	rdb      *redis.Client
	logger   *zap.Logger
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(adminSvc service.AdminService, rdb *redis.Client, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, rdb: rdb, logger: logger}
}

// RevokeReceive 撤销接收，交接单回到 Pending
// DELETE /api/v1/admin/handovers/:id/receive
func (h *AdminHandler) RevokeReceive(c *gin.Context) {
	operator, ok := MustGetEmployeeCode(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "交接单号不能为空")
		return
	}

	if err := h.adminSvc.RevokeReceive(c.Request.Context(), id, operator); err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OK(c, nil)
}

// DeleteHandover 删除交接单（接收记录级联删除）
// DELETE /api/v1/admin/handovers/:id
func (h *AdminHandler) DeleteHandover(c *gin.Context) {
	operator, ok := MustGetEmployeeCode(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "交接单号不能为空")
		return
	}

	if err := h.adminSvc.DeleteHandover(c.Request.Context(), id, operator); err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListRecent 最近提交的交接单
// GET /api/v1/admin/handovers?limit=
func (h *AdminHandler) ListRecent(c *gin.Context) {
	var q dto.RecentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.adminSvc.ListRecent(c.Request.Context(), &q)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// Logout 注销当前管理端 Token：jti 写入黑名单直至过期
// POST /api/v1/admin/logout
func (h *AdminHandler) Logout(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}

	if h.rdb == nil {
		response.ServiceUnavailable(c, 23004, "黑名单服务不可用")
		return
	}
	if ttl := claims.RemainingTTL(); ttl > 0 {
		if err := h.rdb.BlacklistToken(c.Request.Context(), claims.ID, ttl); err != nil {
			h.logger.Error("写入 Token 黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
			response.ServiceUnavailable(c, 23004, "注销失败，请稍后重试")
			return
		}
	}

	response.OK(c, nil)
}

func (h *AdminHandler) handleAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHandoverNotFound):
		response.NotFound(c, 23001, err.Error())
	case errors.Is(err, service.ErrHandoverNotReceived):
		response.Conflict(c, 23002, err.Error(), nil)
	default:
		handleStorageError(c, err)
	}
}
