package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shift-handover/internal/dto"
	"shift-handover/internal/service"
	"shift-handover/pkg/response"
)

// DashboardHandler 看板模块 HTTP 处理器（只读，不加锁）
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// GetDashboard 看板：某日交接单及接收情况
// GET /api/v1/dashboard?date=&line=
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	var q dto.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.dashboardSvc.ListDashboard(c.Request.Context(), &q)
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}

	response.OK(c, result)
}

// GetCombined 交接/接班合并视图
// GET /api/v1/dashboard/combined?from=&to=&line=&status=
func (h *DashboardHandler) GetCombined(c *gin.Context) {
	var q dto.CombinedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.dashboardSvc.ListCombined(c.Request.Context(), &q)
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *DashboardHandler) handleDashboardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 22001, err.Error())
	default:
		handleStorageError(c, err)
	}
}
