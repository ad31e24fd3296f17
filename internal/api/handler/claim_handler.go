package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shift-handover/internal/dto"
	"shift-handover/internal/service"
	"shift-handover/pkg/response"
)

// ClaimHandler 接班模块 HTTP 处理器
type ClaimHandler struct {
	claimSvc service.ClaimService
}

// NewClaimHandler 创建 ClaimHandler
func NewClaimHandler(claimSvc service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimSvc: claimSvc}
}

// ClaimHandover 接收交接单；同一交接单只有一人能成功
// POST /api/v1/handovers/:id/claim
func (h *ClaimHandler) ClaimHandover(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "交接单号不能为空")
		return
	}

	var req dto.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.claimSvc.Claim(c.Request.Context(), id, &req)
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	response.OK(c, result)
}

// GetStatus 查询交接单接收状态
// GET /api/v1/handovers/:id/status
func (h *ClaimHandler) GetStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "交接单号不能为空")
		return
	}

	result, err := h.claimSvc.Status(c.Request.Context(), id)
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	response.OK(c, result)
}

// ── 错误映射 ──

func (h *ClaimHandler) handleClaimError(c *gin.Context, err error) {
	var claimErr *service.ClaimError
	if errors.As(err, &claimErr) {
		switch claimErr.Kind {
		case service.ClaimNotFound:
			response.NotFound(c, 21001, claimErr.Error())
		case service.ClaimAlreadyClaimed:
			// 返回先到者信息，前端据此提示"已由 XXX 接收"
			response.Conflict(c, 21002, claimErr.Error(), claimErr.Receiver)
		case service.ClaimTransient:
			_ = c.Error(err)
			response.ServiceUnavailable(c, 21004, "交接单正被他人处理，请稍后重试")
		default:
			_ = c.Error(err)
			response.InternalError(c)
		}
		return
	}

	switch {
	case errors.Is(err, service.ErrHandoverNotFound):
		response.NotFound(c, 21001, err.Error())
	case errors.Is(err, service.ErrAckRequired),
		errors.Is(err, service.ErrInvalidReceiveDate):
		response.BadRequest(c, 21003, err.Error())
	default:
		handleStorageError(c, err)
	}
}
