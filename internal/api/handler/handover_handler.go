package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shift-handover/internal/dto"
	"shift-handover/internal/service"
	"shift-handover/pkg/response"
)

// HandoverHandler 交班模块 HTTP 处理器
type HandoverHandler struct {
	handoverSvc service.HandoverService
	idGen       service.IDGenerator
}

// NewHandoverHandler 创建 HandoverHandler
func NewHandoverHandler(handoverSvc service.HandoverService, idGen service.IDGenerator) *HandoverHandler {
	return &HandoverHandler{handoverSvc: handoverSvc, idGen: idGen}
}

// SubmitHandover 提交交接单
// POST /api/v1/handovers
func (h *HandoverHandler) SubmitHandover(c *gin.Context) {
	var req dto.SubmitHandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.handoverSvc.Submit(c.Request.Context(), &req)
	if err != nil {
		h.handleHandoverError(c, err)
		return
	}

	response.Created(c, result)
}

// GetHandover 获取交接单详情
// GET /api/v1/handovers/:id
func (h *HandoverHandler) GetHandover(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "交接单号不能为空")
		return
	}

	result, err := h.handoverSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleHandoverError(c, err)
		return
	}

	response.OK(c, result)
}

// GetLatestPending 查询某产线某日最新一张未接收的交接单
// GET /api/v1/handovers/latest?line=&date=
func (h *HandoverHandler) GetLatestPending(c *gin.Context) {
	var q dto.LatestPendingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.handoverSvc.GetLatestPending(c.Request.Context(), &q)
	if err != nil {
		h.handleHandoverError(c, err)
		return
	}

	response.OK(c, result)
}

// NextID 预览下一个交接单号（不占用序号，实际编号以提交结果为准）
// GET /api/v1/handovers/next-id
func (h *HandoverHandler) NextID(c *gin.Context) {
	id, err := h.idGen.Peek(c.Request.Context())
	if err != nil {
		handleStorageError(c, err)
		return
	}

	response.OK(c, dto.NextIDResponse{HandoverID: id})
}

// ── 错误映射 ──

func (h *HandoverHandler) handleHandoverError(c *gin.Context, err error) {
	var submitErr *service.SubmitError
	if errors.As(err, &submitErr) {
		_ = c.Error(err)
		switch submitErr.Kind {
		case service.SubmitDuplicateExhausted:
			response.ServiceUnavailable(c, 20004, "交接单号分配冲突，请稍后重试")
		case service.SubmitTransientExhausted:
			response.ServiceUnavailable(c, 20005, "系统繁忙，请稍后重试")
		default:
			response.InternalError(c)
		}
		return
	}

	switch {
	case errors.Is(err, service.ErrHandoverNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrInvalidReportDate),
		errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 20002, err.Error())
	case errors.Is(err, service.ErrCommentRequired),
		errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 20003, err.Error())
	default:
		handleStorageError(c, err)
	}
}
