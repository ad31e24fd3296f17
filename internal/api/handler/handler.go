package handler

import (
	"go.uber.org/zap"

	"shift-handover/internal/service"
	"shift-handover/pkg/redis"
)

// Handler 所有 HTTP Handler 的聚合
type Handler struct {
	Handover  *HandoverHandler
	Claim     *ClaimHandler
	Dashboard *DashboardHandler
	Admin     *AdminHandler
}

// NewHandler 创建 Handler 聚合；rdb 可为 nil（注销时不写黑名单）
func NewHandler(svc *service.Service, rdb *redis.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Handover:  NewHandoverHandler(svc.Handover, svc.IDGen),
		Claim:     NewClaimHandler(svc.Claim),
		Dashboard: NewDashboardHandler(svc.Dashboard),
		Admin:     NewAdminHandler(svc.Admin, rdb, logger),
	}
}
