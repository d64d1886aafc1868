package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"backend/internal/notification"
	"backend/internal/tenant"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ApprovalHandler 审批通知任务处理器
type ApprovalHandler struct {
	dispatcher *notification.ApprovalDispatcher
	logger     *zap.Logger
}

// NewApprovalHandler 创建审批通知处理器
func NewApprovalHandler(dispatcher *notification.ApprovalDispatcher, logger *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{dispatcher: dispatcher, logger: logger}
}

// HandleApprovalNotify 处理审批通知任务
func (h *ApprovalHandler) HandleApprovalNotify(ctx context.Context, task *asynq.Task) error {
	var payload tasks.ApprovalNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("解析任务载荷失败: %w", err)
	}

	h.logger.Info("处理审批通知",
		zap.String("event_type", payload.EventType),
		zap.String("tenant_id", payload.TenantID),
		zap.String("asset_id", payload.AssetID))

	// 后台任务没有 HTTP 中间件，手动注入租户上下文
	ctx = tenant.WithTenantContext(ctx, tenant.TenantContext{
		TenantID: payload.TenantID,
		UserID:   payload.ActorID,
	})

	return h.dispatcher.Dispatch(ctx, payload)
}
