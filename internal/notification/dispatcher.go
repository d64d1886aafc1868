package notification

import (
	"context"
	"fmt"

	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/worker/tasks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApprovalDispatcher 审批事件分发器
// 解析事件相关人并通过多通道通知器逐个推送；单个通道失败不中断其余
type ApprovalDispatcher struct {
	db         *gorm.DB
	notifier   Notifier
	webhookURL string
}

// NewApprovalDispatcher 创建审批事件分发器
func NewApprovalDispatcher(db *gorm.DB, notifier Notifier, webhookURL string) *ApprovalDispatcher {
	return &ApprovalDispatcher{db: db, notifier: notifier, webhookURL: webhookURL}
}

// Dispatch 处理一条审批通知任务
func (d *ApprovalDispatcher) Dispatch(ctx context.Context, payload tasks.ApprovalNotifyPayload) error {
	recipients, err := d.resolveRecipients(ctx, payload)
	if err != nil {
		return err
	}

	subject, body := renderApprovalMessage(payload)
	data := map[string]any{
		"event_type":  payload.EventType,
		"asset_id":    payload.AssetID,
		"project_id":  payload.ProjectID,
		"stage_order": payload.StageOrder,
		"actor_id":    payload.ActorID,
		"status":      payload.Status,
	}

	for _, userID := range recipients {
		// 事件发起人不给自己发
		if userID == payload.ActorID {
			continue
		}
		err := d.notifier.Send(ctx, &Notification{
			Type:     "websocket",
			TenantID: payload.TenantID,
			To:       userID,
			Subject:  subject,
			Body:     body,
			Data:     data,
		})
		status := "sent"
		if err != nil {
			status = "error"
			logger.Get().Warn("推送审批通知失败",
				zap.String("user_id", userID),
				zap.String("event_type", payload.EventType),
				zap.Error(err))
		}
		metrics.ApprovalNotificationsTotal.WithLabelValues("websocket", payload.TenantID, status).Inc()
	}

	// 组织级 webhook（可选）
	if d.webhookURL != "" {
		err := d.notifier.Send(ctx, &Notification{
			Type:    "webhook",
			To:      d.webhookURL,
			Subject: subject,
			Body:    body,
			Data:    data,
		})
		status := "sent"
		if err != nil {
			status = "error"
			logger.Get().Warn("推送审批 webhook 失败", zap.Error(err))
		}
		metrics.ApprovalNotificationsTotal.WithLabelValues("webhook", payload.TenantID, status).Inc()
	}

	return nil
}

// resolveRecipients 解析事件相关人：素材创建者、项目创建人、相关阶段评审人
func (d *ApprovalDispatcher) resolveRecipients(ctx context.Context, payload tasks.ApprovalNotifyPayload) ([]string, error) {
	seen := map[string]struct{}{}
	var recipients []string
	add := func(userID string) {
		if userID == "" {
			return
		}
		if _, ok := seen[userID]; ok {
			return
		}
		seen[userID] = struct{}{}
		recipients = append(recipients, userID)
	}

	var assetCreator string
	if err := d.db.WithContext(ctx).
		Table("assets").
		Where("id = ? AND tenant_id = ?", payload.AssetID, payload.TenantID).
		Pluck("created_by", &assetCreator).Error; err != nil {
		return nil, fmt.Errorf("查询素材创建者失败: %w", err)
	}
	add(assetCreator)

	if payload.ProjectID != "" {
		var projectOwner string
		if err := d.db.WithContext(ctx).
			Table("projects").
			Where("id = ? AND tenant_id = ?", payload.ProjectID, payload.TenantID).
			Pluck("created_by", &projectOwner).Error; err != nil {
			return nil, fmt.Errorf("查询项目创建人失败: %w", err)
		}
		add(projectOwner)

		query := d.db.WithContext(ctx).
			Table("stage_reviewer_assignments").
			Where("project_id = ? AND tenant_id = ?", payload.ProjectID, payload.TenantID)
		if payload.StageOrder > 0 {
			query = query.Where("stage_order = ?", payload.StageOrder)
		}
		var reviewers []string
		if err := query.Pluck("user_id", &reviewers).Error; err != nil {
			return nil, fmt.Errorf("查询阶段评审人失败: %w", err)
		}
		for _, reviewer := range reviewers {
			add(reviewer)
		}
	}

	return recipients, nil
}

// renderApprovalMessage 根据事件类型生成标题与正文
func renderApprovalMessage(payload tasks.ApprovalNotifyPayload) (string, string) {
	switch payload.EventType {
	case "final_approval":
		return "素材终审通过", fmt.Sprintf("素材 %s 已终审通过", payload.AssetID)
	case "reviewer_decision":
		if payload.Status == "changes_requested" {
			return "素材被打回", fmt.Sprintf("素材 %s 在阶段 %d 被要求修改", payload.AssetID, payload.StageOrder)
		}
		return "收到评审决定", fmt.Sprintf("素材 %s 在阶段 %d 收到评审通过", payload.AssetID, payload.StageOrder)
	case "review_requested":
		return "待评审素材", fmt.Sprintf("素材 %s 已提交到阶段 %d，等待你的评审", payload.AssetID, payload.StageOrder)
	default:
		return "审批动态", fmt.Sprintf("素材 %s 有新的审批动态", payload.AssetID)
	}
}
