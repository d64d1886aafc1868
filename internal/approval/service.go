package approval

import (
	"context"
	"time"

	"backend/internal/asset"
	"backend/internal/common"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/project"
	"backend/internal/workflow"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 组织管理员角色，由网关 JWT 的 role 声明带入
const RoleAdmin = "admin"

// 审批事件类型
const (
	EventFinalApproval    = "final_approval"
	EventReviewerDecision = "reviewer_decision"
	EventReviewRequested  = "review_requested"
)

// ApprovalEvent 审批事件，投递到通知队列
type ApprovalEvent struct {
	Type       string `json:"type"`
	TenantID   string `json:"tenant_id"`
	AssetID    string `json:"asset_id"`
	ProjectID  string `json:"project_id,omitempty"`
	StageOrder int    `json:"stage_order,omitempty"`
	ActorID    string `json:"actor_id"`
	Status     string `json:"status,omitempty"`
	Note       string `json:"note,omitempty"`
}

// EventPublisher 审批事件发布接口（asynq 队列客户端实现）
type EventPublisher interface {
	PublishApprovalEvent(ctx context.Context, event *ApprovalEvent) error
}

// Service 审批核心服务：进度聚合、终审门禁、评审人自助更新
type Service struct {
	db        *gorm.DB
	publisher EventPublisher
	tracer    trace.Tracer
}

// NewService 创建审批服务，publisher 可为 nil（不发通知）
func NewService(db *gorm.DB, publisher EventPublisher) *Service {
	return &Service{
		db:        db,
		publisher: publisher,
		tracer:    otel.Tracer("approval-service"),
	}
}

// publishEvent 发布审批事件，失败只记日志，绝不影响主流程
func (s *Service) publishEvent(ctx context.Context, event *ApprovalEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishApprovalEvent(ctx, event); err != nil {
		logger.WithContext(ctx).Warn("审批事件入队失败",
			zap.String("event_type", event.Type),
			zap.String("asset_id", event.AssetID),
			zap.Error(err))
		metrics.ApprovalNotificationsTotal.WithLabelValues("queue", event.TenantID, "error").Inc()
		return
	}
	metrics.ApprovalNotificationsTotal.WithLabelValues("queue", event.TenantID, "enqueued").Inc()
}

// loadAsset 按组织加载素材，跨组织一律返回不存在
func (s *Service) loadAsset(ctx context.Context, tenantID, assetID string) (*asset.Asset, error) {
	var a asset.Asset
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("id = ?", assetID).
		First(&a).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound("素材不存在").WithCode(common.CodeAssetNotFound)
		}
		return nil, err
	}
	return &a, nil
}

// loadProject 按组织加载项目
func (s *Service) loadProject(ctx context.Context, tenantID, projectID string) (*project.Project, error) {
	var p project.Project
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("id = ?", projectID).
		First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound("项目不存在").WithCode(common.CodeProjectNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// loadProjectWorkflow 加载项目绑定的工作流，未绑定时返回 nil
func (s *Service) loadProjectWorkflow(ctx context.Context, p *project.Project) (*workflow.Workflow, error) {
	if p.WorkflowID == nil {
		return nil, nil
	}
	var wf workflow.Workflow
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(p.TenantID)).
		Where("id = ?", *p.WorkflowID).
		First(&wf).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &wf, nil
}

// listProgress 按阶段序号升序加载素材的全部进度行
func (s *Service) listProgress(ctx context.Context, tenantID, assetID string) ([]*StageProgress, error) {
	var rows []*StageProgress
	if err := s.db.WithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("asset_id = ?", assetID).
		Order("stage_order ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetApprovalSummary 聚合素材的审批汇总视图
// 纯读操作：无项目的素材返回空汇总而非错误
func (s *Service) GetApprovalSummary(ctx context.Context, tenantID, assetID string) (*AssetApprovalSummary, error) {
	ctx, span := s.tracer.Start(ctx, "approval.GetApprovalSummary",
		trace.WithAttributes(attribute.String("asset.id", assetID)))
	defer span.End()

	a, err := s.loadAsset(ctx, tenantID, assetID)
	if err != nil {
		return nil, err
	}

	summary := &AssetApprovalSummary{
		AssetID:          a.ID,
		ApprovalsByStage: map[int][]*UserStageApproval{},
		ProgressSummary:  map[int]*ApprovalProgress{},
	}
	summary.SetDerivedStatus(DeriveAssetStatus(nil))

	// 未关联项目：返回空汇总，终审信息也不附带
	if a.ProjectID == "" {
		return summary, nil
	}

	if a.FinalApprovedBy != nil {
		summary.FinalApproval = &FinalApproval{
			ApprovedBy: *a.FinalApprovedBy,
			Notes:      a.FinalApprovalNotes,
		}
		if a.FinalApprovedAt != nil {
			summary.FinalApproval.ApprovedAt = *a.FinalApprovedAt
		}
	}

	p, err := s.loadProject(ctx, tenantID, a.ProjectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.loadProjectWorkflow(ctx, p)
	if err != nil {
		return nil, err
	}

	// 按创建时间升序，插入顺序即审批顺序
	var approvals []*UserStageApproval
	if err := s.db.WithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("asset_id = ?", assetID).
		Order("created_at ASC").
		Find(&approvals).Error; err != nil {
		return nil, err
	}
	for _, ap := range approvals {
		summary.ApprovalsByStage[ap.StageOrder] = append(summary.ApprovalsByStage[ap.StageOrder], ap)
	}

	progress, err := s.listProgress(ctx, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	for _, row := range progress {
		view := &ApprovalProgress{
			StageOrder:        row.StageOrder,
			ApprovalsRequired: row.ApprovalsRequired,
			ApprovalsReceived: row.ApprovalsReceived,
			Status:            row.Status,
			IsComplete:        row.IsComplete(),
			Approvals:         summary.ApprovalsByStage[row.StageOrder],
		}
		if view.Approvals == nil {
			view.Approvals = []*UserStageApproval{}
		}
		if wf != nil {
			if stage, ok := wf.Stages.StageByOrder(row.StageOrder); ok {
				view.StageName = stage.Name
				view.StageColor = string(stage.Color)
			}
		}
		summary.ProgressSummary[row.StageOrder] = view
	}
	summary.SetDerivedStatus(DeriveAssetStatus(progress))

	return summary, nil
}

// StatusesForAssets 批量派生素材级状态，供列表视图一次查询附带
// 返回值覆盖入参里的每个素材；没有进度行的素材得到 not_started 默认值
func (s *Service) StatusesForAssets(ctx context.Context, tenantID string, assetIDs []string) (map[string]AssetStatus, error) {
	statuses := make(map[string]AssetStatus, len(assetIDs))
	if len(assetIDs) == 0 {
		return statuses, nil
	}

	var rows []*StageProgress
	if err := s.db.WithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("asset_id IN ?", assetIDs).
		Order("asset_id ASC, stage_order ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	grouped := make(map[string][]*StageProgress, len(assetIDs))
	for _, row := range rows {
		grouped[row.AssetID] = append(grouped[row.AssetID], row)
	}
	for _, id := range assetIDs {
		statuses[id] = DeriveAssetStatus(grouped[id])
	}
	return statuses, nil
}

// RecordFinalApprovalRequest 终审请求
type RecordFinalApprovalRequest struct {
	TenantID     string
	AssetID      string
	ActingUserID string
	ActorRole    string
	Notes        string
}

// FinalApprovalResult 终审结果：更新后的素材与最新进度列表
type FinalApprovalResult struct {
	Asset    *asset.Asset     `json:"asset"`
	Progress []*StageProgress `json:"progress"`
}

// RecordFinalApproval 终审门禁，整个设计中唯一的终审状态迁移入口
// 前置条件按序检查，先失败者先报；写入为条件更新，并发下至多一个成功
func (s *Service) RecordFinalApproval(ctx context.Context, req *RecordFinalApprovalRequest) (*FinalApprovalResult, error) {
	ctx, span := s.tracer.Start(ctx, "approval.RecordFinalApproval",
		trace.WithAttributes(
			attribute.String("asset.id", req.AssetID),
			attribute.String("actor.id", req.ActingUserID)))
	defer span.End()

	if req.ActingUserID == "" {
		return nil, ErrUnauthorized("缺少调用者身份")
	}

	// 1. 素材存在且属于当前组织
	a, err := s.loadAsset(ctx, req.TenantID, req.AssetID)
	if err != nil {
		return nil, err
	}

	// 2. 素材必须关联项目
	if a.ProjectID == "" {
		return nil, ErrInvalidState("素材未关联项目，不可终审")
	}

	// 3. 调用者必须是项目创建人或组织管理员
	p, err := s.loadProject(ctx, req.TenantID, a.ProjectID)
	if err != nil {
		return nil, err
	}
	if req.ActingUserID != p.CreatedBy && req.ActorRole != RoleAdmin {
		metrics.FinalApprovalsTotal.WithLabelValues(req.TenantID, "forbidden").Inc()
		return nil, ErrForbidden("仅项目创建人或组织管理员可终审")
	}

	// 4. 最高序号阶段必须处于 pending_final_approval
	progress, err := s.listProgress(ctx, req.TenantID, req.AssetID)
	if err != nil {
		return nil, err
	}
	if len(progress) == 0 {
		return nil, ErrInvalidState("最后阶段当前状态为 %s，不可终审", "none").
			WithCode(common.CodeApprovalNotPending)
	}
	last := progress[len(progress)-1]
	if last.Status != StageStatusPendingFinal {
		return nil, ErrInvalidState("最后阶段当前状态为 %s，不可终审", last.Status).
			WithCode(common.CodeApprovalNotPending)
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 条件更新：并发终审只有一个能翻转进度行
		res := tx.Model(&StageProgress{}).
			Where("tenant_id = ? AND asset_id = ? AND stage_order = ? AND status = ?",
				req.TenantID, req.AssetID, last.StageOrder, StageStatusPendingFinal).
			Updates(map[string]any{
				"status":     StageStatusApproved,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 被并发抢先：重新读取当前状态用于报错
			var current StageProgress
			status := "unknown"
			if err := tx.
				Where("tenant_id = ? AND asset_id = ? AND stage_order = ?",
					req.TenantID, req.AssetID, last.StageOrder).
				First(&current).Error; err == nil {
				status = current.Status
			}
			return ErrInvalidState("最后阶段当前状态为 %s，不可终审", status).
				WithCode(common.CodeApprovalNotPending)
		}

		res = tx.Model(&asset.Asset{}).
			Where("id = ? AND tenant_id = ? AND final_approved_by IS NULL",
				req.AssetID, req.TenantID).
			Updates(map[string]any{
				"final_approved_by":    req.ActingUserID,
				"final_approved_at":    now,
				"final_approval_notes": req.Notes,
				"updated_at":           now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState("素材已终审通过，不可重复终审").
				WithCode(common.CodeApprovalAlreadyFinal)
		}
		return nil
	})
	if err != nil {
		metrics.FinalApprovalsTotal.WithLabelValues(req.TenantID, "denied").Inc()
		return nil, err
	}

	metrics.FinalApprovalsTotal.WithLabelValues(req.TenantID, "granted").Inc()
	logger.WithContext(ctx).Info("素材终审通过",
		zap.String("tenant_id", req.TenantID),
		zap.String("asset_id", req.AssetID),
		zap.String("approved_by", req.ActingUserID))

	// 提交后尽力而为地发通知，失败不回滚不报错
	s.publishEvent(ctx, &ApprovalEvent{
		Type:      EventFinalApproval,
		TenantID:  req.TenantID,
		AssetID:   req.AssetID,
		ProjectID: a.ProjectID,
		ActorID:   req.ActingUserID,
		Note:      req.Notes,
	})

	updated, err := s.loadAsset(ctx, req.TenantID, req.AssetID)
	if err != nil {
		return nil, err
	}
	latest, err := s.listProgress(ctx, req.TenantID, req.AssetID)
	if err != nil {
		return nil, err
	}
	return &FinalApprovalResult{Asset: updated, Progress: latest}, nil
}

// SetReviewerStatusRequest 评审人自助更新请求
type SetReviewerStatusRequest struct {
	TenantID     string
	AssetID      string
	RecordID     string
	ActingUserID string
	Status       string
	Note         string
}

// SetReviewerStatus 评审人更新自己的决定
// 仅限本人操作；改判时旧决定归档进 History；不重算阶段进度聚合
func (s *Service) SetReviewerStatus(ctx context.Context, req *SetReviewerStatusRequest) (*UserStageApproval, error) {
	ctx, span := s.tracer.Start(ctx, "approval.SetReviewerStatus",
		trace.WithAttributes(
			attribute.String("asset.id", req.AssetID),
			attribute.String("record.id", req.RecordID)))
	defer span.End()

	if req.ActingUserID == "" {
		return nil, ErrUnauthorized("缺少调用者身份")
	}
	if req.Status != DecisionApproved && req.Status != DecisionChangesRequested {
		return nil, ErrValidation("决定只能是 %s 或 %s", DecisionApproved, DecisionChangesRequested)
	}

	var record UserStageApproval
	if err := s.db.WithContext(ctx).
		Scopes(common.ByTenant(req.TenantID)).
		Where("id = ? AND asset_id = ?", req.RecordID, req.AssetID).
		First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound("评审记录不存在").WithCode(common.CodeApprovalNotFound)
		}
		return nil, err
	}

	// 仅限本人，不允许代提交
	if record.UserID != req.ActingUserID {
		return nil, ErrForbidden("评审决定仅限本人提交").WithCode(common.CodeApprovalNotReviewer)
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":       req.Status,
		"note":         req.Note,
		"responded_at": now,
		"updated_at":   now,
	}
	// 首次响应视同已查看
	if record.ViewedAt == nil {
		updates["viewed_at"] = now
	}
	// 已有决定时归档进历史
	if record.Status != DecisionPending {
		history := append(record.History, DecisionRevision{
			Status:      record.Status,
			Note:        record.Note,
			RespondedAt: record.RespondedAt,
			ArchivedAt:  now,
		})
		updates["history"] = history
	}

	if err := s.db.WithContext(ctx).
		Model(&record).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	metrics.ApprovalDecisionsTotal.WithLabelValues(req.TenantID, req.Status, "reviewer").Inc()

	s.publishEvent(ctx, &ApprovalEvent{
		Type:       EventReviewerDecision,
		TenantID:   req.TenantID,
		AssetID:    req.AssetID,
		StageOrder: record.StageOrder,
		ActorID:    req.ActingUserID,
		Status:     req.Status,
		Note:       req.Note,
	})

	var updated UserStageApproval
	if err := s.db.WithContext(ctx).
		Where("id = ?", req.RecordID).
		First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}
