package approval

import (
	"context"
	"time"

	"backend/internal/asset"
	"backend/internal/common"
	"backend/internal/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// AssignReviewerRequest 分配评审人请求
type AssignReviewerRequest struct {
	TenantID   string
	ProjectID  string
	StageOrder int
	UserID     string
	AssignedBy string
	ActorRole  string
}

// AssignReviewer 在项目工作流的某阶段分配评审人
// 分配同时刷新尚未开始的进度行上的 approvals_required 快照
func (s *Service) AssignReviewer(ctx context.Context, req *AssignReviewerRequest) (*StageReviewerAssignment, error) {
	ctx, span := s.tracer.Start(ctx, "approval.AssignReviewer",
		trace.WithAttributes(
			attribute.String("project.id", req.ProjectID),
			attribute.Int("stage.order", req.StageOrder)))
	defer span.End()

	if req.AssignedBy == "" {
		return nil, ErrUnauthorized("缺少调用者身份")
	}
	if req.UserID == "" {
		return nil, ErrValidation("评审人不能为空")
	}

	p, err := s.loadProject(ctx, req.TenantID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if req.AssignedBy != p.CreatedBy && req.ActorRole != RoleAdmin {
		return nil, ErrForbidden("仅项目创建人或组织管理员可管理评审人")
	}

	wf, err := s.loadProjectWorkflow(ctx, p)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, ErrInvalidState("项目未绑定工作流，不可分配评审人")
	}
	if _, ok := wf.Stages.StageByOrder(req.StageOrder); !ok {
		return nil, ErrValidation("工作流中不存在序号为 %d 的阶段", req.StageOrder)
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Model(&StageReviewerAssignment{}).
		Scopes(common.ByTenant(req.TenantID)).
		Where("project_id = ? AND stage_order = ? AND user_id = ?",
			req.ProjectID, req.StageOrder, req.UserID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrValidation("该用户已是此阶段的评审人")
	}

	assignment := &StageReviewerAssignment{
		ID:         uuid.New().String(),
		TenantID:   req.TenantID,
		ProjectID:  req.ProjectID,
		StageOrder: req.StageOrder,
		UserID:     req.UserID,
		AssignedBy: req.AssignedBy,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(assignment).Error; err != nil {
			return err
		}
		return s.refreshRequiredSnapshot(tx, req.TenantID, req.ProjectID, req.StageOrder)
	})
	if err != nil {
		return nil, err
	}

	return assignment, nil
}

// UnassignReviewer 取消阶段评审人分配
func (s *Service) UnassignReviewer(ctx context.Context, tenantID, assignmentID, actingUserID, actorRole string) error {
	ctx, span := s.tracer.Start(ctx, "approval.UnassignReviewer",
		trace.WithAttributes(attribute.String("assignment.id", assignmentID)))
	defer span.End()

	if actingUserID == "" {
		return ErrUnauthorized("缺少调用者身份")
	}

	var assignment StageReviewerAssignment
	if err := s.db.WithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", assignmentID).
		First(&assignment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound("评审人分配不存在")
		}
		return err
	}

	p, err := s.loadProject(ctx, tenantID, assignment.ProjectID)
	if err != nil {
		return err
	}
	if actingUserID != p.CreatedBy && actorRole != RoleAdmin {
		return ErrForbidden("仅项目创建人或组织管理员可管理评审人")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&assignment).Error; err != nil {
			return err
		}
		return s.refreshRequiredSnapshot(tx, tenantID, assignment.ProjectID, assignment.StageOrder)
	})
}

// ListReviewers 查询项目的评审人分配，stageOrder 为 nil 时返回全部阶段
func (s *Service) ListReviewers(ctx context.Context, tenantID, projectID string, stageOrder *int) ([]*StageReviewerAssignment, error) {
	if _, err := s.loadProject(ctx, tenantID, projectID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("project_id = ?", projectID)
	if stageOrder != nil {
		query = query.Where("stage_order = ?", *stageOrder)
	}

	var assignments []*StageReviewerAssignment
	if err := query.
		Order("stage_order ASC, created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// refreshRequiredSnapshot 刷新 approvals_required 快照
// 只更新尚未开始的进度行：已开始阶段的快照保持分配当时的值
func (s *Service) refreshRequiredSnapshot(tx *gorm.DB, tenantID, projectID string, stageOrder int) error {
	var required int64
	if err := tx.Model(&StageReviewerAssignment{}).
		Where("tenant_id = ? AND project_id = ? AND stage_order = ?",
			tenantID, projectID, stageOrder).
		Count(&required).Error; err != nil {
		return err
	}

	return tx.Model(&StageProgress{}).
		Where("tenant_id = ? AND stage_order = ? AND status = ? AND asset_id IN (?)",
			tenantID, stageOrder, StageStatusNotStarted,
			tx.Session(&gorm.Session{NewDB: true}).
				Model(&asset.Asset{}).
				Select("id").
				Where("tenant_id = ? AND project_id = ? AND deleted_at IS NULL", tenantID, projectID),
		).
		Updates(map[string]any{
			"approvals_required": required,
			"updated_at":         time.Now().UTC(),
		}).Error
}

// SubmitForReviewRequest 提交阶段评审请求
type SubmitForReviewRequest struct {
	TenantID   string
	AssetID    string
	StageOrder int
	ActorID    string
}

// SubmitForReview 将素材提交到某阶段评审
// 为该阶段每个已分配评审人建立待定评审记录，并把进度行置为 in_review
func (s *Service) SubmitForReview(ctx context.Context, req *SubmitForReviewRequest) (*StageProgress, error) {
	ctx, span := s.tracer.Start(ctx, "approval.SubmitForReview",
		trace.WithAttributes(
			attribute.String("asset.id", req.AssetID),
			attribute.Int("stage.order", req.StageOrder)))
	defer span.End()

	if req.ActorID == "" {
		return nil, ErrUnauthorized("缺少调用者身份")
	}

	a, err := s.loadAsset(ctx, req.TenantID, req.AssetID)
	if err != nil {
		return nil, err
	}
	if a.ProjectID == "" {
		return nil, ErrInvalidState("素材未关联项目，不可提交评审")
	}
	if a.FinalApprovedBy != nil {
		return nil, ErrInvalidState("素材已终审通过，不可再提交评审").
			WithCode(common.CodeApprovalAlreadyFinal)
	}

	p, err := s.loadProject(ctx, req.TenantID, a.ProjectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.loadProjectWorkflow(ctx, p)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, ErrInvalidState("项目未绑定工作流，不可提交评审")
	}
	if _, ok := wf.Stages.StageByOrder(req.StageOrder); !ok {
		return nil, ErrValidation("工作流中不存在序号为 %d 的阶段", req.StageOrder)
	}

	var assignments []*StageReviewerAssignment
	if err := s.db.WithContext(ctx).
		Scopes(common.ByTenant(req.TenantID)).
		Where("project_id = ? AND stage_order = ?", a.ProjectID, req.StageOrder).
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, ErrInvalidState("该阶段尚未分配评审人，不可提交评审")
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 为每个评审人补齐待定记录，已有记录保持不动
		for _, assignment := range assignments {
			var count int64
			if err := tx.Model(&UserStageApproval{}).
				Where("tenant_id = ? AND asset_id = ? AND stage_order = ? AND user_id = ?",
					req.TenantID, req.AssetID, req.StageOrder, assignment.UserID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			record := &UserStageApproval{
				ID:         uuid.New().String(),
				TenantID:   req.TenantID,
				AssetID:    req.AssetID,
				StageOrder: req.StageOrder,
				UserID:     assignment.UserID,
				Status:     DecisionPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}

		// 进度行不存在则创建，存在则置为 in_review
		var progress StageProgress
		err := tx.
			Where("tenant_id = ? AND asset_id = ? AND stage_order = ?",
				req.TenantID, req.AssetID, req.StageOrder).
			First(&progress).Error
		switch err {
		case nil:
			return tx.Model(&progress).Updates(map[string]any{
				"status":             StageStatusInReview,
				"approvals_required": len(assignments),
				"updated_at":         now,
			}).Error
		case gorm.ErrRecordNotFound:
			return tx.Create(&StageProgress{
				ID:                uuid.New().String(),
				TenantID:          req.TenantID,
				AssetID:           req.AssetID,
				StageOrder:        req.StageOrder,
				ApprovalsRequired: len(assignments),
				ApprovalsReceived: 0,
				Status:            StageStatusInReview,
				CreatedAt:         now,
				UpdatedAt:         now,
			}).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	metrics.ApprovalPendingGauge.WithLabelValues(req.TenantID).Add(float64(len(assignments)))

	s.publishEvent(ctx, &ApprovalEvent{
		Type:       EventReviewRequested,
		TenantID:   req.TenantID,
		AssetID:    req.AssetID,
		ProjectID:  a.ProjectID,
		StageOrder: req.StageOrder,
		ActorID:    req.ActorID,
	})

	var updated StageProgress
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND asset_id = ? AND stage_order = ?",
			req.TenantID, req.AssetID, req.StageOrder).
		First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// RecomputeStageProgress 重算素材各阶段的进度聚合
// 评审人自助更新不触发重算，由上层在决定提交后显式调用
func (s *Service) RecomputeStageProgress(ctx context.Context, tenantID, assetID string) ([]*StageProgress, error) {
	ctx, span := s.tracer.Start(ctx, "approval.RecomputeStageProgress",
		trace.WithAttributes(attribute.String("asset.id", assetID)))
	defer span.End()

	a, err := s.loadAsset(ctx, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	if a.ProjectID == "" {
		return []*StageProgress{}, nil
	}

	p, err := s.loadProject(ctx, tenantID, a.ProjectID)
	if err != nil {
		return nil, err
	}
	wf, err := s.loadProjectWorkflow(ctx, p)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return []*StageProgress{}, nil
	}

	lastOrder := 0
	for _, stage := range wf.Stages {
		if stage.Order > lastOrder {
			lastOrder = stage.Order
		}
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []*StageProgress
		if err := tx.
			Where("tenant_id = ? AND asset_id = ?", tenantID, assetID).
			Find(&rows).Error; err != nil {
			return err
		}

		for _, row := range rows {
			// 终态行不回退
			if row.Status == StageStatusApproved && a.FinalApprovedBy != nil {
				continue
			}

			var received int64
			if err := tx.Model(&UserStageApproval{}).
				Where("tenant_id = ? AND asset_id = ? AND stage_order = ? AND status = ?",
					tenantID, assetID, row.StageOrder, DecisionApproved).
				Count(&received).Error; err != nil {
				return err
			}
			var changes int64
			if err := tx.Model(&UserStageApproval{}).
				Where("tenant_id = ? AND asset_id = ? AND stage_order = ? AND status = ?",
					tenantID, assetID, row.StageOrder, DecisionChangesRequested).
				Count(&changes).Error; err != nil {
				return err
			}

			status := row.Status
			switch {
			case changes > 0:
				status = StageStatusChangesRequested
			case row.ApprovalsRequired > 0 && int(received) >= row.ApprovalsRequired:
				if row.StageOrder == lastOrder {
					status = StageStatusPendingFinal
				} else {
					status = StageStatusApproved
				}
			case row.Status == StageStatusChangesRequested:
				// 改判撤销后回到评审中
				status = StageStatusInReview
			}

			if err := tx.Model(row).Updates(map[string]any{
				"approvals_received": received,
				"status":             status,
				"updated_at":         now,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.listProgress(ctx, tenantID, assetID)
}
