package workflow

import (
	"context"
	"fmt"
	"time"

	"backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowService 工作流管理服务
type WorkflowService struct {
	db *gorm.DB
}

// NewWorkflowService 创建 WorkflowService 实例
func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{db: db}
}

// ListWorkflowsRequest 查询工作流列表请求
type ListWorkflowsRequest struct {
	TenantID        string
	IncludeArchived bool
	Page            int
	PageSize        int
}

// ListWorkflowsResponse 查询工作流列表响应
type ListWorkflowsResponse struct {
	Workflows  []*Workflow `json:"workflows"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// ListWorkflows 查询工作流列表
func (s *WorkflowService) ListWorkflows(ctx context.Context, req *ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	query := s.db.WithContext(ctx).
		Model(&Workflow{}).
		Scopes(common.NotDeleted(), common.ByTenant(req.TenantID))

	if !req.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}

	// 统计总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计工作流数量失败: %w", err)
	}

	// 分页
	pg := common.PaginationRequest{Page: req.Page, PageSize: req.PageSize}
	pageSize := pg.GetPageSize()
	offset := pg.GetOffset()

	var workflows []*Workflow
	if err := query.
		Order("is_default DESC, created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&workflows).Error; err != nil {
		return nil, fmt.Errorf("查询工作流列表失败: %w", err)
	}

	meta := common.NewPaginationMeta(offset/pageSize+1, pageSize, total)
	return &ListWorkflowsResponse{
		Workflows:  workflows,
		Total:      meta.Total,
		Page:       meta.Page,
		PageSize:   meta.PageSize,
		TotalPages: meta.TotalPages,
	}, nil
}

// GetWorkflow 查询单个工作流
func (s *WorkflowService) GetWorkflow(ctx context.Context, tenantID, workflowID string) (*Workflow, error) {
	var workflow Workflow
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("id = ?", workflowID).
		First(&workflow).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NewBusinessErrorWithCode(common.CodeWorkflowNotFound)
		}
		return nil, fmt.Errorf("查询工作流失败: %w", err)
	}
	return &workflow, nil
}

// CreateWorkflowRequest 创建工作流请求
type CreateWorkflowRequest struct {
	TenantID    string
	Name        string
	Description string
	Stages      StageList
	IsDefault   bool
	CreatedBy   string
}

// CreateWorkflow 创建工作流
func (s *WorkflowService) CreateWorkflow(ctx context.Context, req *CreateWorkflowRequest) (*Workflow, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("工作流名称不能为空")
	}
	if err := ValidateStages(req.Stages); err != nil {
		return nil, fmt.Errorf("阶段定义无效: %w", err)
	}

	workflow := &Workflow{
		ID:          uuid.New().String(),
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Stages:      req.Stages,
		IsDefault:   req.IsDefault,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 保证每个组织至多一个默认工作流
		if req.IsDefault {
			if err := tx.Model(&Workflow{}).
				Scopes(common.NotDeleted(), common.ByTenant(req.TenantID)).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return fmt.Errorf("清除旧默认工作流失败: %w", err)
			}
		}
		if err := tx.Create(workflow).Error; err != nil {
			return fmt.Errorf("创建工作流失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// UpdateWorkflowRequest 更新工作流请求
type UpdateWorkflowRequest struct {
	Name        *string
	Description *string
	Stages      *StageList
}

// UpdateWorkflow 更新工作流
// 一旦有项目引用该工作流，阶段列表即被冻结，不允许修改
func (s *WorkflowService) UpdateWorkflow(ctx context.Context, tenantID, workflowID string, req *UpdateWorkflowRequest) (*Workflow, error) {
	workflow, err := s.GetWorkflow(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	if req.Stages != nil {
		if err := ValidateStages(*req.Stages); err != nil {
			return nil, fmt.Errorf("阶段定义无效: %w", err)
		}
		referenced, err := s.countReferencingProjects(ctx, tenantID, workflowID)
		if err != nil {
			return nil, err
		}
		if referenced > 0 {
			return nil, common.NewBusinessError(common.CodeWorkflowFrozen,
				fmt.Sprintf("已有 %d 个项目引用该工作流，阶段不可修改", referenced))
		}
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Stages != nil {
		updates["stages"] = *req.Stages
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.db.WithContext(ctx).
		Model(workflow).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新工作流失败: %w", err)
	}

	return s.GetWorkflow(ctx, tenantID, workflowID)
}

// SetDefaultWorkflow 设置默认工作流（原默认自动取消）
func (s *WorkflowService) SetDefaultWorkflow(ctx context.Context, tenantID, workflowID string) error {
	if _, err := s.GetWorkflow(ctx, tenantID, workflowID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Workflow{}).
			Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return fmt.Errorf("清除旧默认工作流失败: %w", err)
		}
		if err := tx.Model(&Workflow{}).
			Where("id = ? AND tenant_id = ?", workflowID, tenantID).
			Update("is_default", true).Error; err != nil {
			return fmt.Errorf("设置默认工作流失败: %w", err)
		}
		return nil
	})
}

// ArchiveWorkflow 归档工作流（不影响已有项目）
func (s *WorkflowService) ArchiveWorkflow(ctx context.Context, tenantID, workflowID string) error {
	if _, err := s.GetWorkflow(ctx, tenantID, workflowID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).
		Model(&Workflow{}).
		Where("id = ? AND tenant_id = ?", workflowID, tenantID).
		Updates(map[string]any{
			"is_archived": true,
			"is_default":  false,
			"updated_at":  time.Now().UTC(),
		}).Error; err != nil {
		return fmt.Errorf("归档工作流失败: %w", err)
	}
	return nil
}

// DeleteWorkflow 软删除工作流
func (s *WorkflowService) DeleteWorkflow(ctx context.Context, tenantID, workflowID, operatorID string) error {
	workflow, err := s.GetWorkflow(ctx, tenantID, workflowID)
	if err != nil {
		return err
	}

	referenced, err := s.countReferencingProjects(ctx, tenantID, workflowID)
	if err != nil {
		return err
	}
	if referenced > 0 {
		return common.NewBusinessError(common.CodeConflict,
			fmt.Sprintf("已有 %d 个项目引用该工作流，不可删除", referenced))
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(workflow).
		Updates(map[string]any{
			"deleted_at": now,
			"deleted_by": operatorID,
			"updated_at": now,
		}).Error; err != nil {
		return fmt.Errorf("删除工作流失败: %w", err)
	}
	return nil
}

// countReferencingProjects 统计引用该工作流的项目数量
func (s *WorkflowService) countReferencingProjects(ctx context.Context, tenantID, workflowID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Table("projects").
		Where("tenant_id = ? AND workflow_id = ? AND deleted_at IS NULL", tenantID, workflowID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计引用项目失败: %w", err)
	}
	return count, nil
}

// ValidateStages 校验阶段列表：序号从 1 连续、名称非空、颜色在色板内
func ValidateStages(stages StageList) error {
	if len(stages) == 0 {
		return common.NewBusinessError(common.CodeWorkflowValidationFailed, "至少需要一个阶段")
	}
	for i, stage := range stages {
		if stage.Order != i+1 {
			return common.NewBusinessError(common.CodeWorkflowValidationFailed,
				fmt.Sprintf("阶段序号必须从 1 连续编号，第 %d 项序号为 %d", i+1, stage.Order))
		}
		if stage.Name == "" {
			return common.NewBusinessError(common.CodeWorkflowValidationFailed,
				fmt.Sprintf("阶段 %d 名称不能为空", stage.Order))
		}
		if !ValidColor(stage.Color) {
			return common.NewBusinessError(common.CodeWorkflowValidationFailed,
				fmt.Sprintf("阶段 %d 颜色 %s 不在色板内", stage.Order, stage.Color))
		}
	}
	return nil
}
