package project

import (
	"context"
	"fmt"
	"time"

	"backend/internal/common"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectService 项目管理服务
type ProjectService struct {
	db          *gorm.DB
	workflowSvc *workflow.WorkflowService
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(db *gorm.DB, workflowSvc *workflow.WorkflowService) *ProjectService {
	return &ProjectService{db: db, workflowSvc: workflowSvc}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	TenantID    string
	Name        string
	Description string
	WorkflowID  *string
	CreatedBy   string
}

// CreateProject 创建项目
// 指定了工作流时校验其属于当前组织且未归档
func (s *ProjectService) CreateProject(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("项目名称不能为空")
	}

	if req.WorkflowID != nil {
		wf, err := s.workflowSvc.GetWorkflow(ctx, req.TenantID, *req.WorkflowID)
		if err != nil {
			return nil, err
		}
		if wf.IsArchived {
			return nil, fmt.Errorf("工作流已归档，不可绑定新项目")
		}
	}

	project := &Project{
		ID:          uuid.New().String(),
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Status:      StatusActive,
		WorkflowID:  req.WorkflowID,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("创建项目失败: %w", err)
	}

	return project, nil
}

// ListProjectsRequest 查询项目列表请求
type ListProjectsRequest struct {
	TenantID string
	Status   string
	Page     int
	PageSize int
}

// ListProjectsResponse 查询项目列表响应
type ListProjectsResponse struct {
	Projects   []*Project `json:"projects"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// ListProjects 查询项目列表
func (s *ProjectService) ListProjects(ctx context.Context, req *ListProjectsRequest) (*ListProjectsResponse, error) {
	query := s.db.WithContext(ctx).
		Model(&Project{}).
		Scopes(common.NotDeleted(), common.ByTenant(req.TenantID))

	if req.Status != "" {
		if !ValidStatus(req.Status) {
			return nil, fmt.Errorf("项目状态不合法: %s", req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计项目数量失败: %w", err)
	}

	pg := common.PaginationRequest{Page: req.Page, PageSize: req.PageSize}
	pageSize := pg.GetPageSize()
	offset := pg.GetOffset()

	var projects []*Project
	if err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("查询项目列表失败: %w", err)
	}

	meta := common.NewPaginationMeta(offset/pageSize+1, pageSize, total)
	return &ListProjectsResponse{
		Projects:   projects,
		Total:      meta.Total,
		Page:       meta.Page,
		PageSize:   meta.PageSize,
		TotalPages: meta.TotalPages,
	}, nil
}

// GetProject 查询单个项目
func (s *ProjectService) GetProject(ctx context.Context, tenantID, projectID string) (*Project, error) {
	var project Project
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("id = ?", projectID).
		First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NewBusinessErrorWithCode(common.CodeProjectNotFound)
		}
		return nil, fmt.Errorf("查询项目失败: %w", err)
	}
	return &project, nil
}

// GetProjectWorkflow 查询项目绑定的工作流
func (s *ProjectService) GetProjectWorkflow(ctx context.Context, tenantID, projectID string) (*workflow.Workflow, error) {
	project, err := s.GetProject(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	if project.WorkflowID == nil {
		return nil, fmt.Errorf("项目未绑定工作流")
	}
	return s.workflowSvc.GetWorkflow(ctx, tenantID, *project.WorkflowID)
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name        *string
	Description *string
	Status      *string
	WorkflowID  *string
}

// UpdateProject 更新项目
// 项目下已有素材时不允许更换工作流，避免阶段进度失去意义
func (s *ProjectService) UpdateProject(ctx context.Context, tenantID, projectID string, req *UpdateProjectRequest) (*Project, error) {
	project, err := s.GetProject(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("项目名称不能为空")
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		if !ValidStatus(*req.Status) {
			return nil, fmt.Errorf("项目状态不合法: %s", *req.Status)
		}
		updates["status"] = *req.Status
	}
	if req.WorkflowID != nil {
		wf, err := s.workflowSvc.GetWorkflow(ctx, tenantID, *req.WorkflowID)
		if err != nil {
			return nil, err
		}
		if wf.IsArchived {
			return nil, fmt.Errorf("工作流已归档，不可绑定")
		}
		assetCount, err := s.countAssets(ctx, tenantID, projectID)
		if err != nil {
			return nil, err
		}
		if assetCount > 0 {
			return nil, fmt.Errorf("项目下已有 %d 个素材，不可更换工作流", assetCount)
		}
		updates["workflow_id"] = *req.WorkflowID
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.db.WithContext(ctx).
		Model(project).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新项目失败: %w", err)
	}

	return s.GetProject(ctx, tenantID, projectID)
}

// DeleteProject 软删除项目
func (s *ProjectService) DeleteProject(ctx context.Context, tenantID, projectID, operatorID string) error {
	project, err := s.GetProject(ctx, tenantID, projectID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(project).
		Updates(map[string]any{
			"deleted_at": now,
			"deleted_by": operatorID,
			"updated_at": now,
		}).Error; err != nil {
		return fmt.Errorf("删除项目失败: %w", err)
	}
	return nil
}

// countAssets 统计项目下未删除的素材数量
func (s *ProjectService) countAssets(ctx context.Context, tenantID, projectID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Table("assets").
		Where("tenant_id = ? AND project_id = ? AND deleted_at IS NULL", tenantID, projectID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计素材数量失败: %w", err)
	}
	return count, nil
}
