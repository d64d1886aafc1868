package asset

import (
	"context"
	"fmt"
	"time"

	"backend/internal/common"
	"backend/internal/project"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetService 素材与文件夹管理服务
type AssetService struct {
	db         *gorm.DB
	projectSvc *project.ProjectService
}

// NewAssetService 创建 AssetService 实例
func NewAssetService(db *gorm.DB, projectSvc *project.ProjectService) *AssetService {
	return &AssetService{db: db, projectSvc: projectSvc}
}

// CreateFolderRequest 创建文件夹请求
type CreateFolderRequest struct {
	TenantID  string
	ProjectID string
	ParentID  *string
	Name      string
	CreatedBy string
}

// CreateFolder 创建文件夹
// 深度超过 MaxFolderDepth 时拒绝
func (s *AssetService) CreateFolder(ctx context.Context, req *CreateFolderRequest) (*Folder, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("文件夹名称不能为空")
	}
	if _, err := s.projectSvc.GetProject(ctx, req.TenantID, req.ProjectID); err != nil {
		return nil, err
	}

	depth := 1
	if req.ParentID != nil {
		parent, err := s.GetFolder(ctx, req.TenantID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.ProjectID != req.ProjectID {
			return nil, fmt.Errorf("父文件夹不属于该项目")
		}
		depth = parent.Depth + 1
		if depth > MaxFolderDepth {
			return nil, common.NewBusinessError(common.CodeFolderDepthExceeded,
				fmt.Sprintf("文件夹嵌套深度超过上限 %d", MaxFolderDepth))
		}
	}

	folder := &Folder{
		ID:        uuid.New().String(),
		TenantID:  req.TenantID,
		ProjectID: req.ProjectID,
		ParentID:  req.ParentID,
		Name:      req.Name,
		Depth:     depth,
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(folder).Error; err != nil {
		return nil, fmt.Errorf("创建文件夹失败: %w", err)
	}

	return folder, nil
}

// GetFolder 查询单个文件夹
func (s *AssetService) GetFolder(ctx context.Context, tenantID, folderID string) (*Folder, error) {
	var folder Folder
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("id = ?", folderID).
		First(&folder).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NewBusinessErrorWithCode(common.CodeFolderNotFound)
		}
		return nil, fmt.Errorf("查询文件夹失败: %w", err)
	}
	return &folder, nil
}

// ListFolders 查询项目下的文件夹（parentID 为 nil 时返回根级）
func (s *AssetService) ListFolders(ctx context.Context, tenantID, projectID string, parentID *string) ([]*Folder, error) {
	query := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("project_id = ?", projectID)
	if parentID != nil {
		query = query.Where("parent_id = ?", *parentID)
	} else {
		query = query.Where("parent_id IS NULL")
	}

	var folders []*Folder
	if err := query.Order("name ASC").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("查询文件夹列表失败: %w", err)
	}
	return folders, nil
}

// RenameFolder 重命名文件夹
func (s *AssetService) RenameFolder(ctx context.Context, tenantID, folderID, name string) (*Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("文件夹名称不能为空")
	}
	folder, err := s.GetFolder(ctx, tenantID, folderID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(folder).
		Updates(map[string]any{
			"name":       name,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return nil, fmt.Errorf("重命名文件夹失败: %w", err)
	}
	return s.GetFolder(ctx, tenantID, folderID)
}

// DeleteFolder 软删除文件夹（要求为空：无子文件夹、无素材）
func (s *AssetService) DeleteFolder(ctx context.Context, tenantID, folderID, operatorID string) error {
	folder, err := s.GetFolder(ctx, tenantID, folderID)
	if err != nil {
		return err
	}

	var childCount int64
	if err := s.db.WithContext(ctx).
		Model(&Folder{}).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("parent_id = ?", folderID).
		Count(&childCount).Error; err != nil {
		return fmt.Errorf("统计子文件夹失败: %w", err)
	}
	if childCount > 0 {
		return fmt.Errorf("文件夹下仍有 %d 个子文件夹，不可删除", childCount)
	}

	var assetCount int64
	if err := s.db.WithContext(ctx).
		Model(&Asset{}).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("folder_id = ?", folderID).
		Count(&assetCount).Error; err != nil {
		return fmt.Errorf("统计文件夹素材失败: %w", err)
	}
	if assetCount > 0 {
		return fmt.Errorf("文件夹下仍有 %d 个素材，不可删除", assetCount)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(folder).
		Updates(map[string]any{
			"deleted_at": now,
			"deleted_by": operatorID,
			"updated_at": now,
		}).Error; err != nil {
		return fmt.Errorf("删除文件夹失败: %w", err)
	}
	return nil
}

// CreateAssetRequest 创建素材请求
type CreateAssetRequest struct {
	TenantID  string
	ProjectID string
	FolderID  *string
	Name      string
	Type      string
	FileURL   string
	FileSize  int64
	MimeType  string
	CreatedBy string
}

// CreateAsset 创建素材
func (s *AssetService) CreateAsset(ctx context.Context, req *CreateAssetRequest) (*Asset, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("素材名称不能为空")
	}
	assetType := req.Type
	if assetType == "" {
		assetType = TypeOther
	}
	if !ValidType(assetType) {
		return nil, fmt.Errorf("素材类型不合法: %s", assetType)
	}

	// 项目可选：未关联项目的素材不参与审批
	if req.ProjectID != "" {
		proj, err := s.projectSvc.GetProject(ctx, req.TenantID, req.ProjectID)
		if err != nil {
			return nil, err
		}
		if proj.Status != project.StatusActive {
			return nil, common.NewBusinessError(common.CodeProjectArchived,
				fmt.Sprintf("项目状态为 %s，不可新增素材", proj.Status))
		}
	} else if req.FolderID != nil {
		return nil, fmt.Errorf("未关联项目的素材不可放入文件夹")
	}

	if req.FolderID != nil {
		folder, err := s.GetFolder(ctx, req.TenantID, *req.FolderID)
		if err != nil {
			return nil, err
		}
		if folder.ProjectID != req.ProjectID {
			return nil, fmt.Errorf("文件夹不属于该项目")
		}
	}

	asset := &Asset{
		ID:        uuid.New().String(),
		TenantID:  req.TenantID,
		ProjectID: req.ProjectID,
		FolderID:  req.FolderID,
		Name:      req.Name,
		Type:      assetType,
		FileURL:   req.FileURL,
		FileSize:  req.FileSize,
		MimeType:  req.MimeType,
		Version:   1,
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, fmt.Errorf("创建素材失败: %w", err)
	}

	return asset, nil
}

// GetAsset 查询单个素材
func (s *AssetService) GetAsset(ctx context.Context, tenantID, assetID string) (*Asset, error) {
	var asset Asset
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("id = ?", assetID).
		First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NewBusinessErrorWithCode(common.CodeAssetNotFound)
		}
		return nil, fmt.Errorf("查询素材失败: %w", err)
	}
	return &asset, nil
}

// ListAssetsRequest 查询素材列表请求
type ListAssetsRequest struct {
	TenantID  string
	ProjectID string
	FolderID  *string
	Type      string
	Page      int
	PageSize  int
}

// ListAssetsResponse 查询素材列表响应
type ListAssetsResponse struct {
	Assets     []*Asset `json:"assets"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

// ListAssets 查询项目下的素材列表
func (s *AssetService) ListAssets(ctx context.Context, req *ListAssetsRequest) (*ListAssetsResponse, error) {
	query := s.db.WithContext(ctx).
		Model(&Asset{}).
		Scopes(common.NotDeleted(), common.ByTenant(req.TenantID)).
		Where("project_id = ?", req.ProjectID)

	if req.FolderID != nil {
		query = query.Where("folder_id = ?", *req.FolderID)
	}
	if req.Type != "" {
		if !ValidType(req.Type) {
			return nil, fmt.Errorf("素材类型不合法: %s", req.Type)
		}
		query = query.Where("type = ?", req.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计素材数量失败: %w", err)
	}

	pg := common.PaginationRequest{Page: req.Page, PageSize: req.PageSize}
	pageSize := pg.GetPageSize()
	offset := pg.GetOffset()

	var assets []*Asset
	if err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("查询素材列表失败: %w", err)
	}

	meta := common.NewPaginationMeta(offset/pageSize+1, pageSize, total)
	return &ListAssetsResponse{
		Assets:     assets,
		Total:      meta.Total,
		Page:       meta.Page,
		PageSize:   meta.PageSize,
		TotalPages: meta.TotalPages,
	}, nil
}

// UpdateAssetRequest 更新素材请求
type UpdateAssetRequest struct {
	Name      *string
	ProjectID *string
	FolderID  *string
	FileURL   *string
	FileSize  *int64
	MimeType  *string
}

// UpdateAsset 更新素材
// 替换文件（FileURL）时版本号加一；已终审的素材不可再修改
func (s *AssetService) UpdateAsset(ctx context.Context, tenantID, assetID string, req *UpdateAssetRequest) (*Asset, error) {
	asset, err := s.GetAsset(ctx, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	if asset.IsFinalApproved() {
		return nil, common.NewBusinessError(common.CodeApprovalAlreadyFinal, "素材已终审通过，不可修改")
	}

	updates := make(map[string]any)
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("素材名称不能为空")
		}
		updates["name"] = *req.Name
	}
	if req.ProjectID != nil {
		// 只允许给未关联项目的素材补关联，已入项目的素材不可迁移
		if asset.ProjectID != "" {
			return nil, fmt.Errorf("素材已关联项目，不可迁移")
		}
		proj, err := s.projectSvc.GetProject(ctx, tenantID, *req.ProjectID)
		if err != nil {
			return nil, err
		}
		if proj.Status != project.StatusActive {
			return nil, common.NewBusinessError(common.CodeProjectArchived,
				fmt.Sprintf("项目状态为 %s，不可加入素材", proj.Status))
		}
		updates["project_id"] = *req.ProjectID
	}
	if req.FolderID != nil {
		folder, err := s.GetFolder(ctx, tenantID, *req.FolderID)
		if err != nil {
			return nil, err
		}
		if folder.ProjectID != asset.ProjectID {
			return nil, fmt.Errorf("文件夹不属于该项目")
		}
		updates["folder_id"] = *req.FolderID
	}
	if req.FileURL != nil {
		updates["file_url"] = *req.FileURL
		updates["version"] = asset.Version + 1
	}
	if req.FileSize != nil {
		updates["file_size"] = *req.FileSize
	}
	if req.MimeType != nil {
		updates["mime_type"] = *req.MimeType
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.db.WithContext(ctx).
		Model(asset).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新素材失败: %w", err)
	}

	return s.GetAsset(ctx, tenantID, assetID)
}

// DeleteAsset 软删除素材
func (s *AssetService) DeleteAsset(ctx context.Context, tenantID, assetID, operatorID string) error {
	asset, err := s.GetAsset(ctx, tenantID, assetID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(asset).
		Updates(map[string]any{
			"deleted_at": now,
			"deleted_by": operatorID,
			"updated_at": now,
		}).Error; err != nil {
		return fmt.Errorf("删除素材失败: %w", err)
	}
	return nil
}
