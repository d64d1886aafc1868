package comment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/common"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CommentService 素材评论服务
type CommentService struct {
	db *gorm.DB
}

// NewCommentService 创建 CommentService 实例
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// CreateCommentRequest 创建评论请求
type CreateCommentRequest struct {
	TenantID   string
	AssetID    string
	ParentID   *string
	AuthorID   string
	Body       string
	Annotation *Annotation
}

// CreateComment 创建评论
// 回复必须指向同素材下的评论；回复不允许带标注
func (s *CommentService) CreateComment(ctx context.Context, req *CreateCommentRequest) (*Comment, error) {
	if req.Body == "" {
		return nil, fmt.Errorf("评论内容不能为空")
	}

	var assetCount int64
	if err := s.db.WithContext(ctx).
		Table("assets").
		Where("id = ? AND tenant_id = ? AND deleted_at IS NULL", req.AssetID, req.TenantID).
		Count(&assetCount).Error; err != nil {
		return nil, fmt.Errorf("查询素材失败: %w", err)
	}
	if assetCount == 0 {
		return nil, common.NewBusinessErrorWithCode(common.CodeAssetNotFound)
	}

	if req.ParentID != nil {
		parent, err := s.GetComment(ctx, req.TenantID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.AssetID != req.AssetID {
			return nil, fmt.Errorf("父评论不属于该素材")
		}
		if req.Annotation != nil {
			return nil, fmt.Errorf("回复不可带标注")
		}
	}

	comment := &Comment{
		ID:        uuid.New().String(),
		TenantID:  req.TenantID,
		AssetID:   req.AssetID,
		ParentID:  req.ParentID,
		AuthorID:  req.AuthorID,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if req.Annotation != nil {
		raw, err := json.Marshal(req.Annotation)
		if err != nil {
			return nil, fmt.Errorf("序列化标注失败: %w", err)
		}
		comment.Annotation = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("创建评论失败: %w", err)
	}

	return comment, nil
}

// GetComment 查询单条评论
func (s *CommentService) GetComment(ctx context.Context, tenantID, commentID string) (*Comment, error) {
	var comment Comment
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("id = ?", commentID).
		First(&comment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NewBusinessErrorWithCode(common.CodeCommentNotFound)
		}
		return nil, fmt.Errorf("查询评论失败: %w", err)
	}
	return &comment, nil
}

// ListComments 查询素材的全部评论，按创建时间升序（楼中楼由 parent_id 还原）
func (s *CommentService) ListComments(ctx context.Context, tenantID, assetID string, resolved *bool) ([]*Comment, error) {
	query := s.db.WithContext(ctx).
		Scopes(common.NotDeleted(), common.ByTenant(tenantID)).
		Where("asset_id = ?", assetID)
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}

	var comments []*Comment
	if err := query.Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("查询评论列表失败: %w", err)
	}
	return comments, nil
}

// UpdateComment 编辑评论正文，旧正文连同统一 diff 归档进历史
// 仅作者本人可编辑
func (s *CommentService) UpdateComment(ctx context.Context, tenantID, commentID, actingUserID, body string) (*Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("评论内容不能为空")
	}

	comment, err := s.GetComment(ctx, tenantID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actingUserID {
		return nil, common.NewBusinessError(common.CodeForbidden, "仅作者本人可编辑评论")
	}
	if body == comment.Body {
		return comment, nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(comment.Body),
		B:        difflib.SplitLines(body),
		FromFile: "before",
		ToFile:   "after",
		Context:  2,
	})
	if err != nil {
		return nil, fmt.Errorf("生成编辑 diff 失败: %w", err)
	}

	now := time.Now().UTC()
	history := append(comment.History, Revision{
		Body:     comment.Body,
		Diff:     diff,
		EditedAt: now,
	})

	if err := s.db.WithContext(ctx).
		Model(comment).
		Updates(map[string]any{
			"body":       body,
			"history":    history,
			"updated_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("更新评论失败: %w", err)
	}

	return s.GetComment(ctx, tenantID, commentID)
}

// ResolveComment 标记/取消解决
func (s *CommentService) ResolveComment(ctx context.Context, tenantID, commentID, actingUserID string, resolved bool) (*Comment, error) {
	comment, err := s.GetComment(ctx, tenantID, commentID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"resolved":   resolved,
		"updated_at": time.Now().UTC(),
	}
	if resolved {
		now := time.Now().UTC()
		updates["resolved_by"] = actingUserID
		updates["resolved_at"] = now
	} else {
		updates["resolved_by"] = ""
		updates["resolved_at"] = nil
	}

	if err := s.db.WithContext(ctx).
		Model(comment).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新解决状态失败: %w", err)
	}

	return s.GetComment(ctx, tenantID, commentID)
}

// DeleteComment 软删除评论（作者或组织管理员）
func (s *CommentService) DeleteComment(ctx context.Context, tenantID, commentID, actingUserID, actorRole string) error {
	comment, err := s.GetComment(ctx, tenantID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actingUserID && actorRole != "admin" {
		return common.NewBusinessError(common.CodeForbidden, "仅作者或组织管理员可删除评论")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(comment).
		Updates(map[string]any{
			"deleted_at": now,
			"deleted_by": actingUserID,
			"updated_at": now,
		}).Error; err != nil {
		return fmt.Errorf("删除评论失败: %w", err)
	}
	return nil
}
