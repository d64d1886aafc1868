package comments

import (
	"net/http"
	"strings"

	"backend/api/handlers/response"
	"backend/internal/auth"
	"backend/internal/comment"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
)

// CommentHandler 素材评论 Handler
type CommentHandler struct {
	service *comment.CommentService
}

// NewCommentHandler 创建 CommentHandler 实例
func NewCommentHandler(service *comment.CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// actorRole 从认证上下文推断操作者角色
func actorRole(c *gin.Context) string {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		return ""
	}
	for _, role := range userCtx.Roles {
		if strings.EqualFold(role, "admin") {
			return "admin"
		}
	}
	return "member"
}

// CreateCommentBody 创建评论请求体
type CreateCommentBody struct {
	ParentID   *string             `json:"parent_id"`
	Body       string              `json:"body" binding:"required"`
	Annotation *comment.Annotation `json:"annotation"`
}

// CreateComment 创建评论或回复
// @Summary 创建评论
// @Description 顶层评论可附画面标注；回复不允许带标注
// @Tags Comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param assetId path string true "素材 ID"
// @Param request body CreateCommentBody true "评论内容"
// @Success 201 {object} comment.Comment
// @Failure 400 {object} common.APIResponse
// @Router /api/assets/{assetId}/comments [post]
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var body CreateCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	created, err := h.service.CreateComment(c.Request.Context(), &comment.CreateCommentRequest{
		TenantID:   c.GetString("tenant_id"),
		AssetID:    c.Param("assetId"),
		ParentID:   body.ParentID,
		AuthorID:   c.GetString("user_id"),
		Body:       body.Body,
		Annotation: body.Annotation,
	})
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// ListComments 查询素材评论
// @Summary 查询评论列表
// @Tags Comments
// @Security BearerAuth
// @Produce json
// @Param assetId path string true "素材 ID"
// @Param resolved query bool false "按解决状态筛选"
// @Success 200 {object} map[string]any
// @Failure 500 {object} common.APIResponse
// @Router /api/assets/{assetId}/comments [get]
func (h *CommentHandler) ListComments(c *gin.Context) {
	var resolved *bool
	if raw := c.Query("resolved"); raw != "" {
		v := raw == "true"
		resolved = &v
	}

	comments, err := h.service.ListComments(c.Request.Context(), c.GetString("tenant_id"), c.Param("assetId"), resolved)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// UpdateCommentBody 编辑评论请求体
type UpdateCommentBody struct {
	Body string `json:"body" binding:"required"`
}

// UpdateComment 编辑评论正文
// @Summary 编辑评论
// @Description 仅作者本人可编辑；旧正文与差异进入编辑历史
// @Tags Comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "评论 ID"
// @Param request body UpdateCommentBody true "新正文"
// @Success 200 {object} comment.Comment
// @Failure 403 {object} common.APIResponse
// @Router /api/comments/{id} [put]
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	var body UpdateCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	updated, err := h.service.UpdateComment(c.Request.Context(), c.GetString("tenant_id"), c.Param("id"), c.GetString("user_id"), body.Body)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ResolveCommentBody 解决评论请求体
type ResolveCommentBody struct {
	Resolved bool `json:"resolved"`
}

// ResolveComment 标记评论为已解决或重新打开
// @Summary 解决评论
// @Tags Comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "评论 ID"
// @Param request body ResolveCommentBody true "解决状态"
// @Success 200 {object} comment.Comment
// @Failure 404 {object} common.APIResponse
// @Router /api/comments/{id}/resolve [put]
func (h *CommentHandler) ResolveComment(c *gin.Context) {
	var body ResolveCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	updated, err := h.service.ResolveComment(c.Request.Context(), c.GetString("tenant_id"), c.Param("id"), c.GetString("user_id"), body.Resolved)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteComment 删除评论
// @Summary 删除评论
// @Description 作者本人或组织管理员可删除
// @Tags Comments
// @Security BearerAuth
// @Produce json
// @Param id path string true "评论 ID"
// @Success 200 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse
// @Router /api/comments/{id} [delete]
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	err := h.service.DeleteComment(c.Request.Context(), c.GetString("tenant_id"), c.Param("id"), c.GetString("user_id"), actorRole(c))
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	common.ResponseSuccessMessage(c, "评论删除成功", nil)
}
