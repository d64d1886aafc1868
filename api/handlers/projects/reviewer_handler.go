package projects

import (
	"net/http"
	"strconv"
	"strings"

	"backend/api/handlers/response"
	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
)

// ReviewerHandler 阶段评审人分配 Handler
type ReviewerHandler struct {
	service *approval.Service
}

// NewReviewerHandler 创建 ReviewerHandler 实例
func NewReviewerHandler(service *approval.Service) *ReviewerHandler {
	return &ReviewerHandler{service: service}
}

// actorRole 从认证上下文推断操作者角色
func actorRole(c *gin.Context) string {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		return ""
	}
	for _, role := range userCtx.Roles {
		if strings.EqualFold(role, approval.RoleAdmin) {
			return approval.RoleAdmin
		}
	}
	return "member"
}

// AssignReviewerBody 分配评审人请求体
type AssignReviewerBody struct {
	StageOrder int    `json:"stage_order" binding:"required,min=1"`
	UserID     string `json:"user_id" binding:"required"`
}

// AssignReviewer 为项目某阶段分配评审人
// @Summary 分配阶段评审人
// @Description 分配同时刷新未开始素材的所需批准数快照
// @Tags Projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "项目 ID"
// @Param request body AssignReviewerBody true "分配参数"
// @Success 201 {object} approval.StageReviewerAssignment
// @Failure 403 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /api/projects/{id}/reviewers [post]
func (h *ReviewerHandler) AssignReviewer(c *gin.Context) {
	var body AssignReviewerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	assignment, err := h.service.AssignReviewer(c.Request.Context(), &approval.AssignReviewerRequest{
		TenantID:   c.GetString("tenant_id"),
		ProjectID:  c.Param("id"),
		StageOrder: body.StageOrder,
		UserID:     body.UserID,
		AssignedBy: c.GetString("user_id"),
		ActorRole:  actorRole(c),
	})
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// ListReviewers 查询项目评审人
// @Summary 查询阶段评审人
// @Tags Projects
// @Security BearerAuth
// @Produce json
// @Param id path string true "项目 ID"
// @Param stage_order query int false "仅看某阶段"
// @Success 200 {object} map[string]any
// @Failure 404 {object} common.APIResponse
// @Router /api/projects/{id}/reviewers [get]
func (h *ReviewerHandler) ListReviewers(c *gin.Context) {
	var stageOrder *int
	if raw := c.Query("stage_order"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			stageOrder = &v
		}
	}

	assignments, err := h.service.ListReviewers(c.Request.Context(), c.GetString("tenant_id"), c.Param("id"), stageOrder)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviewers": assignments})
}

// UnassignReviewer 移除评审人分配
// @Summary 移除阶段评审人
// @Tags Projects
// @Security BearerAuth
// @Produce json
// @Param id path string true "项目 ID"
// @Param assignmentId path string true "分配记录 ID"
// @Success 200 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /api/projects/{id}/reviewers/{assignmentId} [delete]
func (h *ReviewerHandler) UnassignReviewer(c *gin.Context) {
	err := h.service.UnassignReviewer(
		c.Request.Context(),
		c.GetString("tenant_id"),
		c.Param("assignmentId"),
		c.GetString("user_id"),
		actorRole(c),
	)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	common.ResponseSuccessMessage(c, "评审人已移除", nil)
}
