package approvals

import (
	"net/http"
	"strings"

	"backend/api/handlers/response"
	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
)

// ApprovalHandler 素材审批 Handler
type ApprovalHandler struct {
	service *approval.Service
}

// NewApprovalHandler 创建 ApprovalHandler 实例
func NewApprovalHandler(service *approval.Service) *ApprovalHandler {
	return &ApprovalHandler{service: service}
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

// GetSummary 查询素材审批汇总
// @Summary 查询审批汇总
// @Description 返回素材所有阶段的进度与派生整体状态
// @Tags Approvals
// @Security BearerAuth
// @Produce json
// @Param assetId path string true "素材 ID"
// @Success 200 {object} approval.AssetApprovalSummary
// @Failure 404 {object} common.APIResponse
// @Router /api/assets/{assetId}/approval [get]
func (h *ApprovalHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.GetApprovalSummary(c.Request.Context(), c.GetString("tenant_id"), c.Param("assetId"))
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// SubmitForReviewBody 提交评审请求体
type SubmitForReviewBody struct {
	StageOrder int `json:"stage_order" binding:"required,min=1"`
}

// SubmitForReview 提交素材到某阶段评审
// @Summary 提交阶段评审
// @Description 为该阶段每个评审人建立待定记录并把进度置为评审中
// @Tags Approvals
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param assetId path string true "素材 ID"
// @Param request body SubmitForReviewBody true "提交参数"
// @Success 200 {object} approval.StageProgress
// @Failure 409 {object} common.APIResponse
// @Router /api/assets/{assetId}/approval/submit [post]
func (h *ApprovalHandler) SubmitForReview(c *gin.Context) {
	var body SubmitForReviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	progress, err := h.service.SubmitForReview(c.Request.Context(), &approval.SubmitForReviewRequest{
		TenantID:   c.GetString("tenant_id"),
		AssetID:    c.Param("assetId"),
		StageOrder: body.StageOrder,
		ActorID:    c.GetString("user_id"),
	})
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// SetReviewerStatusBody 评审决定请求体
type SetReviewerStatusBody struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// SetReviewerStatus 评审人提交本人的评审决定
// @Summary 提交评审决定
// @Description 仅可操作本人的评审记录；status 取 approved 或 changes_requested
// @Tags Approvals
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param assetId path string true "素材 ID"
// @Param recordId path string true "评审记录 ID"
// @Param request body SetReviewerStatusBody true "评审决定"
// @Success 200 {object} approval.UserStageApproval
// @Failure 403 {object} common.APIResponse
// @Router /api/assets/{assetId}/approval/records/{recordId} [put]
func (h *ApprovalHandler) SetReviewerStatus(c *gin.Context) {
	var body SetReviewerStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	record, err := h.service.SetReviewerStatus(c.Request.Context(), &approval.SetReviewerStatusRequest{
		TenantID:     c.GetString("tenant_id"),
		AssetID:      c.Param("assetId"),
		RecordID:     c.Param("recordId"),
		ActingUserID: c.GetString("user_id"),
		Status:       body.Status,
		Note:         body.Note,
	})
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, record)
}

// RecordFinalApprovalBody 终审请求体
type RecordFinalApprovalBody struct {
	Notes string `json:"notes"`
}

// RecordFinalApproval 记录终审批准
// @Summary 终审批准
// @Description 仅项目创建人或组织管理员可操作，且最高阶段须处于待终审状态
// @Tags Approvals
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param assetId path string true "素材 ID"
// @Param request body RecordFinalApprovalBody false "终审备注"
// @Success 200 {object} approval.FinalApprovalResult
// @Failure 403 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse
// @Router /api/assets/{assetId}/approval/final [post]
func (h *ApprovalHandler) RecordFinalApproval(c *gin.Context) {
	var body RecordFinalApprovalBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err)
			return
		}
	}

	result, err := h.service.RecordFinalApproval(c.Request.Context(), &approval.RecordFinalApprovalRequest{
		TenantID:     c.GetString("tenant_id"),
		AssetID:      c.Param("assetId"),
		ActingUserID: c.GetString("user_id"),
		ActorRole:    actorRole(c),
		Notes:        body.Notes,
	})
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RecomputeProgress 重算素材各阶段进度聚合
// @Summary 重算阶段进度
// @Description 按现有评审记录重算每个阶段的计数与状态
// @Tags Approvals
// @Security BearerAuth
// @Produce json
// @Param assetId path string true "素材 ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} common.APIResponse
// @Router /api/assets/{assetId}/approval/recompute [post]
func (h *ApprovalHandler) RecomputeProgress(c *gin.Context) {
	progress, err := h.service.RecomputeStageProgress(c.Request.Context(), c.GetString("tenant_id"), c.Param("assetId"))
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
