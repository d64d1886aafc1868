package assets

import (
	"net/http"

	"backend/api/handlers/response"
	"backend/internal/approval"
	"backend/internal/asset"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
)

// AssetHandler 素材管理 Handler
type AssetHandler struct {
	service     *asset.AssetService
	approvalSvc *approval.Service
}

// NewAssetHandler 创建 AssetHandler 实例
func NewAssetHandler(service *asset.AssetService, approvalSvc *approval.Service) *AssetHandler {
	return &AssetHandler{service: service, approvalSvc: approvalSvc}
}

// AssetListItem 素材列表项，附带派生的审批状态
type AssetListItem struct {
	*asset.Asset
	CurrentStage  int    `json:"currentStage"`
	OverallStatus string `json:"overallStatus"`
}

// AssetListResponse 素材列表响应
type AssetListResponse struct {
	Assets     []*AssetListItem `json:"assets"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// ListAssets 查询素材列表
// @Summary 查询素材列表
// @Description 每个列表项附带派生的 currentStage 与 overallStatus
// @Tags Assets
// @Security BearerAuth
// @Produce json
// @Param project_id query string false "项目 ID"
// @Param folder_id query string false "文件夹 ID"
// @Param type query string false "素材类型"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} AssetListResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/assets [get]
func (h *AssetHandler) ListAssets(c *gin.Context) {
	var pr common.PaginationRequest
	if err := c.ShouldBindQuery(&pr); err != nil {
		response.BadRequest(c, err)
		return
	}

	req := &asset.ListAssetsRequest{
		TenantID:  c.GetString("tenant_id"),
		ProjectID: c.Query("project_id"),
		Type:      c.Query("type"),
		Page:      pr.Page,
		PageSize:  pr.PageSize,
	}
	if raw := c.Query("folder_id"); raw != "" {
		req.FolderID = &raw
	}

	resp, err := h.service.ListAssets(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	ids := make([]string, 0, len(resp.Assets))
	for _, a := range resp.Assets {
		ids = append(ids, a.ID)
	}
	statuses, err := h.approvalSvc.StatusesForAssets(c.Request.Context(), req.TenantID, ids)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	items := make([]*AssetListItem, 0, len(resp.Assets))
	for _, a := range resp.Assets {
		status := statuses[a.ID]
		items = append(items, &AssetListItem{
			Asset:         a,
			CurrentStage:  status.CurrentStage,
			OverallStatus: status.OverallStatus,
		})
	}

	c.JSON(http.StatusOK, &AssetListResponse{
		Assets:     items,
		Total:      resp.Total,
		Page:       resp.Page,
		PageSize:   resp.PageSize,
		TotalPages: resp.TotalPages,
	})
}

// GetAsset 查询素材详情
// @Summary 查询素材详情
// @Tags Assets
// @Security BearerAuth
// @Produce json
// @Param assetId path string true "素材 ID"
// @Success 200 {object} asset.Asset
// @Failure 404 {object} common.APIResponse
// @Router /api/assets/{assetId} [get]
func (h *AssetHandler) GetAsset(c *gin.Context) {
	a, err := h.service.GetAsset(c.Request.Context(), c.GetString("tenant_id"), c.Param("assetId"))
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, a)
}

// GetAssetStatus 查询素材审批状态
// @Summary 查询素材审批状态
// @Description 返回各阶段进度与派生的整体状态、当前阶段
// @Tags Assets
// @Security BearerAuth
// @Produce json
// @Param assetId path string true "素材 ID"
// @Success 200 {object} approval.AssetApprovalSummary
// @Failure 404 {object} common.APIResponse
// @Router /api/assets/{assetId}/status [get]
func (h *AssetHandler) GetAssetStatus(c *gin.Context) {
	summary, err := h.approvalSvc.GetApprovalSummary(c.Request.Context(), c.GetString("tenant_id"), c.Param("assetId"))
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// CreateAsset 创建素材
// @Summary 创建素材
// @Description 素材可以不属于任何项目；无项目的素材不可放入文件夹
// @Tags Assets
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body asset.CreateAssetRequest true "素材创建参数"
// @Success 201 {object} asset.Asset
// @Failure 400 {object} common.APIResponse
// @Router /api/assets [post]
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req asset.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	req.TenantID = c.GetString("tenant_id")
	req.CreatedBy = c.GetString("user_id")

	a, err := h.service.CreateAsset(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusCreated, a)
}

// UpdateAsset 更新素材
// @Summary 更新素材
// @Description 替换文件时版本号加一；已终审的素材不可修改
// @Tags Assets
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param assetId path string true "素材 ID"
// @Param request body asset.UpdateAssetRequest true "更新参数"
// @Success 200 {object} asset.Asset
// @Failure 400 {object} common.APIResponse
// @Router /api/assets/{assetId} [put]
func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	var req asset.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	a, err := h.service.UpdateAsset(c.Request.Context(), c.GetString("tenant_id"), c.Param("assetId"), &req)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusOK, a)
}

// DeleteAsset 删除素材
// @Summary 删除素材
// @Tags Assets
// @Security BearerAuth
// @Produce json
// @Param assetId path string true "素材 ID"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/assets/{assetId} [delete]
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	err := h.service.DeleteAsset(c.Request.Context(), c.GetString("tenant_id"), c.Param("assetId"), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	common.ResponseSuccessMessage(c, "素材删除成功", nil)
}
