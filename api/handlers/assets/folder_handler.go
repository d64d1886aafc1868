package assets

import (
	"net/http"

	"backend/api/handlers/response"
	"backend/internal/asset"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
)

// FolderHandler 素材文件夹 Handler
type FolderHandler struct {
	service *asset.AssetService
}

// NewFolderHandler 创建 FolderHandler 实例
func NewFolderHandler(service *asset.AssetService) *FolderHandler {
	return &FolderHandler{service: service}
}

// CreateFolder 创建文件夹
// @Summary 创建文件夹
// @Description 文件夹层级最多五层
// @Tags Assets
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body asset.CreateFolderRequest true "文件夹创建参数"
// @Success 201 {object} asset.Folder
// @Failure 400 {object} common.APIResponse
// @Router /api/folders [post]
func (h *FolderHandler) CreateFolder(c *gin.Context) {
	var req asset.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	req.TenantID = c.GetString("tenant_id")
	req.CreatedBy = c.GetString("user_id")

	folder, err := h.service.CreateFolder(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusCreated, folder)
}

// ListFolders 查询文件夹列表
// @Summary 查询文件夹列表
// @Tags Assets
// @Security BearerAuth
// @Produce json
// @Param project_id query string true "项目 ID"
// @Param parent_id query string false "父文件夹 ID，缺省为项目根"
// @Success 200 {object} map[string]any
// @Failure 500 {object} common.APIResponse
// @Router /api/folders [get]
func (h *FolderHandler) ListFolders(c *gin.Context) {
	var parentID *string
	if raw := c.Query("parent_id"); raw != "" {
		parentID = &raw
	}

	folders, err := h.service.ListFolders(c.Request.Context(), c.GetString("tenant_id"), c.Query("project_id"), parentID)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

// GetFolder 查询文件夹详情
// @Summary 查询文件夹详情
// @Tags Assets
// @Security BearerAuth
// @Produce json
// @Param id path string true "文件夹 ID"
// @Success 200 {object} asset.Folder
// @Failure 404 {object} common.APIResponse
// @Router /api/folders/{id} [get]
func (h *FolderHandler) GetFolder(c *gin.Context) {
	folder, err := h.service.GetFolder(c.Request.Context(), c.GetString("tenant_id"), c.Param("id"))
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, folder)
}

// RenameFolderBody 重命名文件夹请求体
type RenameFolderBody struct {
	Name string `json:"name" binding:"required"`
}

// RenameFolder 重命名文件夹
// @Summary 重命名文件夹
// @Tags Assets
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "文件夹 ID"
// @Param request body RenameFolderBody true "新名称"
// @Success 200 {object} asset.Folder
// @Failure 400 {object} common.APIResponse
// @Router /api/folders/{id} [put]
func (h *FolderHandler) RenameFolder(c *gin.Context) {
	var body RenameFolderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	folder, err := h.service.RenameFolder(c.Request.Context(), c.GetString("tenant_id"), c.Param("id"), body.Name)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusOK, folder)
}

// DeleteFolder 删除文件夹
// @Summary 删除文件夹
// @Description 仅允许删除空文件夹
// @Tags Assets
// @Security BearerAuth
// @Produce json
// @Param id path string true "文件夹 ID"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/folders/{id} [delete]
func (h *FolderHandler) DeleteFolder(c *gin.Context) {
	err := h.service.DeleteFolder(c.Request.Context(), c.GetString("tenant_id"), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	common.ResponseSuccessMessage(c, "文件夹删除成功", nil)
}
