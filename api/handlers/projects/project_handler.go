package projects

import (
	"net/http"

	"backend/api/handlers/response"
	"backend/internal/common"
	"backend/internal/project"

	"github.com/gin-gonic/gin"
)

// ProjectHandler 项目管理 Handler
type ProjectHandler struct {
	service *project.ProjectService
}

// NewProjectHandler 创建 ProjectHandler 实例
func NewProjectHandler(service *project.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// ListProjects 查询项目列表
// @Summary 查询项目列表
// @Tags Projects
// @Security BearerAuth
// @Produce json
// @Param status query string false "项目状态(active/completed/archived)"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} project.ListProjectsResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	var pr common.PaginationRequest
	if err := c.ShouldBindQuery(&pr); err != nil {
		response.BadRequest(c, err)
		return
	}

	req := &project.ListProjectsRequest{
		TenantID: c.GetString("tenant_id"),
		Status:   c.Query("status"),
		Page:     pr.Page,
		PageSize: pr.PageSize,
	}

	resp, err := h.service.ListProjects(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetProject 查询项目详情
// @Summary 查询项目详情
// @Tags Projects
// @Security BearerAuth
// @Produce json
// @Param id path string true "项目 ID"
// @Success 200 {object} project.Project
// @Failure 404 {object} common.APIResponse
// @Router /api/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	projectID := c.Param("id")

	p, err := h.service.GetProject(c.Request.Context(), tenantID, projectID)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetProjectWorkflow 查询项目使用的工作流
// @Summary 查询项目工作流
// @Tags Projects
// @Security BearerAuth
// @Produce json
// @Param id path string true "项目 ID"
// @Success 200 {object} workflow.Workflow
// @Failure 404 {object} common.APIResponse
// @Router /api/projects/{id}/workflow [get]
func (h *ProjectHandler) GetProjectWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	projectID := c.Param("id")

	wf, err := h.service.GetProjectWorkflow(c.Request.Context(), tenantID, projectID)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, wf)
}

// CreateProject 创建项目
// @Summary 创建项目
// @Description 指定工作流时校验其属于当前组织且未归档
// @Tags Projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body project.CreateProjectRequest true "项目创建参数"
// @Success 201 {object} project.Project
// @Failure 400 {object} common.APIResponse
// @Router /api/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req project.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	req.TenantID = c.GetString("tenant_id")
	req.CreatedBy = c.GetString("user_id")

	p, err := h.service.CreateProject(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// UpdateProject 更新项目
// @Summary 更新项目
// @Description 项目下已有素材时不允许更换工作流
// @Tags Projects
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "项目 ID"
// @Param request body project.UpdateProjectRequest true "更新参数"
// @Success 200 {object} project.Project
// @Failure 400 {object} common.APIResponse
// @Router /api/projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	projectID := c.Param("id")

	var req project.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	p, err := h.service.UpdateProject(c.Request.Context(), tenantID, projectID, &req)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusOK, p)
}

// DeleteProject 删除项目
// @Summary 删除项目
// @Tags Projects
// @Security BearerAuth
// @Produce json
// @Param id path string true "项目 ID"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	projectID := c.Param("id")
	operatorID := c.GetString("user_id")

	if err := h.service.DeleteProject(c.Request.Context(), tenantID, projectID, operatorID); err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	common.ResponseSuccessMessage(c, "项目删除成功", nil)
}
