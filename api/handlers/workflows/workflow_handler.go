package workflows

import (
	"net/http"

	"backend/api/handlers/response"
	"backend/internal/common"
	"backend/internal/workflow"

	"github.com/gin-gonic/gin"
)

// WorkflowHandler 审批工作流管理 Handler
type WorkflowHandler struct {
	service *workflow.WorkflowService
}

// NewWorkflowHandler 创建 WorkflowHandler 实例
func NewWorkflowHandler(service *workflow.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// ListWorkflows 查询工作流列表
// @Summary 查询工作流列表
// @Description 查询当前组织的审批工作流，默认不含已归档
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param include_archived query bool false "是否包含已归档工作流"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} workflow.ListWorkflowsResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/workflows [get]
func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	var pr common.PaginationRequest
	if err := c.ShouldBindQuery(&pr); err != nil {
		response.BadRequest(c, err)
		return
	}

	req := &workflow.ListWorkflowsRequest{
		TenantID:        c.GetString("tenant_id"),
		IncludeArchived: c.Query("include_archived") == "true",
		Page:            pr.Page,
		PageSize:        pr.PageSize,
	}

	resp, err := h.service.ListWorkflows(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetWorkflow 查询单个工作流
// @Summary 查询工作流详情
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param id path string true "工作流 ID"
// @Success 200 {object} workflow.Workflow
// @Failure 404 {object} common.APIResponse
// @Router /api/workflows/{id} [get]
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	workflowID := c.Param("id")

	wf, err := h.service.GetWorkflow(c.Request.Context(), tenantID, workflowID)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, wf)
}

// CreateWorkflow 创建工作流
// @Summary 创建工作流
// @Description 创建带有序阶段列表的审批工作流
// @Tags Workflows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body workflow.CreateWorkflowRequest true "工作流创建参数"
// @Success 201 {object} workflow.Workflow
// @Failure 400 {object} common.APIResponse
// @Router /api/workflows [post]
func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	var req workflow.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	req.TenantID = tenantID
	req.CreatedBy = userID

	wf, err := h.service.CreateWorkflow(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusCreated, wf)
}

// UpdateWorkflow 更新工作流
// @Summary 更新工作流
// @Description 已被项目引用的工作流阶段列表被冻结，仅可改名称与描述
// @Tags Workflows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "工作流 ID"
// @Param request body workflow.UpdateWorkflowRequest true "更新参数"
// @Success 200 {object} workflow.Workflow
// @Failure 400 {object} common.APIResponse
// @Router /api/workflows/{id} [put]
func (h *WorkflowHandler) UpdateWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	workflowID := c.Param("id")

	var req workflow.UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	wf, err := h.service.UpdateWorkflow(c.Request.Context(), tenantID, workflowID, &req)
	if err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	c.JSON(http.StatusOK, wf)
}

// SetDefaultWorkflow 设为组织默认工作流
// @Summary 设为默认工作流
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param id path string true "工作流 ID"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/workflows/{id}/default [put]
func (h *WorkflowHandler) SetDefaultWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	workflowID := c.Param("id")

	if err := h.service.SetDefaultWorkflow(c.Request.Context(), tenantID, workflowID); err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	common.ResponseSuccessMessage(c, "已设为默认工作流", nil)
}

// ArchiveWorkflow 归档工作流
// @Summary 归档工作流
// @Description 归档后不可被新项目选用，已引用的项目不受影响
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param id path string true "工作流 ID"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/workflows/{id}/archive [post]
func (h *WorkflowHandler) ArchiveWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	workflowID := c.Param("id")

	if err := h.service.ArchiveWorkflow(c.Request.Context(), tenantID, workflowID); err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	common.ResponseSuccessMessage(c, "工作流已归档", nil)
}

// DeleteWorkflow 删除工作流
// @Summary 删除工作流
// @Description 被项目引用的工作流不可删除
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param id path string true "工作流 ID"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/workflows/{id} [delete]
func (h *WorkflowHandler) DeleteWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	workflowID := c.Param("id")
	operatorID := c.GetString("user_id")

	if err := h.service.DeleteWorkflow(c.Request.Context(), tenantID, workflowID, operatorID); err != nil {
		response.Error(c, err, common.CodeValidationFailed)
		return
	}

	common.ResponseSuccessMessage(c, "工作流删除成功", nil)
}
