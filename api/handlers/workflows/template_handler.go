package workflows

import (
	"net/http"

	"backend/api/handlers/response"
	"backend/internal/common"
	workflowTpl "backend/internal/workflow/template"

	"github.com/gin-gonic/gin"
)

// TemplateHandler 阶段模板 Handler，提供内置工作流模板查询
type TemplateHandler struct {
	loader *workflowTpl.TemplateLoader
}

// NewTemplateHandler 创建 TemplateHandler 实例
func NewTemplateHandler(loader *workflowTpl.TemplateLoader) *TemplateHandler {
	return &TemplateHandler{loader: loader}
}

// ListTemplates 查询阶段模板列表
// @Summary 查询阶段模板列表
// @Description 返回可用的工作流阶段模板，可按分类筛选
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param category query string false "模板分类"
// @Success 200 {object} map[string]any
// @Router /api/workflows/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		c.JSON(http.StatusOK, gin.H{"templates": h.loader.ListByCategory(category)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": h.loader.ListTemplates()})
}

// GetTemplate 查询单个阶段模板
// @Summary 查询阶段模板详情
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param key path string true "模板键名"
// @Success 200 {object} map[string]any
// @Failure 404 {object} common.APIResponse
// @Router /api/workflows/templates/{key} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.loader.GetTemplate(c.Param("key"))
	if err != nil {
		response.Error(c, err, common.CodeNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"template": tpl,
		"stages":   tpl.StageList(),
	})
}
