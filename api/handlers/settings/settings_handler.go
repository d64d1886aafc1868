package settings

import (
	"net/http"

	"backend/api/handlers/response"
	"backend/internal/common"
	"backend/internal/settings"

	"github.com/gin-gonic/gin"
)

// SettingsHandler 用户界面设置 Handler
type SettingsHandler struct {
	repo settings.Repository
}

// NewSettingsHandler 创建 SettingsHandler 实例
func NewSettingsHandler(repo settings.Repository) *SettingsHandler {
	return &SettingsHandler{repo: repo}
}

// GetSettings 读取当前用户设置
// @Summary 读取用户设置
// @Description 未写入过时返回默认设置
// @Tags Settings
// @Security BearerAuth
// @Produce json
// @Success 200 {object} settings.Settings
// @Failure 500 {object} common.APIResponse
// @Router /api/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s, err := h.repo.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, s)
}

// UpdateSettings 覆盖写入当前用户设置
// @Summary 更新用户设置
// @Tags Settings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body settings.Settings true "设置内容"
// @Success 200 {object} settings.Settings
// @Failure 400 {object} common.APIResponse
// @Router /api/settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var body settings.Settings
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}
	if body.SearchMode == "" {
		body.SearchMode = "all"
	}
	if body.Onboarding == nil {
		body.Onboarding = map[string]bool{}
	}

	if err := h.repo.Set(c.Request.Context(), c.GetString("tenant_id"), c.GetString("user_id"), &body); err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, &body)
}

// RecentSearchBody 记录搜索词请求体
type RecentSearchBody struct {
	Term string `json:"term" binding:"required"`
}

// PushRecentSearch 记录一次搜索词
// @Summary 记录最近搜索
// @Description 搜索词去重置顶，最多保留十条
// @Tags Settings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body RecentSearchBody true "搜索词"
// @Success 200 {object} settings.Settings
// @Failure 400 {object} common.APIResponse
// @Router /api/settings/recent-searches [post]
func (h *SettingsHandler) PushRecentSearch(c *gin.Context) {
	var body RecentSearchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}

	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	s, err := h.repo.Get(c.Request.Context(), tenantID, userID)
	if err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	s.PushRecentSearch(body.Term)
	if err := h.repo.Set(c.Request.Context(), tenantID, userID, s); err != nil {
		response.Error(c, err, common.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, s)
}
