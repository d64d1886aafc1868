package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/approval"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordResponse(t *testing.T, write func(c *gin.Context)) (*httptest.ResponseRecorder, common.APIResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	write(c)

	var body common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestErrorMapsApprovalCodes(t *testing.T) {
	t.Run("素材不存在映射 404", func(t *testing.T) {
		err := approval.ErrNotFound("素材不存在").WithCode(common.CodeAssetNotFound)
		w, body := recordResponse(t, func(c *gin.Context) {
			Error(c, err, common.CodeInternalError)
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, body.Success)
		assert.Equal(t, common.CodeAssetNotFound, body.Code)
		assert.Equal(t, "素材不存在", body.Message)
	})

	t.Run("未待终审映射 409", func(t *testing.T) {
		err := approval.ErrInvalidState("最后阶段当前状态为 %s，不可终审", "in_review").
			WithCode(common.CodeApprovalNotPending)
		w, body := recordResponse(t, func(c *gin.Context) {
			Error(c, err, common.CodeInternalError)
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, common.CodeApprovalNotPending, body.Code)
	})

	t.Run("非本人记录映射 403", func(t *testing.T) {
		err := approval.ErrForbidden("评审决定仅限本人提交").WithCode(common.CodeApprovalNotReviewer)
		w, body := recordResponse(t, func(c *gin.Context) {
			Error(c, err, common.CodeInternalError)
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, common.CodeApprovalNotReviewer, body.Code)
	})

	t.Run("类别默认码生效", func(t *testing.T) {
		w, body := recordResponse(t, func(c *gin.Context) {
			Error(c, approval.ErrUnauthorized("缺少调用者身份"), common.CodeInternalError)
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, common.CodeUnauthorized, body.Code)
	})
}

func TestErrorMapsBusinessError(t *testing.T) {
	t.Run("工作流冻结映射 409", func(t *testing.T) {
		err := common.NewBusinessError(common.CodeWorkflowFrozen, "已有 2 个项目引用该工作流，阶段不可修改")
		w, body := recordResponse(t, func(c *gin.Context) {
			Error(c, err, common.CodeValidationFailed)
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, common.CodeWorkflowFrozen, body.Code)
	})

	t.Run("默认消息来自码表", func(t *testing.T) {
		err := common.NewBusinessErrorWithCode(common.CodeCommentNotFound)
		w, body := recordResponse(t, func(c *gin.Context) {
			Error(c, err, common.CodeInternalError)
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "评论不存在", body.Message)
	})

	t.Run("包装后仍可识别", func(t *testing.T) {
		wrapped := fmt.Errorf("阶段定义无效: %w",
			common.NewBusinessError(common.CodeWorkflowValidationFailed, "阶段序号必须从 1 连续编号"))
		w, body := recordResponse(t, func(c *gin.Context) {
			Error(c, wrapped, common.CodeInternalError)
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, common.CodeWorkflowValidationFailed, body.Code)
	})
}

func TestErrorFallback(t *testing.T) {
	w, body := recordResponse(t, func(c *gin.Context) {
		Error(c, fmt.Errorf("统计素材数量失败"), common.CodeInternalError)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, common.CodeInternalError, body.Code)
	assert.Equal(t, "统计素材数量失败", body.Message)
}

func TestBadRequest(t *testing.T) {
	w, body := recordResponse(t, func(c *gin.Context) {
		BadRequest(c, fmt.Errorf("missing field"))
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.CodeInvalidRequest, body.Code)
	assert.Contains(t, body.Message, "请求参数错误")
}
