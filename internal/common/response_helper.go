package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseSuccessMessage 返回成功响应（带消息）
func ResponseSuccessMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessMessageResponse(message, data))
}

// ResponseError 返回错误响应，业务码映射到 HTTP 状态码
func ResponseError(c *gin.Context, code int, message string) {
	httpStatus := http.StatusOK

	switch code {
	case CodeUnauthorized:
		httpStatus = http.StatusUnauthorized
	case CodeForbidden, CodeApprovalNotReviewer:
		httpStatus = http.StatusForbidden
	case CodeNotFound, CodeWorkflowNotFound, CodeProjectNotFound,
		CodeAssetNotFound, CodeFolderNotFound, CodeApprovalNotFound, CodeCommentNotFound:
		httpStatus = http.StatusNotFound
	case CodeInvalidRequest, CodeValidationFailed, CodeWorkflowValidationFailed, CodeFolderDepthExceeded:
		httpStatus = http.StatusBadRequest
	case CodeConflict, CodeInvalidState, CodeWorkflowFrozen, CodeProjectArchived,
		CodeApprovalNotPending, CodeApprovalAlreadyFinal:
		httpStatus = http.StatusConflict
	case CodeInternalError:
		httpStatus = http.StatusInternalServerError
	case CodeServiceUnavailable:
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, ErrorResponse(code, message))
}

// ResponseBusinessError 返回业务错误响应
func ResponseBusinessError(c *gin.Context, err *BusinessError) {
	ResponseError(c, err.Code, err.Message)
}

// AbortWithError 中断并返回错误
func AbortWithError(c *gin.Context, code int, message string) {
	ResponseError(c, code, message)
	c.Abort()
}

// ResponseBadRequest 返回参数错误响应
func ResponseBadRequest(c *gin.Context, message string) {
	ResponseError(c, CodeInvalidRequest, message)
}
