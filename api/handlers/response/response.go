// Package response 是 Handler 层的统一错误出口。
// 业务错误（审批域 Error、通用 BusinessError）携带业务码，
// 由 internal/common 的码表映射到 HTTP 状态；其余错误按调用方给定的兜底码返回。
package response

import (
	"errors"

	"backend/internal/approval"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
)

// BadRequest 请求体或查询参数绑定失败
func BadRequest(c *gin.Context, err error) {
	common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
}

// Error 按错误自身携带的业务码返回；无码错误使用 fallback
func Error(c *gin.Context, err error, fallback int) {
	var ae *approval.Error
	if errors.As(err, &ae) {
		common.ResponseError(c, ae.Code, ae.Message)
		return
	}
	var be *common.BusinessError
	if errors.As(err, &be) {
		common.ResponseBusinessError(c, be)
		return
	}
	common.ResponseError(c, fallback, err.Error())
}
