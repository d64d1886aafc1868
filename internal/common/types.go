package common

// ============================================================================
// 通用请求类型
// ============================================================================

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `json:"page" form:"page" binding:"omitempty,min=1"`           // 页码，从1开始
	PageSize int `json:"page_size" form:"page_size" binding:"omitempty,min=1"` // 每页数量
}

// GetOffset 计算数据库查询的偏移量
func (p PaginationRequest) GetOffset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.GetPageSize()
}

// GetPageSize 获取每页数量，提供默认值
func (p PaginationRequest) GetPageSize() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// ============================================================================
// 通用响应类型
// ============================================================================

// APIResponse 统一API响应格式
type APIResponse struct {
	Success bool   `json:"success"`           // 是否成功
	Data    any    `json:"data,omitempty"`    // 响应数据
	Message string `json:"message,omitempty"` // 提示信息
	Code    int    `json:"code"`              // 业务状态码
}

// SuccessMessageResponse 成功响应（带消息）
func SuccessMessageResponse(message string, data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
		Message: message,
		Code:    0,
	}
}

// ErrorResponse 错误响应
func ErrorResponse(code int, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	}
}

// PaginationMeta 分页元信息
type PaginationMeta struct {
	Page       int   `json:"page"`        // 当前页码
	PageSize   int   `json:"page_size"`   // 每页数量
	Total      int64 `json:"total"`       // 总记录数
	TotalPages int   `json:"total_pages"` // 总页数
}

// CalculateTotalPages 计算总页数
func (m *PaginationMeta) CalculateTotalPages() {
	if m.PageSize > 0 {
		m.TotalPages = int((m.Total + int64(m.PageSize) - 1) / int64(m.PageSize))
	}
}

// NewPaginationMeta 创建分页元信息
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	meta := PaginationMeta{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	meta.CalculateTotalPages()
	return meta
}

// ============================================================================
// 业务状态码定义
// ============================================================================

const (
	// 成功状态码
	CodeSuccess = 0

	// 通用错误码 (1000-1999)
	CodeInvalidRequest   = 1000 // 请求参数错误
	CodeUnauthorized     = 1001 // 未授权
	CodeForbidden        = 1002 // 禁止访问
	CodeNotFound         = 1003 // 资源不存在
	CodeConflict         = 1004 // 资源冲突
	CodeInternalError    = 1005 // 内部错误
	CodeServiceUnavailable = 1006 // 服务不可用

	// 校验与状态错误码 (1100-1199)
	CodeValidationFailed = 1100 // 数据校验失败
	CodeInvalidState     = 1101 // 当前状态不允许该操作

	// 工作流相关错误码 (2000-2099)
	CodeWorkflowNotFound         = 2000 // 工作流不存在
	CodeWorkflowValidationFailed = 2001 // 工作流阶段配置无效
	CodeWorkflowFrozen           = 2002 // 工作流已被项目引用，阶段不可修改

	// 项目相关错误码 (3000-3099)
	CodeProjectNotFound = 3000 // 项目不存在
	CodeProjectArchived = 3001 // 项目已归档

	// 素材相关错误码 (4000-4099)
	CodeAssetNotFound     = 4000 // 素材不存在
	CodeFolderNotFound    = 4001 // 文件夹不存在
	CodeFolderDepthExceeded = 4002 // 文件夹层级超限

	// 审批相关错误码 (5000-5099)
	CodeApprovalNotFound     = 5000 // 审批记录不存在
	CodeApprovalNotPending   = 5001 // 素材未处于待终审状态
	CodeApprovalNotReviewer  = 5002 // 非本人的评审记录
	CodeApprovalAlreadyFinal = 5003 // 素材已终审

	// 评论相关错误码 (6000-6099)
	CodeCommentNotFound = 6000 // 评论不存在
)

// ErrorMessages 错误码对应的默认消息
var ErrorMessages = map[int]string{
	CodeSuccess:            "操作成功",
	CodeInvalidRequest:     "请求参数错误",
	CodeUnauthorized:       "未授权，请先登录",
	CodeForbidden:          "无权限访问",
	CodeNotFound:           "资源不存在",
	CodeConflict:           "资源冲突",
	CodeInternalError:      "系统内部错误",
	CodeServiceUnavailable: "服务暂不可用",

	CodeValidationFailed: "数据校验失败",
	CodeInvalidState:     "当前状态不允许该操作",

	CodeWorkflowNotFound:         "工作流不存在",
	CodeWorkflowValidationFailed: "工作流阶段配置无效",
	CodeWorkflowFrozen:           "工作流已被项目引用，阶段不可修改",

	CodeProjectNotFound: "项目不存在",
	CodeProjectArchived: "项目已归档",

	CodeAssetNotFound:       "素材不存在",
	CodeFolderNotFound:      "文件夹不存在",
	CodeFolderDepthExceeded: "文件夹层级超限",

	CodeApprovalNotFound:     "审批记录不存在",
	CodeApprovalNotPending:   "素材未处于待终审状态",
	CodeApprovalNotReviewer:  "只能提交本人的评审记录",
	CodeApprovalAlreadyFinal: "素材已终审",

	CodeCommentNotFound: "评论不存在",
}

// GetErrorMessage 获取错误码对应的消息
func GetErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "未知错误"
}

// ============================================================================
// 通用业务错误类型
// ============================================================================

// BusinessError 业务错误
type BusinessError struct {
	Code    int    // 错误码
	Message string // 错误信息
}

// Error 实现error接口
func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

// NewBusinessErrorWithCode 根据错误码创建业务错误
func NewBusinessErrorWithCode(code int) *BusinessError {
	return NewBusinessError(code, GetErrorMessage(code))
}
