package tasks

// 任务类型
const (
	TypeApprovalNotify = "notify:approval"
)

// ApprovalNotifyPayload 审批通知任务载荷
type ApprovalNotifyPayload struct {
	EventType  string `json:"event_type"` // final_approval, reviewer_decision, review_requested
	TenantID   string `json:"tenant_id"`
	AssetID    string `json:"asset_id"`
	ProjectID  string `json:"project_id,omitempty"`
	StageOrder int    `json:"stage_order,omitempty"`
	ActorID    string `json:"actor_id"`
	Status     string `json:"status,omitempty"`
	Note       string `json:"note,omitempty"`
}
