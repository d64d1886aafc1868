package approval

import "time"

// 阶段进度状态常量
const (
	StageStatusNotStarted       = "not_started"
	StageStatusInReview         = "in_review"
	StageStatusApproved         = "approved"
	StageStatusChangesRequested = "changes_requested"
	StageStatusPendingFinal     = "pending_final_approval"
)

// 素材整体状态常量（由阶段进度派生，不落库）
const (
	OverallStatusNotStarted       = "not_started"
	OverallStatusInProgress       = "in_progress"
	OverallStatusApproved         = "approved"
	OverallStatusChangesRequested = "changes_requested"
)

// 评审人决定常量
const (
	DecisionPending          = "pending"
	DecisionApproved         = "approved"
	DecisionChangesRequested = "changes_requested"
)

// StageReviewerAssignment 阶段评审人分配
// (project_id, stage_order, user_id) 三元组，声明谁可以在项目工作流的某阶段审批
type StageReviewerAssignment struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID   string `json:"tenantId" gorm:"type:uuid;not null;index"`
	ProjectID  string `json:"projectId" gorm:"type:uuid;not null;index:idx_reviewer_project_stage"`
	StageOrder int    `json:"stageOrder" gorm:"not null;index:idx_reviewer_project_stage"`
	UserID     string `json:"userId" gorm:"type:uuid;not null;index"`
	AssignedBy string `json:"assignedBy" gorm:"type:uuid"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// TableName 指定表名
func (StageReviewerAssignment) TableName() string {
	return "stage_reviewer_assignments"
}

// DecisionRevision 评审人历史决定（改主意时归档到 History）
type DecisionRevision struct {
	Status      string     `json:"status"`
	Note        string     `json:"note,omitempty"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	ArchivedAt  time.Time  `json:"archivedAt"`
}

// UserStageApproval 单个评审人在某素材某阶段的审批记录
// 每个 (asset, stage, user) 只保留一条活动记录，改判时旧决定进入 History
type UserStageApproval struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID   string `json:"tenantId" gorm:"type:uuid;not null;index"`
	AssetID    string `json:"assetId" gorm:"type:uuid;not null;index:idx_approval_asset_stage"`
	StageOrder int    `json:"stageOrder" gorm:"not null;index:idx_approval_asset_stage"`
	UserID     string `json:"userId" gorm:"type:uuid;not null;index"`

	// 决定信息
	Status string `json:"status" gorm:"size:50;not null;default:pending"` // pending、approved、changes_requested
	Note   string `json:"note" gorm:"type:text"`

	// 历史决定（改判时归档）
	History []DecisionRevision `json:"history,omitempty" gorm:"type:jsonb;serializer:json"`

	// 时间
	ViewedAt    *time.Time `json:"viewedAt"`
	RespondedAt *time.Time `json:"respondedAt"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (UserStageApproval) TableName() string {
	return "user_stage_approvals"
}

// StageProgress 阶段进度聚合行
// approvals_required 是评审人分配时写入的快照，聚合读取时不重算
type StageProgress struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID   string `json:"tenantId" gorm:"type:uuid;not null;index"`
	AssetID    string `json:"assetId" gorm:"type:uuid;not null;uniqueIndex:idx_progress_asset_stage"`
	StageOrder int    `json:"stageOrder" gorm:"not null;uniqueIndex:idx_progress_asset_stage"`

	ApprovalsRequired int    `json:"approvalsRequired" gorm:"not null;default:0"`
	ApprovalsReceived int    `json:"approvalsReceived" gorm:"not null;default:0"`
	Status            string `json:"status" gorm:"size:50;not null;default:not_started"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (StageProgress) TableName() string {
	return "stage_progress"
}

// IsComplete 阶段是否收齐所需审批
func (p *StageProgress) IsComplete() bool {
	return p.ApprovalsReceived >= p.ApprovalsRequired
}

// ApprovalProgress 单阶段进度视图（合并工作流阶段元数据）
type ApprovalProgress struct {
	StageOrder        int                  `json:"stageOrder"`
	StageName         string               `json:"stageName"`
	StageColor        string               `json:"stageColor"`
	ApprovalsRequired int                  `json:"approvalsRequired"`
	ApprovalsReceived int                  `json:"approvalsReceived"`
	Status            string               `json:"status"`
	IsComplete        bool                 `json:"isComplete"`
	Approvals         []*UserStageApproval `json:"approvals"`
}

// FinalApproval 最终审批信息
type FinalApproval struct {
	ApprovedBy string    `json:"approvedBy"`
	ApprovedAt time.Time `json:"approvedAt"`
	Notes      string    `json:"notes,omitempty"`
}

// AssetApprovalSummary 素材审批汇总视图
// CurrentStage 与 OverallStatus 由 DeriveAssetStatus 从进度行派生，不落库
type AssetApprovalSummary struct {
	AssetID          string                       `json:"assetId"`
	CurrentStage     int                          `json:"currentStage"`
	OverallStatus    string                       `json:"overallStatus"`
	ApprovalsByStage map[int][]*UserStageApproval `json:"approvalsByStage"`
	ProgressSummary  map[int]*ApprovalProgress    `json:"progressSummary"`
	FinalApproval    *FinalApproval               `json:"finalApproval"`
}

// SetDerivedStatus 写入派生的素材级状态
func (s *AssetApprovalSummary) SetDerivedStatus(status AssetStatus) {
	s.CurrentStage = status.CurrentStage
	s.OverallStatus = status.OverallStatus
}
