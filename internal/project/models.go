package project

import "time"

// 项目状态常量
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

// ValidStatus 判断项目状态是否合法
func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Project 项目，组织审批素材的容器
// 创建时绑定一个工作流，项目下所有素材沿该工作流审批
type Project struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenantId" gorm:"type:uuid;not null;index"`

	// 项目信息
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Status      string `json:"status" gorm:"size:50;not null;default:active"`

	// 绑定的审批工作流
	WorkflowID *string `json:"workflowId,omitempty" gorm:"type:uuid;index"`

	// 项目创建人即项目所有者
	CreatedBy string `json:"createdBy" gorm:"type:uuid;not null;index"`

	// 时间戳
	CreatedAt time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
	DeletedBy string     `json:"deletedBy,omitempty" gorm:"size:100"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}
