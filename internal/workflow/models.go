package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StageColor 阶段颜色，取固定色板
type StageColor string

const (
	ColorYellow StageColor = "yellow"
	ColorGreen  StageColor = "green"
	ColorBlue   StageColor = "blue"
	ColorPurple StageColor = "purple"
	ColorRed    StageColor = "red"
	ColorOrange StageColor = "orange"
	ColorGray   StageColor = "gray"
)

// ValidColor 判断颜色是否在色板内
func ValidColor(c StageColor) bool {
	switch c {
	case ColorYellow, ColorGreen, ColorBlue, ColorPurple, ColorRed, ColorOrange, ColorGray:
		return true
	}
	return false
}

// WorkflowStage 工作流阶段（内嵌于工作流，按 Order 从 1 连续编号）
type WorkflowStage struct {
	Order int        `json:"order"`
	Name  string     `json:"name"`
	Color StageColor `json:"color"`
}

// StageList 阶段列表，整体以 JSONB 存储
type StageList []WorkflowStage

// Value 实现 driver.Valuer 接口，用于 GORM 存储 JSONB
func (s StageList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner 接口，用于 GORM 读取 JSONB
func (s *StageList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, s)
}

// StageByOrder 按序号查找阶段
func (s StageList) StageByOrder(order int) (WorkflowStage, bool) {
	for _, stage := range s {
		if stage.Order == order {
			return stage, true
		}
	}
	return WorkflowStage{}, false
}

// Workflow 审批工作流定义
type Workflow struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenantId" gorm:"type:uuid;not null;index"`

	// 工作流信息
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`

	// 有序阶段列表
	Stages StageList `json:"stages" gorm:"type:jsonb;not null;serializer:json"`

	// 每个组织至多一个默认工作流
	IsDefault  bool `json:"isDefault" gorm:"not null;default:false"`
	IsArchived bool `json:"isArchived" gorm:"not null;default:false"`

	// 创建人
	CreatedBy string `json:"createdBy" gorm:"size:100"`

	// 时间戳
	CreatedAt time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
	DeletedBy string     `json:"deletedBy,omitempty" gorm:"size:100"`
}
