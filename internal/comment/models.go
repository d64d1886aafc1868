package comment

import (
	"time"

	"gorm.io/datatypes"
)

// Annotation 画面标注区域（相对坐标，0-1）
type Annotation struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Revision 评论编辑历史：保留旧正文与统一 diff
type Revision struct {
	Body     string    `json:"body"`
	Diff     string    `json:"diff"`
	EditedAt time.Time `json:"editedAt"`
}

// Comment 素材评论，支持楼中楼与画面标注
type Comment struct {
	ID       string  `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string  `json:"tenantId" gorm:"type:uuid;not null;index"`
	AssetID  string  `json:"assetId" gorm:"type:uuid;not null;index"`
	ParentID *string `json:"parentId,omitempty" gorm:"type:uuid;index"`

	AuthorID string `json:"authorId" gorm:"type:uuid;not null;index"`
	Body     string `json:"body" gorm:"type:text;not null"`

	// 标注区域，无标注时为空
	Annotation datatypes.JSON `json:"annotation,omitempty" gorm:"type:jsonb"`

	// 编辑历史（旧正文 + 统一 diff）
	History []Revision `json:"history,omitempty" gorm:"type:jsonb;serializer:json"`

	// 解决状态
	Resolved   bool       `json:"resolved" gorm:"not null;default:false"`
	ResolvedBy string     `json:"resolvedBy,omitempty" gorm:"type:uuid"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`

	CreatedAt time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
	DeletedBy string     `json:"deletedBy,omitempty" gorm:"size:100"`
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}
