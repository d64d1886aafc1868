package asset

import "time"

// 素材类型常量
const (
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeDocument = "document"
	TypeOther    = "other"
)

// ValidType 判断素材类型是否合法
func ValidType(assetType string) bool {
	switch assetType {
	case TypeImage, TypeVideo, TypeAudio, TypeDocument, TypeOther:
		return true
	}
	return false
}

// MaxFolderDepth 文件夹最大嵌套深度
const MaxFolderDepth = 5

// Folder 项目内的素材文件夹，树形结构
type Folder struct {
	ID        string  `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID  string  `json:"tenantId" gorm:"type:uuid;not null;index"`
	ProjectID string  `json:"projectId" gorm:"type:uuid;not null;index"`
	ParentID  *string `json:"parentId,omitempty" gorm:"type:uuid;index"`

	Name string `json:"name" gorm:"size:255;not null"`
	// 根文件夹深度为 1，子级依次加一，上限 MaxFolderDepth
	Depth int `json:"depth" gorm:"not null;default:1"`

	CreatedBy string `json:"createdBy" gorm:"type:uuid"`

	CreatedAt time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
	DeletedBy string     `json:"deletedBy,omitempty" gorm:"size:100"`
}

// TableName 指定表名
func (Folder) TableName() string {
	return "folders"
}

// Asset 审批素材
// 终审字段（FinalApprovedBy/At/Notes）一经写入即为终态，不再清空
type Asset struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenantId" gorm:"type:uuid;not null;index"`
	// 素材可以不属于任何项目（个人上传），此时不参与审批
	ProjectID string  `json:"projectId,omitempty" gorm:"type:uuid;index"`
	FolderID  *string `json:"folderId,omitempty" gorm:"type:uuid;index"`

	// 素材信息
	Name     string `json:"name" gorm:"size:255;not null"`
	Type     string `json:"type" gorm:"size:50;not null;default:other"`
	FileURL  string `json:"fileUrl" gorm:"size:1024"`
	FileSize int64  `json:"fileSize" gorm:"not null;default:0"`
	MimeType string `json:"mimeType" gorm:"size:255"`
	Version  int    `json:"version" gorm:"not null;default:1"`

	// 终审信息
	FinalApprovedBy    *string    `json:"finalApprovedBy,omitempty" gorm:"type:uuid"`
	FinalApprovedAt    *time.Time `json:"finalApprovedAt,omitempty"`
	FinalApprovalNotes string     `json:"finalApprovalNotes,omitempty" gorm:"type:text"`

	// 上传人
	CreatedBy string `json:"createdBy" gorm:"type:uuid;not null"`

	// 时间戳
	CreatedAt time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
	DeletedBy string     `json:"deletedBy,omitempty" gorm:"size:100"`
}

// TableName 指定表名
func (Asset) TableName() string {
	return "assets"
}

// IsFinalApproved 素材是否已终审通过
func (a *Asset) IsFinalApproved() bool {
	return a.FinalApprovedBy != nil
}
