package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PublishStatusDraft     = "draft"
	PublishStatusPublished = "published"
)

const (
	LocalizationTranslation = "translation"
	LocalizationAdaptation  = "adaptation"
	LocalizationRecreation  = "recreation"
)

func IsValidLocalizationType(t string) bool {
	return t == LocalizationTranslation || t == LocalizationAdaptation || t == LocalizationRecreation
}

// CulturalAdaptation 是合规审计记录，多次本地化只追加不覆盖
type CulturalAdaptation struct {
	SectionID  string    `json:"sectionId"`
	Original   string    `json:"original"`
	Adapted    string    `json:"adapted"`
	Rationale  string    `json:"rationale"`
	ApprovedBy string    `json:"approvedBy"`
	RecordedAt time.Time `json:"recordedAt"`
}

type LocalExample struct {
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

type LocalResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Kind  string `json:"kind"`
}

// Customization 是叠加在镜像内容之上的节点定制层
type Customization struct {
	LocalizationType string               `json:"localizationType"`
	Adaptations      []CulturalAdaptation `json:"adaptations"`
	LocalExamples    []LocalExample       `json:"localExamples"`
	Resources        []LocalResource      `json:"resources"`
	LocalizedBy      string               `json:"localizedBy"`
	LocalizedAt      *time.Time           `json:"localizedAt,omitempty"`
	Passes           int                  `json:"passes"`
}

// LocalContent 是节点对全局内容的镜像，(node_id, global_content_id) 唯一
//
// swagger:model LocalContent
type LocalContent struct {
	UUIDBase

	NodeID          string  `gorm:"type:varchar(36);not null;uniqueIndex:idx_node_global,priority:1" json:"nodeId"`
	GlobalContentID *string `gorm:"type:varchar(36);uniqueIndex:idx_node_global,priority:2" json:"globalContentId"`

	Title          string         `gorm:"size:255;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Payload        datatypes.JSON `json:"payload"`
	TargetLanguage string         `gorm:"size:20" json:"targetLanguage"`

	IsCustomized      bool          `gorm:"default:false" json:"isCustomized"`
	Customization     Customization `gorm:"type:text;serializer:json" json:"customization"`
	TranslationStatus string        `gorm:"size:20;default:'not_started'" json:"translationStatus"`
	PublishStatus     string        `gorm:"size:20;default:'draft'" json:"publishStatus"`

	SourceVersion string     `gorm:"size:32" json:"sourceVersion"`
	LastSyncedAt  *time.Time `json:"lastSyncedAt,omitempty"`
}

func (LocalContent) TableName() string {
	return "local_contents"
}
