package model

import (
	"gorm.io/datatypes"
)

const (
	ContentTypeCourse     = "course"
	ContentTypeLesson     = "lesson"
	ContentTypeAssessment = "assessment"
	ContentTypeResource   = "resource"
	ContentTypeActivity   = "activity"
)

var contentTypes = map[string]bool{
	ContentTypeCourse:     true,
	ContentTypeLesson:     true,
	ContentTypeAssessment: true,
	ContentTypeResource:   true,
	ContentTypeActivity:   true,
}

func IsValidContentType(t string) bool {
	return contentTypes[t]
}

// swagger:model GlobalContent
type GlobalContent struct {
	UUIDBase

	Title              string            `gorm:"size:255;not null" json:"title"`
	Description        string            `gorm:"type:text" json:"description"`
	ContentType        string            `gorm:"size:30;index;not null" json:"contentType"`
	Category           string            `gorm:"size:100;index" json:"category"`
	DifficultyLevel    string            `gorm:"size:30;index" json:"difficultyLevel"`
	AgeGroup           string            `gorm:"size:30" json:"ageGroup"`
	AccessTier         string            `gorm:"size:20;index;default:'free'" json:"accessTier"`
	EstimatedMinutes   int               `gorm:"default:0" json:"estimatedMinutes"`
	Prerequisites      []string          `gorm:"type:text;serializer:json" json:"prerequisites"`
	LearningObjectives []string          `gorm:"type:text;serializer:json" json:"learningObjectives"`
	Payload            datatypes.JSON    `json:"payload"`
	Metadata           datatypes.JSONMap `json:"metadata"`
	IsPublished        bool              `gorm:"default:false;index" json:"isPublished"`
	CreatorID          string            `gorm:"size:64;index" json:"creatorId"`

	// 当前版本指针，只由版本管理在稳定/强制提升时移动
	CurrentVersionID string `gorm:"type:varchar(36)" json:"currentVersionId"`
	CurrentVersion   string `gorm:"size:32" json:"currentVersion"`
}

func (GlobalContent) TableName() string {
	return "global_contents"
}
