package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TranslationNotStarted = "not_started"
	TranslationInProgress = "in_progress"
	TranslationReview     = "review"
	TranslationCompleted  = "completed"
)

var translationOrder = map[string]int{
	TranslationNotStarted: 0,
	TranslationInProgress: 1,
	TranslationReview:     2,
	TranslationCompleted:  3,
}

// CanTransitionTranslation 只允许前进一步，不可跳过、不可回退
func CanTransitionTranslation(from, to string) bool {
	f, ok := translationOrder[from]
	if !ok {
		return false
	}
	t, ok := translationOrder[to]
	if !ok {
		return false
	}
	return t == f+1
}

func IsValidTranslationStatus(s string) bool {
	_, ok := translationOrder[s]
	return ok
}

const (
	TranslationModeAutomatic = "automatic"
	TranslationModeHuman     = "human"
	TranslationModeHybrid    = "hybrid"
)

func IsValidTranslationMode(m string) bool {
	return m == TranslationModeAutomatic || m == TranslationModeHuman || m == TranslationModeHybrid
}

// swagger:model TranslationRequest
type TranslationRequest struct {
	UUIDBase

	LocalContentID string            `gorm:"type:varchar(36);not null;index" json:"localContentId"`
	TranslatorID   string            `gorm:"size:64;index" json:"translatorId"`
	ReviewerID     string            `gorm:"size:64" json:"reviewerId"`
	SourceLanguage string            `gorm:"size:20" json:"sourceLanguage"`
	TargetLanguage string            `gorm:"size:20;not null" json:"targetLanguage"`
	SourceText     string            `gorm:"type:text" json:"sourceText"`
	TranslatedText string            `gorm:"type:text" json:"translatedText"`
	Mode           string            `gorm:"size:20;not null" json:"mode"`
	Status         string            `gorm:"size:20;not null;index" json:"status"`
	QualityMeta    datatypes.JSONMap `json:"qualityMeta"`
	Priority       int               `gorm:"default:0" json:"priority"`
	SubmittedAt    *time.Time        `json:"submittedAt,omitempty"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
}

func (TranslationRequest) TableName() string {
	return "translation_requests"
}
