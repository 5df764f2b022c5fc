package model

import "time"

const (
	TierFree       = "free"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

func IsValidTier(t string) bool {
	return t == TierFree || t == TierPremium || t == TierEnterprise
}

// swagger:model Subscription
type Subscription struct {
	UUIDBase

	UserID    string    `gorm:"size:64;not null;index:idx_sub_user_node,priority:1" json:"userId"`
	NodeID    string    `gorm:"type:varchar(36);not null;index:idx_sub_user_node,priority:2" json:"nodeId"`
	Tier      string    `gorm:"size:20;not null" json:"tier"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `gorm:"index" json:"endDate"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	AutoRenew bool      `gorm:"default:false" json:"autoRenew"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
