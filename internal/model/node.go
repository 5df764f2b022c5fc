package model

import "gorm.io/datatypes"

const (
	NodeStatusActive    = "active"
	NodeStatusPending   = "pending"
	NodeStatusSuspended = "suspended"
)

// 节点从不删除，只允许 pending→active、active⇄suspended
var nodeTransitions = map[string][]string{
	NodeStatusPending:   {NodeStatusActive},
	NodeStatusActive:    {NodeStatusSuspended},
	NodeStatusSuspended: {NodeStatusActive},
}

func CanTransitionNode(from, to string) bool {
	for _, s := range nodeTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// swagger:model Node
type Node struct {
	UUIDBase

	Name     string            `gorm:"size:255;not null" json:"name"`
	Slug     string            `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Region   string            `gorm:"size:100" json:"region"`
	Country  string            `gorm:"size:100" json:"country"`
	Language string            `gorm:"size:20;default:'ar'" json:"language"`
	Currency string            `gorm:"size:10" json:"currency"`
	Timezone string            `gorm:"size:64" json:"timezone"`
	Status   string            `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Settings datatypes.JSONMap `json:"settings"`
	OwnerID  string            `gorm:"size:64;index" json:"ownerId"`
}

func (Node) TableName() string {
	return "nodes"
}

func (n *Node) IsActive() bool {
	return n.Status == NodeStatusActive
}
