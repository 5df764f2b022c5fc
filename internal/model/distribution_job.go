package model

import "time"

const (
	DistributionPushAll   = "push_all"
	DistributionSelective = "selective"
	DistributionOnDemand  = "on_demand"
)

func IsValidDistributionMode(m string) bool {
	return m == DistributionPushAll || m == DistributionSelective || m == DistributionOnDemand
}

const (
	JobStatusPending        = "pending"
	JobStatusInProgress     = "in_progress"
	JobStatusCompleted      = "completed"
	JobStatusPartialFailure = "partial_failure"
)

var jobStatusRank = map[string]int{
	JobStatusPending:        0,
	JobStatusInProgress:     1,
	JobStatusCompleted:      2,
	JobStatusPartialFailure: 2,
}

// CanTransitionJob 状态只能单调前进，终态不可再变
func CanTransitionJob(from, to string) bool {
	f, ok := jobStatusRank[from]
	if !ok {
		return false
	}
	t, ok := jobStatusRank[to]
	if !ok {
		return false
	}
	return t == f+1
}

func IsTerminalJobStatus(s string) bool {
	return s == JobStatusCompleted || s == JobStatusPartialFailure
}

type NodeFailure struct {
	NodeID   string    `json:"nodeId"`
	Message  string    `json:"message"`
	FailedAt time.Time `json:"failedAt"`
}

// swagger:model DistributionJob
type DistributionJob struct {
	UUIDBase

	GlobalContentID string        `gorm:"type:varchar(36);not null;index" json:"globalContentId"`
	ContentVersion  string        `gorm:"size:32" json:"contentVersion"`
	TargetNodes     []string      `gorm:"type:text;serializer:json" json:"targetNodes"`
	Mode            string        `gorm:"size:20;not null" json:"mode"`
	Status          string        `gorm:"size:20;not null;index" json:"status"`
	Failures        []NodeFailure `gorm:"type:text;serializer:json" json:"failures"`
	SuccessfulNodes int           `gorm:"default:0" json:"successfulNodes"`
	FailedNodes     int           `gorm:"default:0" json:"failedNodes"`
	Priority        int           `gorm:"default:0" json:"priority"`
	InitiatedBy     string        `gorm:"size:64" json:"initiatedBy"`
	ScheduledAt     *time.Time    `gorm:"index" json:"scheduledAt,omitempty"`
	StartedAt       *time.Time    `json:"startedAt,omitempty"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
}

func (DistributionJob) TableName() string {
	return "distribution_jobs"
}

// FailedNodeIDs 返回失败节点列表，供调用方重新分发
func (j *DistributionJob) FailedNodeIDs() []string {
	ids := make([]string, 0, len(j.Failures))
	for _, f := range j.Failures {
		ids = append(ids, f.NodeID)
	}
	return ids
}
