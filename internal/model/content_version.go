package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ChangeMajor = "major"
	ChangeMinor = "minor"
	ChangePatch = "patch"
)

func IsValidChangeType(t string) bool {
	return t == ChangeMajor || t == ChangeMinor || t == ChangePatch
}

// ContentVersion 是不可变快照，创建后只会被标记为稳定
//
// swagger:model ContentVersion
type ContentVersion struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ContentID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_content_version,priority:1" json:"contentId"`
	Version   string `gorm:"size:32;not null;uniqueIndex:idx_content_version,priority:2" json:"version"`
	Major     int    `gorm:"not null" json:"-"`
	Minor     int    `gorm:"not null" json:"-"`
	Patch     int    `gorm:"not null" json:"-"`

	ChangeType  string         `gorm:"size:10;not null" json:"changeType"`
	ChangeNotes []string       `gorm:"type:text;serializer:json" json:"changeNotes"`
	Payload     datatypes.JSON `json:"payload"`
	IsStable    bool           `gorm:"default:false" json:"isStable"`
	CreatedBy   string         `gorm:"size:64" json:"createdBy"`
	PromotedAt  *time.Time     `json:"promotedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (ContentVersion) TableName() string {
	return "content_versions"
}

// SemVer 是 major.minor.patch 三段版本号
type SemVer struct {
	Major, Minor, Patch int
}

func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less 按数值比较，不按字符串比较
func (v SemVer) Less(o SemVer) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

// Bump 根据变更类型计算下一个版本
func (v SemVer) Bump(changeType string) (SemVer, error) {
	switch changeType {
	case ChangeMajor:
		return SemVer{Major: v.Major + 1}, nil
	case ChangeMinor:
		return SemVer{Major: v.Major, Minor: v.Minor + 1}, nil
	case ChangePatch:
		return SemVer{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
	}
	return v, fmt.Errorf("unknown change type %q", changeType)
}

func ParseSemVer(s string) (SemVer, error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if len(parts) != 3 {
		return SemVer{}, fmt.Errorf("invalid version %q", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return SemVer{}, fmt.Errorf("invalid version %q", s)
		}
		nums[i] = n
	}
	return SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func (cv *ContentVersion) SemVer() SemVer {
	return SemVer{Major: cv.Major, Minor: cv.Minor, Patch: cv.Patch}
}

func (cv *ContentVersion) BeforeCreate(tx *gorm.DB) error {
	if cv.ID == "" {
		cv.ID = GenerateUUID()
	}
	return nil
}
