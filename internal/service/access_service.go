package service

import (
	"context"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/util"
	"edu_network_backend/pkg/logger"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccessDecision 访问判定结果；Allowed 表示请求的层级是否可访问
type AccessDecision struct {
	Allowed           bool       `json:"allowed"`
	HasFreeAccess     bool       `json:"hasFreeAccess"`
	HasPremiumAccess  bool       `json:"hasPremiumAccess"`
	SubscriptionLevel string     `json:"subscriptionLevel"`
	Expiry            *time.Time `json:"expiry,omitempty"`
}

// AccessService 每次判定都重新读取订阅，不做缓存
type AccessService struct {
	NodeRepo         *repository.NodeRepository
	SubscriptionRepo *repository.SubscriptionRepository
	now              func() time.Time
}

func NewAccessService(nodeRepo *repository.NodeRepository, subscriptionRepo *repository.SubscriptionRepository) *AccessService {
	return &AccessService{
		NodeRepo:         nodeRepo,
		SubscriptionRepo: subscriptionRepo,
		now:              time.Now,
	}
}

// CheckAccess 层级包含关系：enterprise ⊇ premium ⊇ free。
// premium 订阅不能访问 enterprise 内容。
func (s *AccessService) CheckAccess(ctx context.Context, userID, nodeID, tier string) (*AccessDecision, error) {
	if tier == "" {
		tier = model.TierFree
	}
	if !model.IsValidTier(tier) {
		return nil, util.ErrInvalidTier
	}

	// 免费内容对所有人开放，不查订阅
	if tier == model.TierFree {
		return &AccessDecision{
			Allowed:           true,
			HasFreeAccess:     true,
			SubscriptionLevel: model.TierFree,
		}, nil
	}

	decision := &AccessDecision{
		HasFreeAccess:     true,
		SubscriptionLevel: model.TierFree,
	}

	sub, err := s.SubscriptionRepo.FindActive(ctx, userID, nodeID, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decision, nil
	}
	if err != nil {
		return nil, util.Storage(err)
	}

	end := sub.EndDate
	decision.SubscriptionLevel = sub.Tier
	decision.Expiry = &end
	decision.HasPremiumAccess = sub.Tier == tier || sub.Tier == model.TierEnterprise
	decision.Allowed = decision.HasPremiumAccess
	return decision, nil
}

type CreateSubscriptionRequest struct {
	UserID    string    `json:"userId" binding:"required"`
	NodeID    string    `json:"nodeId" binding:"required"`
	Tier      string    `json:"tier" binding:"required"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate" binding:"required"`
	AutoRenew bool      `json:"autoRenew"`
}

func (s *AccessService) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*model.Subscription, error) {
	if !model.IsValidTier(req.Tier) {
		return nil, util.ErrInvalidTier
	}
	if req.StartDate.IsZero() {
		req.StartDate = s.now()
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, fmt.Errorf("%w: end date must be after start date", util.ErrValidationFailed)
	}
	if _, err := s.NodeRepo.FindByID(ctx, req.NodeID); err != nil {
		return nil, lookupErr(err, util.ErrNodeNotFound)
	}

	sub := &model.Subscription{
		UserID:    req.UserID,
		NodeID:    req.NodeID,
		Tier:      req.Tier,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsActive:  true,
		AutoRenew: req.AutoRenew,
	}
	if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
		return nil, util.Storage(err)
	}

	logger.Log.Info("subscription created",
		zap.String("userId", sub.UserID),
		zap.String("nodeId", sub.NodeID),
		zap.String("tier", sub.Tier),
		zap.Time("endDate", sub.EndDate))
	return sub, nil
}
