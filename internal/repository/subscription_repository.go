package repository

import (
	"context"
	"edu_network_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	DB *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return r.DB.WithContext(ctx).Create(sub).Error
}

// FindActive 返回 (用户, 节点) 仍有效的订阅；有多条时取到期最晚的一条
func (r *SubscriptionRepository) FindActive(ctx context.Context, userID, nodeID string, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND node_id = ? AND is_active = ? AND end_date >= ?", userID, nodeID, true, now).
		Order("end_date desc").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
