package repository

import (
	"context"
	"edu_network_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type TranslationRepository struct {
	DB *gorm.DB
}

func NewTranslationRepository(db *gorm.DB) *TranslationRepository {
	return &TranslationRepository{DB: db}
}

func (r *TranslationRepository) WithTx(tx *gorm.DB) *TranslationRepository {
	return &TranslationRepository{DB: tx}
}

func (r *TranslationRepository) Create(ctx context.Context, req *model.TranslationRequest) error {
	return r.DB.WithContext(ctx).Create(req).Error
}

// TransitionStatus 仅当状态仍为 from 时写入 updates，返回是否抢到这次流转
func (r *TranslationRepository) TransitionStatus(ctx context.Context, id, from string, updates map[string]interface{}) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TranslationRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *TranslationRepository) FindByID(ctx context.Context, id string) (*model.TranslationRequest, error) {
	var req model.TranslationRequest
	if err := r.DB.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *TranslationRepository) ListByLocalContent(ctx context.Context, localContentID string) ([]model.TranslationRequest, error) {
	var reqs []model.TranslationRequest
	err := r.DB.WithContext(ctx).Where("local_content_id = ?", localContentID).
		Order("created_at desc").Find(&reqs).Error
	return reqs, err
}

// ListInReviewSince 提交时间早于 before 且仍在 review 的请求
func (r *TranslationRepository) ListInReviewSince(ctx context.Context, before time.Time) ([]model.TranslationRequest, error) {
	var reqs []model.TranslationRequest
	err := r.DB.WithContext(ctx).
		Where("status = ? AND submitted_at <= ?", model.TranslationReview, before).
		Order("submitted_at asc").
		Find(&reqs).Error
	return reqs, err
}
