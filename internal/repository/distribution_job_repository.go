package repository

import (
	"context"
	"edu_network_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type DistributionJobRepository struct {
	DB *gorm.DB
}

func NewDistributionJobRepository(db *gorm.DB) *DistributionJobRepository {
	return &DistributionJobRepository{DB: db}
}

func (r *DistributionJobRepository) Create(ctx context.Context, job *model.DistributionJob) error {
	return r.DB.WithContext(ctx).Create(job).Error
}

func (r *DistributionJobRepository) Save(ctx context.Context, job *model.DistributionJob) error {
	return r.DB.WithContext(ctx).Save(job).Error
}

// ClaimPending 以条件更新抢占待执行任务，防止多个调度实例重复执行
func (r *DistributionJobRepository) ClaimPending(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.DistributionJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     model.JobStatusInProgress,
			"started_at": startedAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *DistributionJobRepository) FindByID(ctx context.Context, id string) (*model.DistributionJob, error) {
	var job model.DistributionJob
	if err := r.DB.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *DistributionJobRepository) ListByContent(ctx context.Context, contentID string, page, limit int) ([]model.DistributionJob, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.DistributionJob{})
	if contentID != "" {
		query = query.Where("global_content_id = ?", contentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []model.DistributionJob
	if limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	err := query.Order("created_at desc").Find(&jobs).Error
	return jobs, total, err
}

// ListDue 到期的定时任务，优先级高的先执行
func (r *DistributionJobRepository) ListDue(ctx context.Context, now time.Time) ([]model.DistributionJob, error) {
	var jobs []model.DistributionJob
	err := r.DB.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", model.JobStatusPending, now).
		Order("priority desc, scheduled_at asc").
		Find(&jobs).Error
	return jobs, err
}
