package repository

import (
	"context"
	"edu_network_backend/internal/model"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrMirrorNotUpdated 唯一约束冲突但更新没有命中任何行，通常是同键的软删除镜像占着索引
var ErrMirrorNotUpdated = errors.New("mirror row not updated")

type LocalContentRepository struct {
	DB *gorm.DB
}

func NewLocalContentRepository(db *gorm.DB) *LocalContentRepository {
	return &LocalContentRepository{DB: db}
}

func (r *LocalContentRepository) WithTx(tx *gorm.DB) *LocalContentRepository {
	return &LocalContentRepository{DB: tx}
}

func (r *LocalContentRepository) FindByID(ctx context.Context, id string) (*model.LocalContent, error) {
	var lc model.LocalContent
	if err := r.DB.WithContext(ctx).First(&lc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lc, nil
}

func (r *LocalContentRepository) FindByNodeAndContent(ctx context.Context, nodeID, contentID string) (*model.LocalContent, error) {
	var lc model.LocalContent
	err := r.DB.WithContext(ctx).
		Where("node_id = ? AND global_content_id = ?", nodeID, contentID).
		First(&lc).Error
	if err != nil {
		return nil, err
	}
	return &lc, nil
}

func (r *LocalContentRepository) Create(ctx context.Context, lc *model.LocalContent) error {
	return r.DB.WithContext(ctx).Create(lc).Error
}

// Save 整行写回，包括定制层；调用方需持有 (节点, 内容) 锁
func (r *LocalContentRepository) Save(ctx context.Context, lc *model.LocalContent) error {
	return r.DB.WithContext(ctx).Save(lc).Error
}

// UpsertMirror 先查后插；插入撞上 (node_id, global_content_id) 唯一约束时走更新路径。
// 返回 true 表示新建了行。
func (r *LocalContentRepository) UpsertMirror(ctx context.Context, lc *model.LocalContent) (bool, error) {
	if lc.GlobalContentID == nil {
		return false, errors.New("mirror requires a global content id")
	}

	_, err := r.FindByNodeAndContent(ctx, lc.NodeID, *lc.GlobalContentID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = r.Create(ctx, lc)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, err
		}
		// 并发分发抢先插入，转为更新
		lc.ID = ""
	case err != nil:
		return false, err
	}

	// 只覆盖源派生字段，定制层与翻译/发布状态保持不动
	result := r.DB.WithContext(ctx).Model(&model.LocalContent{}).
		Where("node_id = ? AND global_content_id = ?", lc.NodeID, *lc.GlobalContentID).
		Updates(map[string]interface{}{
			"title":          lc.Title,
			"description":    lc.Description,
			"payload":        lc.Payload,
			"source_version": lc.SourceVersion,
			"last_synced_at": lc.LastSyncedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, fmt.Errorf("%w: node %s content %s", ErrMirrorNotUpdated, lc.NodeID, *lc.GlobalContentID)
	}
	return false, nil
}

func (r *LocalContentRepository) UpdateStatuses(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.LocalContent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *LocalContentRepository) ListByNode(ctx context.Context, nodeID string, page, limit int) ([]model.LocalContent, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.LocalContent{}).Where("node_id = ?", nodeID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.LocalContent
	if limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	err := query.Order("updated_at desc").Find(&items).Error
	return items, total, err
}

func (r *LocalContentRepository) CountByNodeAndContent(ctx context.Context, nodeID, contentID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LocalContent{}).
		Where("node_id = ? AND global_content_id = ?", nodeID, contentID).
		Count(&count).Error
	return count, err
}
