package repository

import (
	"context"
	"edu_network_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentRepository 全局内容与版本历史的数据访问，不含业务规则
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) WithTx(tx *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: tx}
}

func (r *ContentRepository) Create(ctx context.Context, content *model.GlobalContent) error {
	return r.DB.WithContext(ctx).Create(content).Error
}

func (r *ContentRepository) FindByID(ctx context.Context, id string) (*model.GlobalContent, error) {
	var content model.GlobalContent
	if err := r.DB.WithContext(ctx).First(&content, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

// FindByIDForUpdate 在事务内加行锁读取，SQLite 下忽略锁子句
func (r *ContentRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.GlobalContent, error) {
	var content model.GlobalContent
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&content, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// PointToVersion 移动当前版本指针并同步 payload 与 metadata，其余列不动
func (r *ContentRepository) PointToVersion(ctx context.Context, contentID string, version *model.ContentVersion, metadata datatypes.JSONMap) error {
	return r.DB.WithContext(ctx).Model(&model.GlobalContent{}).
		Where("id = ?", contentID).
		Updates(map[string]interface{}{
			"current_version_id": version.ID,
			"current_version":    version.Version,
			"payload":            version.Payload,
			"metadata":           metadata,
		}).Error
}

// SetCurrentVersion 只移动当前版本指针
func (r *ContentRepository) SetCurrentVersion(ctx context.Context, contentID, versionID, version string) error {
	return r.DB.WithContext(ctx).Model(&model.GlobalContent{}).
		Where("id = ?", contentID).
		Updates(map[string]interface{}{
			"current_version_id": versionID,
			"current_version":    version,
		}).Error
}

func (r *ContentRepository) SetPublished(ctx context.Context, contentID string, published bool) error {
	return r.DB.WithContext(ctx).Model(&model.GlobalContent{}).
		Where("id = ?", contentID).
		Update("is_published", published).Error
}

type ContentFilter struct {
	ContentType     string
	Category        string
	DifficultyLevel string
	AgeGroup        string
	AccessTier      string
	Published       *bool
	Search          string
	Page            int
	Limit           int
}

func (r *ContentRepository) List(ctx context.Context, f ContentFilter) ([]model.GlobalContent, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.GlobalContent{})
	if f.ContentType != "" {
		query = query.Where("content_type = ?", f.ContentType)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.DifficultyLevel != "" {
		query = query.Where("difficulty_level = ?", f.DifficultyLevel)
	}
	if f.AgeGroup != "" {
		query = query.Where("age_group = ?", f.AgeGroup)
	}
	if f.AccessTier != "" {
		query = query.Where("access_tier = ?", f.AccessTier)
	}
	if f.Published != nil {
		query = query.Where("is_published = ?", *f.Published)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contents []model.GlobalContent
	if f.Limit > 0 {
		query = query.Offset((f.Page - 1) * f.Limit).Limit(f.Limit)
	}
	err := query.Order("created_at desc").Find(&contents).Error
	return contents, total, err
}

func (r *ContentRepository) CreateVersion(ctx context.Context, version *model.ContentVersion) error {
	return r.DB.WithContext(ctx).Create(version).Error
}

// GetVersions 按语义版本从新到旧
func (r *ContentRepository) GetVersions(ctx context.Context, contentID string) ([]model.ContentVersion, error) {
	var versions []model.ContentVersion
	err := r.DB.WithContext(ctx).Where("content_id = ?", contentID).
		Order("major desc, minor desc, patch desc").
		Find(&versions).Error
	return versions, err
}

// LatestVersion 返回最新创建的版本（可能尚未稳定）
func (r *ContentRepository) LatestVersion(ctx context.Context, contentID string) (*model.ContentVersion, error) {
	var v model.ContentVersion
	err := r.DB.WithContext(ctx).Where("content_id = ?", contentID).
		Order("major desc, minor desc, patch desc").
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ContentRepository) GetVersionByID(ctx context.Context, id string) (*model.ContentVersion, error) {
	var v model.ContentVersion
	if err := r.DB.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// MarkVersionStable 稳定标记是版本上唯一允许的修改，payload 不可变
func (r *ContentRepository) MarkVersionStable(ctx context.Context, v *model.ContentVersion) error {
	return r.DB.WithContext(ctx).Model(v).
		Select("is_stable", "promoted_at").
		Updates(map[string]interface{}{"is_stable": true, "promoted_at": v.PromotedAt}).Error
}
