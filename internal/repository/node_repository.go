package repository

import (
	"context"
	"edu_network_backend/internal/model"

	"gorm.io/gorm"
)

type NodeRepository struct {
	DB *gorm.DB
}

func NewNodeRepository(db *gorm.DB) *NodeRepository {
	return &NodeRepository{DB: db}
}

func (r *NodeRepository) Create(ctx context.Context, node *model.Node) error {
	return r.DB.WithContext(ctx).Create(node).Error
}

func (r *NodeRepository) FindByID(ctx context.Context, id string) (*model.Node, error) {
	var node model.Node
	if err := r.DB.WithContext(ctx).First(&node, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *NodeRepository) FindBySlug(ctx context.Context, slug string) (*model.Node, error) {
	var node model.Node
	if err := r.DB.WithContext(ctx).First(&node, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &node, nil
}

// FindByIDs 返回存在的节点，按 id 建索引
func (r *NodeRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Node, error) {
	result := make(map[string]*model.Node, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var nodes []model.Node
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&nodes).Error; err != nil {
		return nil, err
	}
	for i := range nodes {
		result[nodes[i].ID] = &nodes[i]
	}
	return result, nil
}

func (r *NodeRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.DB.WithContext(ctx).Model(&model.Node{}).Where("id = ?", id).Update("status", status).Error
}

func (r *NodeRepository) List(ctx context.Context, status string, page, limit int) ([]model.Node, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Node{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var nodes []model.Node
	if limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	err := query.Order("created_at asc").Find(&nodes).Error
	return nodes, total, err
}

func (r *NodeRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Node{}).
		Where("status = ?", model.NodeStatusActive).
		Order("created_at asc").
		Pluck("id", &ids).Error
	return ids, err
}
