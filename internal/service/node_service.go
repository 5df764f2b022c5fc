package service

import (
	"context"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/util"
	"edu_network_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NodeService struct {
	NodeRepo *repository.NodeRepository
}

func NewNodeService(nodeRepo *repository.NodeRepository) *NodeService {
	return &NodeService{NodeRepo: nodeRepo}
}

type RegisterNodeRequest struct {
	Name     string                 `json:"name" binding:"required"`
	Slug     string                 `json:"slug" binding:"required"`
	Region   string                 `json:"region"`
	Country  string                 `json:"country"`
	Language string                 `json:"language"`
	Currency string                 `json:"currency"`
	Timezone string                 `json:"timezone"`
	Settings map[string]interface{} `json:"settings"`
	Active   bool                   `json:"active"`
}

// Register 注册区域节点，默认 pending，需要激活后才参与分发
func (s *NodeService) Register(ctx context.Context, ownerID string, req RegisterNodeRequest) (*model.Node, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name and slug required", util.ErrValidationFailed)
	}

	if _, err := s.NodeRepo.FindBySlug(ctx, slug); err == nil {
		return nil, util.ErrSlugTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.Storage(err)
	}

	node := &model.Node{
		Name:     req.Name,
		Slug:     slug,
		Region:   req.Region,
		Country:  req.Country,
		Language: req.Language,
		Currency: req.Currency,
		Timezone: req.Timezone,
		Status:   model.NodeStatusPending,
		Settings: datatypes.JSONMap(req.Settings),
		OwnerID:  ownerID,
	}
	if node.Language == "" {
		node.Language = "ar"
	}
	if req.Active {
		node.Status = model.NodeStatusActive
	}

	if err := s.NodeRepo.Create(ctx, node); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrSlugTaken
		}
		return nil, util.Storage(err)
	}

	logger.Log.Info("node registered",
		zap.String("nodeId", node.ID),
		zap.String("slug", node.Slug),
		zap.String("status", node.Status))
	return node, nil
}

func (s *NodeService) Get(ctx context.Context, id string) (*model.Node, error) {
	node, err := s.NodeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, util.ErrNodeNotFound)
	}
	return node, nil
}

func (s *NodeService) List(ctx context.Context, status string, page, limit int) ([]model.Node, int64, error) {
	nodes, total, err := s.NodeRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, util.Storage(err)
	}
	return nodes, total, nil
}

// SetStatus 节点不删除，只能在 pending/active/suspended 间按规则切换
func (s *NodeService) SetStatus(ctx context.Context, id, status string) (*model.Node, error) {
	node, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.Status == status {
		return node, nil
	}
	if !model.CanTransitionNode(node.Status, status) {
		return nil, fmt.Errorf("%w: node %s -> %s", util.ErrInvalidTransition, node.Status, status)
	}
	if err := s.NodeRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, util.Storage(err)
	}

	logger.ForNode(id).Info("node status changed",
		zap.String("from", node.Status),
		zap.String("to", status))
	node.Status = status
	return node, nil
}
