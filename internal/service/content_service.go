package service

import (
	"context"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/util"
	"edu_network_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
)

// ContentService 全局内容的查询与发布开关，版本相关写操作在 VersionService
type ContentService struct {
	ContentRepo *repository.ContentRepository
}

func NewContentService(contentRepo *repository.ContentRepository) *ContentService {
	return &ContentService{ContentRepo: contentRepo}
}

func (s *ContentService) List(ctx context.Context, filter repository.ContentFilter) ([]model.GlobalContent, int64, error) {
	if filter.ContentType != "" && !model.IsValidContentType(filter.ContentType) {
		return nil, 0, util.ErrInvalidContentType
	}
	if filter.AccessTier != "" && !model.IsValidTier(filter.AccessTier) {
		return nil, 0, util.ErrInvalidTier
	}
	filter.Search = strings.TrimSpace(filter.Search)

	contents, total, err := s.ContentRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, util.Storage(err)
	}
	return contents, total, nil
}

func (s *ContentService) Get(ctx context.Context, id string) (*model.GlobalContent, error) {
	content, err := s.ContentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, util.ErrContentNotFound)
	}
	return content, nil
}

// SetPublished 发布状态与分发无关，未发布的内容同样可以分发
func (s *ContentService) SetPublished(ctx context.Context, id string, published bool, actorID string) (*model.GlobalContent, error) {
	content, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ContentRepo.SetPublished(ctx, id, published); err != nil {
		return nil, util.Storage(err)
	}
	content.IsPublished = published

	logger.Log.Info("content publish state changed",
		zap.String("contentId", id),
		zap.Bool("published", published),
		zap.String("actor", actorID))
	return content, nil
}
