package service

import (
	"context"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/util"
	"edu_network_backend/pkg/lock"
	"edu_network_backend/pkg/logger"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LocalizationService struct {
	DB          *gorm.DB
	ContentRepo *repository.ContentRepository
	NodeRepo    *repository.NodeRepository
	LocalRepo   *repository.LocalContentRepository
	Locker      lock.Locker
}

func NewLocalizationService(db *gorm.DB, contentRepo *repository.ContentRepository, nodeRepo *repository.NodeRepository, localRepo *repository.LocalContentRepository, locker lock.Locker) *LocalizationService {
	return &LocalizationService{
		DB:          db,
		ContentRepo: contentRepo,
		NodeRepo:    nodeRepo,
		LocalRepo:   localRepo,
		Locker:      locker,
	}
}

type LocalizeRequest struct {
	GlobalContentID  string                     `json:"globalContentId" binding:"required"`
	NodeID           string                     `json:"-"`
	TargetLanguage   string                     `json:"targetLanguage" binding:"required"`
	LocalizationType string                     `json:"localizationType" binding:"required"`
	Adaptations      []model.CulturalAdaptation `json:"adaptations"`
	LocalExamples    []model.LocalExample       `json:"localExamples"`
	Resources        []model.LocalResource      `json:"resources"`
	ActorID          string                     `json:"-"`
}

// Localize 为节点镜像叠加一次本地化。
// 已有行：更新语言与定制层，翻译状态回到 in_progress，发布状态不变；
// 无行：以 draft 新建。文化适配记录只追加。
func (s *LocalizationService) Localize(ctx context.Context, req LocalizeRequest) (*model.LocalContent, error) {
	if !model.IsValidLocalizationType(req.LocalizationType) {
		return nil, util.ErrInvalidLocalizationType
	}

	content, err := s.ContentRepo.FindByID(ctx, req.GlobalContentID)
	if err != nil {
		return nil, lookupErr(err, util.ErrContentNotFound)
	}
	node, err := s.NodeRepo.FindByID(ctx, req.NodeID)
	if err != nil {
		return nil, lookupErr(err, util.ErrNodeNotFound)
	}

	unlock, err := s.Locker.Lock(ctx, lock.MirrorKey(node.ID, content.ID))
	if err != nil {
		return nil, util.Storage(fmt.Errorf("acquire mirror lock: %w", err))
	}
	defer unlock()

	now := time.Now()
	var result *model.LocalContent
	created := false

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.LocalRepo.WithTx(tx)

		lc, err := repo.FindByNodeAndContent(ctx, node.ID, content.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if lc == nil {
			contentID := content.ID
			lc = &model.LocalContent{
				NodeID:          node.ID,
				GlobalContentID: &contentID,
				Title:           content.Title,
				Description:     content.Description,
				Payload:         content.Payload,
				SourceVersion:   content.CurrentVersion,
				PublishStatus:   model.PublishStatusDraft,
			}
			created = true
		}

		lc.TargetLanguage = req.TargetLanguage
		lc.IsCustomized = true
		lc.TranslationStatus = model.TranslationInProgress
		applyCustomization(&lc.Customization, req, now)

		if created {
			if err := repo.Create(ctx, lc); err != nil {
				return err
			}
		} else if err := repo.Save(ctx, lc); err != nil {
			return err
		}
		result = lc
		return nil
	})
	if err != nil {
		return nil, util.Storage(err)
	}

	logger.ForNode(node.ID).Info("content localized",
		zap.String("localContentId", result.ID),
		zap.String("contentId", content.ID),
		zap.String("type", req.LocalizationType),
		zap.Bool("created", created),
		zap.Int("pass", result.Customization.Passes))
	return result, nil
}

// applyCustomization 追加适配审计记录，示例与资源以本次为准
func applyCustomization(c *model.Customization, req LocalizeRequest, now time.Time) {
	for _, a := range req.Adaptations {
		if a.ApprovedBy == "" {
			a.ApprovedBy = req.ActorID
		}
		a.RecordedAt = now
		c.Adaptations = append(c.Adaptations, a)
	}
	c.LocalizationType = req.LocalizationType
	c.LocalExamples = req.LocalExamples
	c.Resources = req.Resources
	c.LocalizedBy = req.ActorID
	c.LocalizedAt = &now
	c.Passes++
}

func (s *LocalizationService) GetLocalContent(ctx context.Context, id string) (*model.LocalContent, error) {
	lc, err := s.LocalRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, util.ErrLocalContentMissing)
	}
	return lc, nil
}

func (s *LocalizationService) ListLocalContent(ctx context.Context, nodeID string, page, limit int) ([]model.LocalContent, int64, error) {
	if _, err := s.NodeRepo.FindByID(ctx, nodeID); err != nil {
		return nil, 0, lookupErr(err, util.ErrNodeNotFound)
	}
	items, total, err := s.LocalRepo.ListByNode(ctx, nodeID, page, limit)
	if err != nil {
		return nil, 0, util.Storage(err)
	}
	return items, total, nil
}
