package service

import (
	"context"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/util"
	"edu_network_backend/pkg/logger"
	"edu_network_backend/pkg/monitoring"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ValidateTranslationTransition 拒绝跳步和回退
func ValidateTranslationTransition(from, to string) error {
	if !model.IsValidTranslationStatus(to) {
		return fmt.Errorf("%w: unknown translation status %q", util.ErrValidationFailed, to)
	}
	if !model.CanTransitionTranslation(from, to) {
		return fmt.Errorf("%w: translation %s -> %s", util.ErrInvalidTransition, from, to)
	}
	return nil
}

type TranslationService struct {
	DB              *gorm.DB
	TranslationRepo *repository.TranslationRepository
	LocalRepo       *repository.LocalContentRepository
}

func NewTranslationService(db *gorm.DB, translationRepo *repository.TranslationRepository, localRepo *repository.LocalContentRepository) *TranslationService {
	return &TranslationService{
		DB:              db,
		TranslationRepo: translationRepo,
		LocalRepo:       localRepo,
	}
}

type CreateTranslationRequest struct {
	LocalContentID string `json:"localContentId" binding:"required"`
	TranslatorID   string `json:"translatorId"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	SourceText     string `json:"sourceText"`
	Mode           string `json:"mode" binding:"required"`
	Priority       int    `json:"priority"`
}

// CreateRequest 新建的请求已被译者认领，直接处于 in_progress
func (s *TranslationService) CreateRequest(ctx context.Context, req CreateTranslationRequest) (*model.TranslationRequest, error) {
	if !model.IsValidTranslationMode(req.Mode) {
		return nil, util.ErrInvalidMode
	}

	var tr *model.TranslationRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		localRepo := s.LocalRepo.WithTx(tx)
		lc, err := localRepo.FindByID(ctx, req.LocalContentID)
		if err != nil {
			return lookupErr(err, util.ErrLocalContentMissing)
		}

		target := req.TargetLanguage
		if target == "" {
			target = lc.TargetLanguage
		}
		if target == "" {
			return fmt.Errorf("%w: target language required", util.ErrValidationFailed)
		}

		tr = &model.TranslationRequest{
			LocalContentID: lc.ID,
			TranslatorID:   req.TranslatorID,
			SourceLanguage: req.SourceLanguage,
			TargetLanguage: target,
			SourceText:     req.SourceText,
			Mode:           req.Mode,
			Status:         model.TranslationNotStarted,
			Priority:       req.Priority,
		}
		if err := ValidateTranslationTransition(tr.Status, model.TranslationInProgress); err != nil {
			return err
		}
		tr.Status = model.TranslationInProgress

		if err := s.TranslationRepo.WithTx(tx).Create(ctx, tr); err != nil {
			return err
		}
		return localRepo.UpdateStatuses(ctx, lc.ID, map[string]interface{}{
			"translation_status": model.TranslationInProgress,
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	logger.Log.Info("translation request created",
		zap.String("requestId", tr.ID),
		zap.String("localContentId", tr.LocalContentID),
		zap.String("mode", tr.Mode))
	return tr, nil
}

// SubmitTranslation in_progress → review，译文不能为空
func (s *TranslationService) SubmitTranslation(ctx context.Context, id, translatedText string, qualityMeta map[string]interface{}) (*model.TranslationRequest, error) {
	if strings.TrimSpace(translatedText) == "" {
		return nil, util.ErrEmptyTranslation
	}

	var tr *model.TranslationRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.TranslationRepo.WithTx(tx)
		var err error
		tr, err = repo.FindByID(ctx, id)
		if err != nil {
			return lookupErr(err, util.ErrTranslationNotFound)
		}
		if err := ValidateTranslationTransition(tr.Status, model.TranslationReview); err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":          model.TranslationReview,
			"translated_text": translatedText,
			"submitted_at":    now,
		}
		if qualityMeta != nil {
			updates["quality_meta"] = datatypes.JSONMap(qualityMeta)
		}
		if err := claimTransition(ctx, repo, tr, updates); err != nil {
			return err
		}
		tr.Status = model.TranslationReview
		tr.TranslatedText = translatedText
		tr.SubmittedAt = &now
		if qualityMeta != nil {
			tr.QualityMeta = datatypes.JSONMap(qualityMeta)
		}
		return s.LocalRepo.WithTx(tx).UpdateStatuses(ctx, tr.LocalContentID, map[string]interface{}{
			"translation_status": model.TranslationReview,
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	logger.Log.Info("translation submitted for review", zap.String("requestId", id))
	return tr, nil
}

// ApproveTranslation review → completed，同时把镜像重新发布
func (s *TranslationService) ApproveTranslation(ctx context.Context, id, reviewerID string) (*model.TranslationRequest, error) {
	var tr *model.TranslationRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.TranslationRepo.WithTx(tx)
		var err error
		tr, err = repo.FindByID(ctx, id)
		if err != nil {
			return lookupErr(err, util.ErrTranslationNotFound)
		}
		if err := ValidateTranslationTransition(tr.Status, model.TranslationCompleted); err != nil {
			return err
		}

		now := time.Now()
		if err := claimTransition(ctx, repo, tr, map[string]interface{}{
			"status":       model.TranslationCompleted,
			"reviewer_id":  reviewerID,
			"completed_at": now,
		}); err != nil {
			return err
		}
		tr.Status = model.TranslationCompleted
		tr.ReviewerID = reviewerID
		tr.CompletedAt = &now
		return s.LocalRepo.WithTx(tx).UpdateStatuses(ctx, tr.LocalContentID, map[string]interface{}{
			"translation_status": model.TranslationCompleted,
			"publish_status":     model.PublishStatusPublished,
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	logger.Log.Info("translation approved",
		zap.String("requestId", id),
		zap.String("reviewer", reviewerID))
	return tr, nil
}

// claimTransition 以读到的状态为条件写入；期间被别人流转过则按非法流转返回
func claimTransition(ctx context.Context, repo *repository.TranslationRepository, tr *model.TranslationRequest, updates map[string]interface{}) error {
	ok, err := repo.TransitionStatus(ctx, tr.ID, tr.Status, updates)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: translation %s is no longer %s", util.ErrInvalidTransition, tr.ID, tr.Status)
	}
	return nil
}

func (s *TranslationService) GetRequest(ctx context.Context, id string) (*model.TranslationRequest, error) {
	tr, err := s.TranslationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, util.ErrTranslationNotFound)
	}
	return tr, nil
}

func (s *TranslationService) ListByLocalContent(ctx context.Context, localContentID string) ([]model.TranslationRequest, error) {
	reqs, err := s.TranslationRepo.ListByLocalContent(ctx, localContentID)
	if err != nil {
		return nil, util.Storage(err)
	}
	return reqs, nil
}

// ListStaleReviews 在 review 中停留超过 olderThan 的请求
func (s *TranslationService) ListStaleReviews(ctx context.Context, olderThan time.Duration) ([]model.TranslationRequest, error) {
	reqs, err := s.TranslationRepo.ListInReviewSince(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return nil, util.Storage(err)
	}
	return reqs, nil
}

// RefreshStaleGauge 只上报，不做任何状态变更
func (s *TranslationService) RefreshStaleGauge(ctx context.Context, olderThan time.Duration) error {
	reqs, err := s.ListStaleReviews(ctx, olderThan)
	if err != nil {
		return err
	}
	monitoring.StaleTranslationReviews.Set(float64(len(reqs)))
	if len(reqs) > 0 {
		logger.Log.Warn("translation requests waiting in review",
			zap.Int("count", len(reqs)),
			zap.Duration("threshold", olderThan))
	}
	return nil
}
