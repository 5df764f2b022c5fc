package service

import (
	"context"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/util"
	"edu_network_backend/pkg/logger"
	"edu_network_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const initialVersion = "1.0.0"

// VersionService 负责全局内容的创建与版本管理，当前版本指针只在这里移动
type VersionService struct {
	DB          *gorm.DB
	ContentRepo *repository.ContentRepository
	Validator   ContentValidator
	Storage     *StorageService
}

func NewVersionService(db *gorm.DB, contentRepo *repository.ContentRepository, validator ContentValidator, storage *StorageService) *VersionService {
	return &VersionService{
		DB:          db,
		ContentRepo: contentRepo,
		Validator:   validator,
		Storage:     storage,
	}
}

type CreateContentRequest struct {
	Title              string                 `json:"title" binding:"required"`
	Description        string                 `json:"description"`
	ContentType        string                 `json:"contentType" binding:"required"`
	Category           string                 `json:"category"`
	DifficultyLevel    string                 `json:"difficultyLevel"`
	AgeGroup           string                 `json:"ageGroup"`
	AccessTier         string                 `json:"accessTier"`
	EstimatedMinutes   int                    `json:"estimatedMinutes"`
	Prerequisites      []string               `json:"prerequisites"`
	LearningObjectives []string               `json:"learningObjectives"`
	Payload            json.RawMessage        `json:"payload" binding:"required"`
	Metadata           map[string]interface{} `json:"metadata"`
	IsPublished        bool                   `json:"isPublished"`
}

// CreateGlobalContent 创建内容及其初始稳定版本 1.0.0，二者同一事务提交
func (s *VersionService) CreateGlobalContent(ctx context.Context, creatorID string, req CreateContentRequest) (*model.GlobalContent, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title required", util.ErrValidationFailed)
	}
	if !model.IsValidContentType(req.ContentType) {
		return nil, util.ErrInvalidContentType
	}
	if req.AccessTier == "" {
		req.AccessTier = model.TierFree
	}
	if !model.IsValidTier(req.AccessTier) {
		return nil, util.ErrInvalidTier
	}
	if err := s.Validator.Validate(req.ContentType, req.Payload); err != nil {
		return nil, err
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["author"] = creatorID
	metadata["lastEditor"] = creatorID

	content := &model.GlobalContent{
		Title:              req.Title,
		Description:        req.Description,
		ContentType:        req.ContentType,
		Category:           req.Category,
		DifficultyLevel:    req.DifficultyLevel,
		AgeGroup:           req.AgeGroup,
		AccessTier:         req.AccessTier,
		EstimatedMinutes:   req.EstimatedMinutes,
		Prerequisites:      req.Prerequisites,
		LearningObjectives: req.LearningObjectives,
		Payload:            datatypes.JSON(req.Payload),
		Metadata:           metadata,
		IsPublished:        req.IsPublished,
		CreatorID:          creatorID,
	}

	var version *model.ContentVersion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ContentRepo.WithTx(tx)
		if err := repo.Create(ctx, content); err != nil {
			return err
		}

		now := time.Now()
		version = &model.ContentVersion{
			ContentID:   content.ID,
			Version:     initialVersion,
			Major:       1,
			ChangeType:  model.ChangeMajor,
			ChangeNotes: []string{"Initial version"},
			Payload:     content.Payload,
			IsStable:    true,
			CreatedBy:   creatorID,
			PromotedAt:  &now,
		}
		if err := repo.CreateVersion(ctx, version); err != nil {
			return err
		}

		content.CurrentVersionID = version.ID
		content.CurrentVersion = version.Version
		return repo.SetCurrentVersion(ctx, content.ID, version.ID, version.Version)
	})
	if err != nil {
		return nil, util.Storage(err)
	}

	monitoring.ContentVersionsCreated.WithLabelValues(model.ChangeMajor).Inc()
	s.archive(ctx, version)
	logger.Log.Info("global content created",
		zap.String("contentId", content.ID),
		zap.String("type", content.ContentType),
		zap.String("creator", creatorID))
	return content, nil
}

type CreateVersionRequest struct {
	ChangeType  string          `json:"changeType" binding:"required"`
	ChangeNotes []string        `json:"changeNotes"`
	Payload     json.RawMessage `json:"payload" binding:"required"`
	// Force 跳过评审直接提升为当前版本
	Force bool `json:"force"`
}

// CreateVersion 从最新创建的版本按变更类型推导下一个版本号。
// patch 自动稳定并成为当前版本；major/minor 为草稿，除非 Force。
func (s *VersionService) CreateVersion(ctx context.Context, contentID, actorID string, req CreateVersionRequest) (*model.ContentVersion, error) {
	if !model.IsValidChangeType(req.ChangeType) {
		return nil, util.ErrInvalidChangeType
	}

	content, err := s.ContentRepo.FindByID(ctx, contentID)
	if err != nil {
		return nil, lookupErr(err, util.ErrContentNotFound)
	}
	if err := s.Validator.Validate(content.ContentType, req.Payload); err != nil {
		return nil, err
	}

	var version *model.ContentVersion
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ContentRepo.WithTx(tx)

		base := model.SemVer{}
		latest, err := repo.LatestVersion(ctx, contentID)
		switch {
		case err == nil:
			base = latest.SemVer()
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		next, err := base.Bump(req.ChangeType)
		if err != nil {
			return util.ErrInvalidChangeType
		}

		stable := req.ChangeType == model.ChangePatch
		promote := stable || req.Force

		now := time.Now()
		version = &model.ContentVersion{
			ContentID:   contentID,
			Version:     next.String(),
			Major:       next.Major,
			Minor:       next.Minor,
			Patch:       next.Patch,
			ChangeType:  req.ChangeType,
			ChangeNotes: req.ChangeNotes,
			Payload:     datatypes.JSON(req.Payload),
			IsStable:    promote,
			CreatedBy:   actorID,
		}
		if promote {
			version.PromotedAt = &now
		}
		if err := repo.CreateVersion(ctx, version); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: version %s already exists", util.ErrValidationFailed, version.Version)
			}
			return err
		}

		if !promote {
			return nil
		}
		return s.makeCurrent(ctx, repo, contentID, version, actorID)
	})
	if err != nil {
		return nil, classify(err)
	}

	monitoring.ContentVersionsCreated.WithLabelValues(req.ChangeType).Inc()
	s.archive(ctx, version)
	logger.Log.Info("content version created",
		zap.String("contentId", contentID),
		zap.String("version", version.Version),
		zap.String("changeType", req.ChangeType),
		zap.Bool("current", version.IsStable))
	return version, nil
}

// PromoteVersion 评审通过后把草稿版本标记为稳定并设为当前版本，指针不会回退
func (s *VersionService) PromoteVersion(ctx context.Context, contentID, versionID, actorID string) (*model.ContentVersion, error) {
	var version *model.ContentVersion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ContentRepo.WithTx(tx)

		content, err := repo.FindByIDForUpdate(ctx, contentID)
		if err != nil {
			return lookupErr(err, util.ErrContentNotFound)
		}
		version, err = repo.GetVersionByID(ctx, versionID)
		if err != nil {
			return lookupErr(err, util.ErrVersionNotFound)
		}
		if version.ContentID != contentID {
			return util.ErrVersionNotFound
		}
		if content.CurrentVersionID == version.ID {
			return nil
		}
		if content.CurrentVersion != "" {
			current, err := model.ParseSemVer(content.CurrentVersion)
			if err == nil && version.SemVer().Less(current) {
				return util.ErrVersionRegression
			}
		}

		if !version.IsStable {
			now := time.Now()
			version.IsStable = true
			version.PromotedAt = &now
			if err := repo.MarkVersionStable(ctx, version); err != nil {
				return err
			}
		}
		return s.makeCurrent(ctx, repo, content.ID, version, actorID)
	})
	if err != nil {
		return nil, classify(err)
	}

	logger.Log.Info("content version promoted",
		zap.String("contentId", contentID),
		zap.String("version", version.Version),
		zap.String("actor", actorID))
	return version, nil
}

// makeCurrent 必须在事务内调用：加锁重读内容行，只写指针、payload 与 lastEditor
func (s *VersionService) makeCurrent(ctx context.Context, repo *repository.ContentRepository, contentID string, version *model.ContentVersion, actorID string) error {
	content, err := repo.FindByIDForUpdate(ctx, contentID)
	if err != nil {
		return lookupErr(err, util.ErrContentNotFound)
	}
	metadata := datatypes.JSONMap{}
	for k, v := range content.Metadata {
		metadata[k] = v
	}
	metadata["lastEditor"] = actorID
	return repo.PointToVersion(ctx, contentID, version, metadata)
}

func (s *VersionService) ListVersions(ctx context.Context, contentID string) ([]model.ContentVersion, error) {
	if _, err := s.ContentRepo.FindByID(ctx, contentID); err != nil {
		return nil, lookupErr(err, util.ErrContentNotFound)
	}
	versions, err := s.ContentRepo.GetVersions(ctx, contentID)
	if err != nil {
		return nil, util.Storage(err)
	}
	return versions, nil
}

func (s *VersionService) GetVersion(ctx context.Context, contentID, versionID string) (*model.ContentVersion, error) {
	v, err := s.ContentRepo.GetVersionByID(ctx, versionID)
	if err != nil {
		return nil, lookupErr(err, util.ErrVersionNotFound)
	}
	if v.ContentID != contentID {
		return nil, util.ErrVersionNotFound
	}
	return v, nil
}

// archive 归档失败只记录日志，不影响版本创建
func (s *VersionService) archive(ctx context.Context, v *model.ContentVersion) {
	if s.Storage == nil || v == nil {
		return
	}
	if _, err := s.Storage.ArchiveVersion(ctx, v); err != nil {
		logger.Log.Warn("archive content version failed",
			zap.String("contentId", v.ContentID),
			zap.String("version", v.Version),
			zap.Error(err))
	}
}
