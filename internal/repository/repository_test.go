package repository

import (
	"context"
	"testing"
	"time"

	"edu_network_backend/internal/model"
	"edu_network_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestUpsertMirrorKeepsSingleRowAndCustomization(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLocalContentRepository(db)
	ctx := context.Background()

	now := time.Now()
	first := &model.LocalContent{
		NodeID:            "node-1",
		GlobalContentID:   strPtr("content-1"),
		Title:             "v1",
		Payload:           datatypes.JSON(`{"lessons":[]}`),
		SourceVersion:     "1.0.0",
		PublishStatus:     model.PublishStatusPublished,
		TranslationStatus: model.TranslationNotStarted,
		LastSyncedAt:      &now,
	}
	created, err := repo.UpsertMirror(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	// 模拟节点本地化
	row, err := repo.FindByNodeAndContent(ctx, "node-1", "content-1")
	require.NoError(t, err)
	row.IsCustomized = true
	row.TranslationStatus = model.TranslationInProgress
	row.Customization = model.Customization{
		LocalizationType: model.LocalizationTranslation,
		Adaptations:      []model.CulturalAdaptation{{SectionID: "intro", Adapted: "مرحبا"}},
	}
	require.NoError(t, repo.Save(ctx, row))

	second := &model.LocalContent{
		NodeID:          "node-1",
		GlobalContentID: strPtr("content-1"),
		Title:           "v2",
		Payload:         datatypes.JSON(`{"lessons":[1]}`),
		SourceVersion:   "1.0.1",
		PublishStatus:   model.PublishStatusPublished,
		LastSyncedAt:    &now,
	}
	created, err = repo.UpsertMirror(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.CountByNodeAndContent(ctx, "node-1", "content-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	row, err = repo.FindByNodeAndContent(ctx, "node-1", "content-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", row.Title)
	assert.Equal(t, "1.0.1", row.SourceVersion)
	assert.True(t, row.IsCustomized)
	assert.Equal(t, model.TranslationInProgress, row.TranslationStatus)
	require.Len(t, row.Customization.Adaptations, 1)
	assert.Equal(t, "مرحبا", row.Customization.Adaptations[0].Adapted)
}

func TestUpsertMirrorFallsBackToUpdateWhenInsertLosesRace(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLocalContentRepository(db)
	ctx := context.Background()

	// 查询之后、插入之前，另一个分发者抢先写入同一 (节点, 内容) 且已被本地化
	fired := false
	var rivalErr error
	require.NoError(t, db.Callback().Create().Before("gorm:begin_transaction").Register("test:rival_mirror", func(tx *gorm.DB) {
		if fired || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "local_contents" {
			return
		}
		fired = true
		rivalErr = db.WithContext(ctx).Create(&model.LocalContent{
			NodeID:            "node-1",
			GlobalContentID:   strPtr("content-1"),
			Title:             "rival",
			SourceVersion:     "1.0.0",
			IsCustomized:      true,
			TranslationStatus: model.TranslationInProgress,
			Customization: model.Customization{
				LocalizationType: model.LocalizationTranslation,
				Adaptations:      []model.CulturalAdaptation{{SectionID: "intro", Adapted: "أهلا"}},
			},
		}).Error
	}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove("test:rival_mirror") })

	now := time.Now()
	created, err := repo.UpsertMirror(ctx, &model.LocalContent{
		NodeID:          "node-1",
		GlobalContentID: strPtr("content-1"),
		Title:           "v2",
		Description:     "synced",
		Payload:         datatypes.JSON(`{"lessons":[2]}`),
		SourceVersion:   "1.1.0",
		PublishStatus:   model.PublishStatusPublished,
		LastSyncedAt:    &now,
	})
	require.True(t, fired)
	require.NoError(t, rivalErr)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.CountByNodeAndContent(ctx, "node-1", "content-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	row, err := repo.FindByNodeAndContent(ctx, "node-1", "content-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", row.Title)
	assert.Equal(t, "synced", row.Description)
	assert.Equal(t, "1.1.0", row.SourceVersion)
	assert.JSONEq(t, `{"lessons":[2]}`, string(row.Payload))
	require.NotNil(t, row.LastSyncedAt)
	assert.True(t, row.IsCustomized)
	assert.Equal(t, model.TranslationInProgress, row.TranslationStatus)
	require.Len(t, row.Customization.Adaptations, 1)
	assert.Equal(t, "أهلا", row.Customization.Adaptations[0].Adapted)
}

func TestUpsertMirrorRejectsSoftDeletedConflict(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLocalContentRepository(db)
	ctx := context.Background()

	old := &model.LocalContent{NodeID: "node-1", GlobalContentID: strPtr("content-1"), Title: "v1", SourceVersion: "1.0.0"}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, db.Delete(&model.LocalContent{}, "id = ?", old.ID).Error)

	// 软删除的行不可见但仍占着唯一索引
	created, err := repo.UpsertMirror(ctx, &model.LocalContent{
		NodeID:          "node-1",
		GlobalContentID: strPtr("content-1"),
		Title:           "v2",
		SourceVersion:   "1.1.0",
	})
	assert.False(t, created)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMirrorNotUpdated)

	var stored model.LocalContent
	require.NoError(t, db.Unscoped().First(&stored, "id = ?", old.ID).Error)
	assert.Equal(t, "v1", stored.Title)
}

func TestLocalContentUniqueConstraint(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLocalContentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.LocalContent{NodeID: "n", GlobalContentID: strPtr("c"), Title: "a"}))
	assert.Error(t, repo.Create(ctx, &model.LocalContent{NodeID: "n", GlobalContentID: strPtr("c"), Title: "b"}))

	// 纯本地内容没有来源，不受约束
	require.NoError(t, repo.Create(ctx, &model.LocalContent{NodeID: "n", Title: "local 1"}))
	require.NoError(t, repo.Create(ctx, &model.LocalContent{NodeID: "n", Title: "local 2"}))
}

func TestContentRepositoryVersionOrdering(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	for _, v := range []model.SemVer{{Major: 1}, {Major: 1, Minor: 10}, {Major: 1, Minor: 9, Patch: 3}} {
		require.NoError(t, repo.CreateVersion(ctx, &model.ContentVersion{
			ContentID: "c1", Version: v.String(), Major: v.Major, Minor: v.Minor, Patch: v.Patch, ChangeType: model.ChangeMinor,
		}))
	}

	latest, err := repo.LatestVersion(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", latest.Version)

	versions, err := repo.GetVersions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "1.9.3", versions[1].Version)

	// 同一内容的版本号唯一
	err = repo.CreateVersion(ctx, &model.ContentVersion{ContentID: "c1", Version: "1.0.0", Major: 1, ChangeType: model.ChangeMajor})
	assert.Error(t, err)
}

func TestContentRepositoryListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	items := []model.GlobalContent{
		{Title: "Arabic grammar", ContentType: model.ContentTypeCourse, Category: "language", AccessTier: model.TierFree, IsPublished: true},
		{Title: "Algebra basics", ContentType: model.ContentTypeCourse, Category: "math", AccessTier: model.TierPremium, IsPublished: true},
		{Title: "Algebra quiz", ContentType: model.ContentTypeAssessment, Category: "math", AccessTier: model.TierPremium},
	}
	for i := range items {
		require.NoError(t, repo.Create(ctx, &items[i]))
	}

	published := true
	list, total, err := repo.List(ctx, ContentFilter{Category: "math", Published: &published, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "Algebra basics", list[0].Title)

	_, total, err = repo.List(ctx, ContentFilter{Search: "Algebra", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = repo.List(ctx, ContentFilter{AccessTier: model.TierPremium, ContentType: model.ContentTypeAssessment})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSubscriptionFindActive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &model.Subscription{
		UserID: "u1", NodeID: "n1", Tier: model.TierPremium, IsActive: true,
		StartDate: now.AddDate(0, -2, 0), EndDate: now.AddDate(0, -1, 0),
	}))
	_, err := repo.FindActive(ctx, "u1", "n1", now)
	assert.Error(t, err)

	require.NoError(t, repo.Create(ctx, &model.Subscription{
		UserID: "u1", NodeID: "n1", Tier: model.TierEnterprise, IsActive: true,
		StartDate: now, EndDate: now.AddDate(1, 0, 0),
	}))
	sub, err := repo.FindActive(ctx, "u1", "n1", now)
	require.NoError(t, err)
	assert.Equal(t, model.TierEnterprise, sub.Tier)

	_, err = repo.FindActive(ctx, "u1", "n2", now)
	assert.Error(t, err)
}

func TestTranslationTransitionStatusIsConditional(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTranslationRepository(db)
	ctx := context.Background()

	req := &model.TranslationRequest{
		LocalContentID: "lc-1",
		TargetLanguage: "ar",
		Mode:           model.TranslationModeHuman,
		Status:         model.TranslationInProgress,
	}
	require.NoError(t, repo.Create(ctx, req))

	ok, err := repo.TransitionStatus(ctx, req.ID, model.TranslationInProgress, map[string]interface{}{
		"status":          model.TranslationReview,
		"translated_text": "first",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// 以旧状态再流转一次，不应命中
	ok, err = repo.TransitionStatus(ctx, req.ID, model.TranslationInProgress, map[string]interface{}{
		"status":          model.TranslationReview,
		"translated_text": "second",
	})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TranslationReview, stored.Status)
	assert.Equal(t, "first", stored.TranslatedText)
}
