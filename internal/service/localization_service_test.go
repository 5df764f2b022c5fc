package service

import (
	"context"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizeCreatesDraftMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "tn-tunis", model.NodeStatusActive)
	c := f.lesson(t, "Proverbs")

	lc, err := f.localization.Localize(ctx, LocalizeRequest{
		GlobalContentID:  c.ID,
		NodeID:           n.ID,
		TargetLanguage:   "ar-TN",
		LocalizationType: model.LocalizationAdaptation,
		Adaptations: []model.CulturalAdaptation{
			{SectionID: "s1", Original: "snow day", Adapted: "sandstorm day", Rationale: "climate"},
			{SectionID: "s2", Original: "dollars", Adapted: "dinars", Rationale: "currency", ApprovedBy: "lead-editor"},
		},
		Resources: []model.LocalResource{{Title: "Ministry guide", URL: "https://example.org/guide", Kind: "pdf"}},
		ActorID:   "operator-7",
	})
	require.NoError(t, err)

	assert.Equal(t, model.PublishStatusDraft, lc.PublishStatus)
	assert.Equal(t, model.TranslationInProgress, lc.TranslationStatus)
	assert.True(t, lc.IsCustomized)
	assert.Equal(t, "ar-TN", lc.TargetLanguage)
	assert.Equal(t, "1.0.0", lc.SourceVersion)
	assert.Equal(t, c.Title, lc.Title)

	stored, err := f.localization.GetLocalContent(ctx, lc.ID)
	require.NoError(t, err)
	cz := stored.Customization
	assert.Equal(t, model.LocalizationAdaptation, cz.LocalizationType)
	assert.Equal(t, 1, cz.Passes)
	assert.Equal(t, "operator-7", cz.LocalizedBy)
	require.Len(t, cz.Adaptations, 2)
	assert.Equal(t, "operator-7", cz.Adaptations[0].ApprovedBy)
	assert.Equal(t, "lead-editor", cz.Adaptations[1].ApprovedBy)
	assert.False(t, cz.Adaptations[0].RecordedAt.IsZero())
	require.Len(t, cz.Resources, 1)
}

func TestLocalizeAppendsAdaptationsAndKeepsPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "jo-amman", model.NodeStatusActive)
	c := f.lesson(t, "Markets")

	_, err := f.distribution.Distribute(ctx, c.ID, DistributeOptions{TargetNodeIDs: []string{n.ID}})
	require.NoError(t, err)

	first := LocalizeRequest{
		GlobalContentID:  c.ID,
		NodeID:           n.ID,
		TargetLanguage:   "ar",
		LocalizationType: model.LocalizationTranslation,
		Adaptations:      []model.CulturalAdaptation{{SectionID: "a", Original: "x", Adapted: "y", Rationale: "r1"}},
		LocalExamples:    []model.LocalExample{{SectionID: "a", Title: "old"}},
		ActorID:          "op-1",
	}
	_, err = f.localization.Localize(ctx, first)
	require.NoError(t, err)

	second := first
	second.LocalizationType = model.LocalizationRecreation
	second.Adaptations = []model.CulturalAdaptation{{SectionID: "b", Original: "p", Adapted: "q", Rationale: "r2"}}
	second.LocalExamples = []model.LocalExample{{SectionID: "b", Title: "new"}}
	second.ActorID = "op-2"
	lc, err := f.localization.Localize(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, model.PublishStatusPublished, lc.PublishStatus)
	assert.Equal(t, model.TranslationInProgress, lc.TranslationStatus)

	stored := f.mirror(t, n.ID, c.ID)
	cz := stored.Customization
	assert.Equal(t, 2, cz.Passes)
	assert.Equal(t, model.LocalizationRecreation, cz.LocalizationType)
	require.Len(t, cz.Adaptations, 2)
	assert.Equal(t, "r1", cz.Adaptations[0].Rationale)
	assert.Equal(t, "op-1", cz.Adaptations[0].ApprovedBy)
	assert.Equal(t, "r2", cz.Adaptations[1].Rationale)
	require.Len(t, cz.LocalExamples, 1)
	assert.Equal(t, "new", cz.LocalExamples[0].Title)

	count, err := f.localRepo.CountByNodeAndContent(ctx, n.ID, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestLocalizeRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "lb-beirut", model.NodeStatusActive)
	c := f.lesson(t, "Rivers")

	_, err := f.localization.Localize(ctx, LocalizeRequest{
		GlobalContentID: c.ID, NodeID: n.ID, TargetLanguage: "ar", LocalizationType: "transcreation",
	})
	assert.ErrorIs(t, err, util.ErrInvalidLocalizationType)

	_, err = f.localization.Localize(ctx, LocalizeRequest{
		GlobalContentID: "missing", NodeID: n.ID, TargetLanguage: "ar", LocalizationType: model.LocalizationTranslation,
	})
	assert.ErrorIs(t, err, util.ErrContentNotFound)

	_, err = f.localization.Localize(ctx, LocalizeRequest{
		GlobalContentID: c.ID, NodeID: "missing", TargetLanguage: "ar", LocalizationType: model.LocalizationTranslation,
	})
	assert.ErrorIs(t, err, util.ErrNodeNotFound)

	_, err = f.localization.GetLocalContent(ctx, "missing")
	assert.ErrorIs(t, err, util.ErrLocalContentMissing)
}

func TestListLocalContentByNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "sa-riyadh", model.NodeStatusActive)
	other := f.node(t, "ae-dubai", model.NodeStatusActive)
	c1 := f.lesson(t, "One")
	c2 := f.lesson(t, "Two")

	for _, c := range []*model.GlobalContent{c1, c2} {
		_, err := f.distribution.Distribute(ctx, c.ID, DistributeOptions{TargetNodeIDs: []string{n.ID}})
		require.NoError(t, err)
	}

	items, total, err := f.localization.ListLocalContent(ctx, n.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = f.localization.ListLocalContent(ctx, other.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, _, err = f.localization.ListLocalContent(ctx, "missing", 1, 10)
	assert.ErrorIs(t, err, util.ErrNodeNotFound)
}
