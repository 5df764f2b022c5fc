package service

import (
	"context"
	"edu_network_backend/internal/config"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n1 := f.node(t, "eg-cairo", model.NodeStatusActive)
	n2 := f.node(t, "ma-rabat", model.NodeStatusActive)
	c := f.lesson(t, "Fractions")

	opts := DistributeOptions{TargetNodeIDs: []string{n1.ID, n2.ID, n1.ID}, InitiatedBy: "editor"}
	first, err := f.distribution.Distribute(ctx, c.ID, opts)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, first.Status)
	assert.Equal(t, 2, first.SuccessfulNodes)
	assert.Equal(t, 0, first.FailedNodes)
	assert.Equal(t, []string{n1.ID, n2.ID}, first.TargetNodes)
	assert.NotNil(t, first.CompletedAt)

	before := f.mirror(t, n1.ID, c.ID)

	second, err := f.distribution.Distribute(ctx, c.ID, opts)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, second.Status)
	assert.NotEqual(t, first.ID, second.ID)

	for _, id := range []string{n1.ID, n2.ID} {
		count, err := f.localRepo.CountByNodeAndContent(ctx, id, c.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	}

	after := f.mirror(t, n1.ID, c.ID)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.SourceVersion, after.SourceVersion)
	assert.Equal(t, before.PublishStatus, after.PublishStatus)
	assert.Equal(t, model.PublishStatusPublished, after.PublishStatus)
	assert.Equal(t, model.TranslationNotStarted, after.TranslationStatus)
	assert.Equal(t, "1.0.0", after.SourceVersion)
}

func TestDistributeFailSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.node(t, "x", model.NodeStatusActive)
	y := f.node(t, "y", model.NodeStatusActive)
	z := f.node(t, "z", model.NodeStatusActive)
	c := f.lesson(t, "Decimals")

	f.mirrors.setFailing(x.ID, true)

	job, err := f.distribution.Distribute(ctx, c.ID, DistributeOptions{TargetNodeIDs: []string{x.ID, y.ID, z.ID}})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPartialFailure, job.Status)
	assert.Equal(t, 2, job.SuccessfulNodes)
	assert.Equal(t, 1, job.FailedNodes)
	require.Len(t, job.Failures, 1)
	assert.Equal(t, x.ID, job.Failures[0].NodeID)
	assert.Contains(t, job.Failures[0].Message, "unreachable")
	assert.False(t, job.Failures[0].FailedAt.IsZero())

	for _, n := range []*model.Node{y, z} {
		lc := f.mirror(t, n.ID, c.ID)
		assert.Equal(t, "1.0.0", lc.SourceVersion)
		assert.Equal(t, c.Title, lc.Title)
	}
	_, err = f.localRepo.FindByNodeAndContent(ctx, x.ID, c.ID)
	assert.Error(t, err)

	stored, err := f.distribution.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPartialFailure, stored.Status)
	assert.Equal(t, []string{x.ID}, stored.FailedNodeIDs())
}

func TestDistributeWithNoActiveNodesCompletesEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.node(t, "pending-node", model.NodeStatusPending)
	c := f.lesson(t, "Empty")

	job, err := f.distribution.Distribute(ctx, c.ID, DistributeOptions{Mode: model.DistributionPushAll})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Zero(t, job.SuccessfulNodes)
	assert.Zero(t, job.FailedNodes)
	assert.Empty(t, job.TargetNodes)
}

func TestDistributeDefaultsToActiveNodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.node(t, "active", model.NodeStatusActive)
	f.node(t, "suspended", model.NodeStatusSuspended)
	c := f.lesson(t, "Defaults")

	job, err := f.distribution.Distribute(ctx, c.ID, DistributeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{active.ID}, job.TargetNodes)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestDistributeExplicitInactiveTargetsFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.node(t, "active", model.NodeStatusActive)
	suspended := f.node(t, "suspended", model.NodeStatusSuspended)
	c := f.lesson(t, "Targets")

	job, err := f.distribution.Distribute(ctx, c.ID, DistributeOptions{
		TargetNodeIDs: []string{active.ID, suspended.ID, "ghost"},
		Mode:          model.DistributionSelective,
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPartialFailure, job.Status)
	assert.Equal(t, 1, job.SuccessfulNodes)
	assert.Equal(t, 2, job.FailedNodes)
	assert.ElementsMatch(t, []string{suspended.ID, "ghost"}, job.FailedNodeIDs())
}

func TestDistributePreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.distribution.Distribute(ctx, "missing", DistributeOptions{})
	assert.ErrorIs(t, err, util.ErrContentNotFound)

	c := f.lesson(t, "Modes")
	_, err = f.distribution.Distribute(ctx, c.ID, DistributeOptions{Mode: "broadcast"})
	assert.ErrorIs(t, err, util.ErrInvalidMode)

	bare := &model.GlobalContent{Title: "no versions", ContentType: model.ContentTypeLesson}
	require.NoError(t, f.contentRepo.Create(ctx, bare))
	_, err = f.distribution.Distribute(ctx, bare.ID, DistributeOptions{})
	assert.ErrorIs(t, err, util.ErrNoCurrentVersion)
}

// 分发之后的本地化定制在重新分发时必须保留
func TestRedistributionPreservesLocalization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n1 := f.node(t, "n1", model.NodeStatusActive)
	n2 := f.node(t, "n2", model.NodeStatusActive)
	c := f.lesson(t, "C1")
	targets := DistributeOptions{TargetNodeIDs: []string{n1.ID, n2.ID}}

	job, err := f.distribution.Distribute(ctx, c.ID, targets)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.SuccessfulNodes)
	assert.Equal(t, "1.0.0", f.mirror(t, n1.ID, c.ID).SourceVersion)

	localized, err := f.localization.Localize(ctx, LocalizeRequest{
		GlobalContentID:  c.ID,
		NodeID:           n1.ID,
		TargetLanguage:   "fr",
		LocalizationType: model.LocalizationTranslation,
		Adaptations: []model.CulturalAdaptation{
			{SectionID: "intro", Original: "pizza slices", Adapted: "parts de galette", Rationale: "local food"},
		},
		LocalExamples: []model.LocalExample{{SectionID: "intro", Title: "Marché", Body: "..."}},
		ActorID:       "operator-1",
	})
	require.NoError(t, err)
	assert.True(t, localized.IsCustomized)
	assert.Equal(t, model.TranslationInProgress, localized.TranslationStatus)

	v, err := f.versions.CreateVersion(ctx, c.ID, "editor", CreateVersionRequest{
		ChangeType: model.ChangePatch, ChangeNotes: []string{"typo fix"}, Payload: lessonPayload("fixed"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", v.Version)

	job, err = f.distribution.Distribute(ctx, c.ID, targets)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, "1.0.1", job.ContentVersion)

	lc := f.mirror(t, n1.ID, c.ID)
	assert.Equal(t, "1.0.1", lc.SourceVersion)
	assert.JSONEq(t, `{"body":"fixed"}`, string(lc.Payload))
	assert.True(t, lc.IsCustomized)
	assert.Equal(t, model.TranslationInProgress, lc.TranslationStatus)
	assert.Equal(t, "fr", lc.TargetLanguage)
	assert.Equal(t, localized.Customization.LocalizationType, lc.Customization.LocalizationType)
	require.Len(t, lc.Customization.Adaptations, 1)
	assert.Equal(t, "parts de galette", lc.Customization.Adaptations[0].Adapted)
	assert.Equal(t, "operator-1", lc.Customization.Adaptations[0].ApprovedBy)
	require.Len(t, lc.Customization.LocalExamples, 1)

	assert.Equal(t, "1.0.1", f.mirror(t, n2.ID, c.ID).SourceVersion)
}

func TestScheduledDistributionRunsWhenDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "scheduled", model.NodeStatusActive)
	c := f.lesson(t, "Later")

	at := time.Now().Add(time.Hour)
	job, err := f.distribution.Distribute(ctx, c.ID, DistributeOptions{TargetNodeIDs: []string{n.ID}, ScheduledAt: &at})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, job.Status)

	ran, err := f.distribution.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, ran)

	require.NoError(t, f.db.Model(&model.DistributionJob{}).
		Where("id = ?", job.ID).
		Update("scheduled_at", time.Now().Add(-time.Minute)).Error)

	ran, err = f.distribution.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)

	stored, err := f.distribution.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.SuccessfulNodes)
	assert.NotNil(t, stored.StartedAt)

	ran, err = f.distribution.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, ran)
}

func TestRetryFailedCreatesSelectiveJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ok := f.node(t, "ok", model.NodeStatusActive)
	flaky := f.node(t, "flaky", model.NodeStatusActive)
	c := f.lesson(t, "Retry")

	f.mirrors.setFailing(flaky.ID, true)
	job, err := f.distribution.Distribute(ctx, c.ID, DistributeOptions{TargetNodeIDs: []string{ok.ID, flaky.ID}})
	require.NoError(t, err)
	require.Equal(t, model.JobStatusPartialFailure, job.Status)

	f.mirrors.setFailing(flaky.ID, false)
	retry, err := f.distribution.RetryFailed(ctx, job.ID, "operator")
	require.NoError(t, err)
	assert.Equal(t, model.DistributionSelective, retry.Mode)
	assert.Equal(t, []string{flaky.ID}, retry.TargetNodes)
	assert.Equal(t, model.JobStatusCompleted, retry.Status)
	assert.Equal(t, 1, retry.SuccessfulNodes)

	_, err = f.distribution.RetryFailed(ctx, retry.ID, "operator")
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	_, err = f.distribution.RetryFailed(ctx, "missing", "operator")
	assert.ErrorIs(t, err, util.ErrJobNotFound)

	jobs, total, err := f.distribution.ListJobs(ctx, c.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, jobs, 2)
}

func TestApplyConfigUpdatesSettings(t *testing.T) {
	f := newFixture(t)

	f.distribution.ApplyConfig(config.DistributionConfig{MaxWorkers: 2, NodeTimeoutSeconds: 3})
	s := f.distribution.currentSettings()
	assert.Equal(t, 2, s.maxWorkers)
	assert.Equal(t, 3*time.Second, s.nodeTimeout)

	f.distribution.ApplyConfig(config.DistributionConfig{})
	s = f.distribution.currentSettings()
	assert.Equal(t, 8, s.maxWorkers)
	assert.Equal(t, 10*time.Second, s.nodeTimeout)
}
