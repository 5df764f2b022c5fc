package service

import (
	"context"
	"edu_network_backend/internal/config"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/util"
	"edu_network_backend/pkg/lock"
	"edu_network_backend/pkg/logger"
	"edu_network_backend/pkg/monitoring"
	"edu_network_backend/pkg/tracing"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MirrorWriter 写入节点镜像行
type MirrorWriter interface {
	UpsertMirror(ctx context.Context, lc *model.LocalContent) (bool, error)
}

type DistributeOptions struct {
	TargetNodeIDs []string   `json:"targetNodes"`
	Mode          string     `json:"mode"`
	Priority      int        `json:"priority"`
	ScheduledAt   *time.Time `json:"scheduledAt"`
	InitiatedBy   string     `json:"-"`
}

// nodeResult 单个节点的分发结果，由 worker 产出、由任务写入方汇总
type nodeResult struct {
	NodeID  string
	Created bool
	Err     error
	At      time.Time
}

type distributionSettings struct {
	maxWorkers  int
	nodeTimeout time.Duration
}

// DistributionService 把当前稳定版本扇出到各节点。
// 单节点失败只记录在任务里，不中断其他节点；任务状态只由调用 goroutine 写入。
type DistributionService struct {
	ContentRepo *repository.ContentRepository
	NodeRepo    *repository.NodeRepository
	JobRepo     *repository.DistributionJobRepository
	Mirrors     MirrorWriter
	Locker      lock.Locker

	mu       sync.RWMutex
	settings distributionSettings
}

func NewDistributionService(
	contentRepo *repository.ContentRepository,
	nodeRepo *repository.NodeRepository,
	jobRepo *repository.DistributionJobRepository,
	mirrors MirrorWriter,
	locker lock.Locker,
	cfg config.DistributionConfig,
) *DistributionService {
	s := &DistributionService{
		ContentRepo: contentRepo,
		NodeRepo:    nodeRepo,
		JobRepo:     jobRepo,
		Mirrors:     mirrors,
		Locker:      locker,
	}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig 热更新并发度与单节点超时，对之后启动的任务生效
func (s *DistributionService) ApplyConfig(cfg config.DistributionConfig) {
	cfg.ApplyDefaults()
	s.mu.Lock()
	s.settings = distributionSettings{
		maxWorkers:  cfg.MaxWorkers,
		nodeTimeout: cfg.NodeTimeout(),
	}
	s.mu.Unlock()
}

func (s *DistributionService) currentSettings() distributionSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Distribute 创建分发任务并执行扇出。单节点失败不会让调用失败，需检查任务的失败列表。
func (s *DistributionService) Distribute(ctx context.Context, contentID string, opts DistributeOptions) (*model.DistributionJob, error) {
	if opts.Mode == "" {
		opts.Mode = model.DistributionSelective
	}
	if !model.IsValidDistributionMode(opts.Mode) {
		return nil, util.ErrInvalidMode
	}

	content, version, err := s.loadCurrent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	targets, err := s.resolveTargets(ctx, opts)
	if err != nil {
		return nil, util.Storage(err)
	}

	job := &model.DistributionJob{
		GlobalContentID: contentID,
		ContentVersion:  version.Version,
		TargetNodes:     targets,
		Mode:            opts.Mode,
		Status:          model.JobStatusPending,
		Failures:        []model.NodeFailure{},
		Priority:        opts.Priority,
		InitiatedBy:     opts.InitiatedBy,
		ScheduledAt:     opts.ScheduledAt,
	}
	if err := s.JobRepo.Create(ctx, job); err != nil {
		return nil, util.Storage(err)
	}

	if opts.ScheduledAt != nil && opts.ScheduledAt.After(time.Now()) {
		logger.Log.Info("distribution job scheduled",
			zap.String("jobId", job.ID),
			zap.String("contentId", contentID),
			zap.Time("scheduledAt", *opts.ScheduledAt))
		return job, nil
	}

	// 进入 in_progress 后不再响应调用方取消，跑完所有目标节点
	runCtx := context.WithoutCancel(ctx)

	now := time.Now()
	if err := transitionJob(job, model.JobStatusInProgress); err != nil {
		return nil, err
	}
	job.StartedAt = &now
	if err := s.JobRepo.Save(runCtx, job); err != nil {
		return nil, util.Storage(err)
	}

	if err := s.run(runCtx, job, content, version); err != nil {
		return nil, err
	}
	return job, nil
}

// RunDueJobs 执行到期的定时任务，返回实际执行的任务数
func (s *DistributionService) RunDueJobs(ctx context.Context) (int, error) {
	jobs, err := s.JobRepo.ListDue(ctx, time.Now())
	if err != nil {
		return 0, util.Storage(err)
	}

	ran := 0
	for i := range jobs {
		job := &jobs[i]
		now := time.Now()
		claimed, err := s.JobRepo.ClaimPending(ctx, job.ID, now)
		if err != nil {
			return ran, util.Storage(err)
		}
		if !claimed {
			continue
		}
		job.Status = model.JobStatusInProgress
		job.StartedAt = &now

		content, version, err := s.loadCurrent(ctx, job.GlobalContentID)
		if err != nil {
			// 内容已不可分发，所有目标记为失败以结束任务
			results := make([]nodeResult, 0, len(job.TargetNodes))
			for _, id := range job.TargetNodes {
				results = append(results, nodeResult{NodeID: id, Err: err, At: now})
			}
			if err := s.finish(ctx, job, results, now); err != nil {
				return ran, err
			}
			ran++
			continue
		}

		job.ContentVersion = version.Version
		if err := s.run(ctx, job, content, version); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

func (s *DistributionService) GetJob(ctx context.Context, id string) (*model.DistributionJob, error) {
	job, err := s.JobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, util.ErrJobNotFound)
	}
	return job, nil
}

func (s *DistributionService) ListJobs(ctx context.Context, contentID string, page, limit int) ([]model.DistributionJob, int64, error) {
	jobs, total, err := s.JobRepo.ListByContent(ctx, contentID, page, limit)
	if err != nil {
		return nil, 0, util.Storage(err)
	}
	return jobs, total, nil
}

// RetryFailed 以 selective 模式对已结束任务的失败节点重新分发，生成新的任务记录
func (s *DistributionService) RetryFailed(ctx context.Context, jobID, actorID string) (*model.DistributionJob, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !model.IsTerminalJobStatus(job.Status) {
		return nil, fmt.Errorf("%w: job %s is %s", util.ErrInvalidTransition, job.ID, job.Status)
	}
	failed := job.FailedNodeIDs()
	if len(failed) == 0 {
		return nil, fmt.Errorf("%w: job %s has no failed nodes", util.ErrValidationFailed, job.ID)
	}

	return s.Distribute(ctx, job.GlobalContentID, DistributeOptions{
		TargetNodeIDs: failed,
		Mode:          model.DistributionSelective,
		Priority:      job.Priority,
		InitiatedBy:   actorID,
	})
}

func (s *DistributionService) loadCurrent(ctx context.Context, contentID string) (*model.GlobalContent, *model.ContentVersion, error) {
	content, err := s.ContentRepo.FindByID(ctx, contentID)
	if err != nil {
		return nil, nil, lookupErr(err, util.ErrContentNotFound)
	}
	if content.CurrentVersionID == "" {
		return nil, nil, util.ErrNoCurrentVersion
	}
	version, err := s.ContentRepo.GetVersionByID(ctx, content.CurrentVersionID)
	if err != nil {
		return nil, nil, lookupErr(err, util.ErrNoCurrentVersion)
	}
	if !version.IsStable {
		return nil, nil, util.ErrNoCurrentVersion
	}
	return content, version, nil
}

// resolveTargets push_all 或空列表时取全部活跃节点，显式列表去重保序
func (s *DistributionService) resolveTargets(ctx context.Context, opts DistributeOptions) ([]string, error) {
	if opts.Mode == model.DistributionPushAll || len(opts.TargetNodeIDs) == 0 {
		ids, err := s.NodeRepo.ListActiveIDs(ctx)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		return ids, nil
	}

	seen := make(map[string]struct{}, len(opts.TargetNodeIDs))
	targets := make([]string, 0, len(opts.TargetNodeIDs))
	for _, id := range opts.TargetNodeIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	return targets, nil
}

// run 执行扇出并落盘最终状态，job 必须已处于 in_progress
func (s *DistributionService) run(ctx context.Context, job *model.DistributionJob, content *model.GlobalContent, version *model.ContentVersion) error {
	ctx, span := tracing.Tracer().Start(ctx, "distribution.run", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("content.id", content.ID),
		attribute.String("content.version", version.Version),
		attribute.Int("job.targets", len(job.TargetNodes)),
	))
	defer span.End()

	started := time.Now()
	results := s.fanOut(ctx, job.TargetNodes, content, version)
	err := s.finish(ctx, job, results, time.Now())
	monitoring.DistributionJobDuration.Observe(time.Since(started).Seconds())

	if job.Status == model.JobStatusPartialFailure {
		span.SetStatus(codes.Error, "partial failure")
	}
	return err
}

func (s *DistributionService) fanOut(ctx context.Context, targets []string, content *model.GlobalContent, version *model.ContentVersion) []nodeResult {
	results := make([]nodeResult, len(targets))
	if len(targets) == 0 {
		return results
	}

	nodes, err := s.NodeRepo.FindByIDs(ctx, targets)
	if err != nil {
		now := time.Now()
		for i, id := range targets {
			results[i] = nodeResult{NodeID: id, Err: util.Storage(err), At: now}
		}
		return results
	}

	settings := s.currentSettings()
	var g errgroup.Group
	g.SetLimit(settings.maxWorkers)

	for i, id := range targets {
		node, ok := nodes[id]
		if !ok {
			results[i] = nodeResult{NodeID: id, Err: util.ErrNodeNotFound, At: time.Now()}
			continue
		}
		if !node.IsActive() {
			results[i] = nodeResult{NodeID: id, Err: util.ErrNodeNotActive, At: time.Now()}
			continue
		}

		i, node := i, node
		g.Go(func() error {
			results[i] = s.syncNode(ctx, node, content, version, settings.nodeTimeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// syncNode 在 (节点, 内容) 锁内写入镜像；新建行直接发布，已有行只刷新源字段
func (s *DistributionService) syncNode(ctx context.Context, node *model.Node, content *model.GlobalContent, version *model.ContentVersion, timeout time.Duration) (res nodeResult) {
	res.NodeID = node.ID
	defer func() {
		res.At = time.Now()
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := tracing.Tracer().Start(ctx, "distribution.sync_node", trace.WithAttributes(
		attribute.String("node.id", node.ID),
		attribute.String("node.slug", node.Slug),
	))
	defer span.End()

	unlock, err := s.Locker.Lock(ctx, lock.MirrorKey(node.ID, content.ID))
	if err != nil {
		res.Err = fmt.Errorf("acquire mirror lock: %w", err)
		span.RecordError(res.Err)
		return res
	}
	defer unlock()

	now := time.Now()
	contentID := content.ID
	mirror := &model.LocalContent{
		NodeID:            node.ID,
		GlobalContentID:   &contentID,
		Title:             content.Title,
		Description:       content.Description,
		Payload:           version.Payload,
		TargetLanguage:    node.Language,
		TranslationStatus: model.TranslationNotStarted,
		PublishStatus:     model.PublishStatusPublished,
		SourceVersion:     version.Version,
		LastSyncedAt:      &now,
	}

	res.Created, res.Err = s.Mirrors.UpsertMirror(ctx, mirror)
	if res.Err == nil && ctx.Err() != nil {
		res.Err = ctx.Err()
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}

// finish 汇总各节点结果，计算终态并写回任务
func (s *DistributionService) finish(ctx context.Context, job *model.DistributionJob, results []nodeResult, now time.Time) error {
	job.SuccessfulNodes = 0
	job.FailedNodes = 0
	job.Failures = []model.NodeFailure{}

	jobLog := logger.ForJob(job.ID, job.GlobalContentID)
	for _, r := range results {
		if r.Err == nil {
			job.SuccessfulNodes++
			monitoring.DistributionNodeOutcomes.WithLabelValues("success").Inc()
			continue
		}
		job.FailedNodes++
		job.Failures = append(job.Failures, model.NodeFailure{
			NodeID:   r.NodeID,
			Message:  r.Err.Error(),
			FailedAt: r.At,
		})
		monitoring.DistributionNodeOutcomes.WithLabelValues("failure").Inc()
		jobLog.Warn("distribution to node failed",
			zap.String("nodeId", r.NodeID),
			zap.Error(r.Err))
	}

	final := model.JobStatusCompleted
	if job.FailedNodes > 0 {
		final = model.JobStatusPartialFailure
	}
	if err := transitionJob(job, final); err != nil {
		return err
	}
	job.CompletedAt = &now

	if err := s.JobRepo.Save(ctx, job); err != nil {
		return util.Storage(err)
	}

	monitoring.DistributionJobs.WithLabelValues(job.Status).Inc()
	jobLog.Info("distribution job finished",
		zap.String("version", job.ContentVersion),
		zap.String("status", job.Status),
		zap.Int("successful", job.SuccessfulNodes),
		zap.Int("failed", job.FailedNodes))
	return nil
}

func transitionJob(job *model.DistributionJob, to string) error {
	if !model.CanTransitionJob(job.Status, to) {
		return fmt.Errorf("%w: distribution job %s -> %s", util.ErrInvalidTransition, job.Status, to)
	}
	job.Status = to
	return nil
}
