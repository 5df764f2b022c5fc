package service

import (
	"context"
	"edu_network_backend/internal/config"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/testutil"
	"edu_network_backend/pkg/lock"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db *gorm.DB

	contentRepo      *repository.ContentRepository
	nodeRepo         *repository.NodeRepository
	localRepo        *repository.LocalContentRepository
	jobRepo          *repository.DistributionJobRepository
	translationRepo  *repository.TranslationRepository
	subscriptionRepo *repository.SubscriptionRepository

	mirrors *flakyMirrors
	locker  *lock.LocalLocker

	storage      *StorageService
	versions     *VersionService
	contents     *ContentService
	nodes        *NodeService
	distribution *DistributionService
	localization *LocalizationService
	translations *TranslationService
	access       *AccessService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	f := &fixture{
		db:               db,
		contentRepo:      repository.NewContentRepository(db),
		nodeRepo:         repository.NewNodeRepository(db),
		localRepo:        repository.NewLocalContentRepository(db),
		jobRepo:          repository.NewDistributionJobRepository(db),
		translationRepo:  repository.NewTranslationRepository(db),
		subscriptionRepo: repository.NewSubscriptionRepository(db),
		locker:           lock.NewLocalLocker(),
	}
	f.mirrors = &flakyMirrors{next: f.localRepo, fail: map[string]bool{}}

	cfg := &config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()}}
	f.storage = NewStorageService(cfg)

	f.versions = NewVersionService(db, f.contentRepo, NewSchemaValidator(), f.storage)
	f.contents = NewContentService(f.contentRepo)
	f.nodes = NewNodeService(f.nodeRepo)
	f.distribution = NewDistributionService(f.contentRepo, f.nodeRepo, f.jobRepo, f.mirrors, f.locker,
		config.DistributionConfig{MaxWorkers: 4, NodeTimeoutSeconds: 5})
	f.localization = NewLocalizationService(db, f.contentRepo, f.nodeRepo, f.localRepo, f.locker)
	f.translations = NewTranslationService(db, f.translationRepo, f.localRepo)
	f.access = NewAccessService(f.nodeRepo, f.subscriptionRepo)
	return f
}

func (f *fixture) node(t *testing.T, slug, status string) *model.Node {
	t.Helper()
	n := &model.Node{Name: slug, Slug: slug, Language: "ar", Status: status}
	require.NoError(t, f.nodeRepo.Create(context.Background(), n))
	return n
}

func (f *fixture) lesson(t *testing.T, title string) *model.GlobalContent {
	t.Helper()
	c, err := f.versions.CreateGlobalContent(context.Background(), "editor-1", CreateContentRequest{
		Title:       title,
		Description: title + " description",
		ContentType: model.ContentTypeLesson,
		Category:    "math",
		Payload:     lessonPayload("v1 body"),
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) mirror(t *testing.T, nodeID, contentID string) *model.LocalContent {
	t.Helper()
	lc, err := f.localRepo.FindByNodeAndContent(context.Background(), nodeID, contentID)
	require.NoError(t, err)
	return lc
}

func lessonPayload(body string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"body": body})
	return b
}

// flakyMirrors 对指定节点模拟存储不可达
type flakyMirrors struct {
	next MirrorWriter

	mu   sync.Mutex
	fail map[string]bool
}

func (m *flakyMirrors) setFailing(nodeID string, failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[nodeID] = failing
}

func (m *flakyMirrors) UpsertMirror(ctx context.Context, lc *model.LocalContent) (bool, error) {
	m.mu.Lock()
	failing := m.fail[lc.NodeID]
	m.mu.Unlock()
	if failing {
		return false, errors.New("node storage unreachable")
	}
	return m.next.UpsertMirror(ctx, lc)
}
