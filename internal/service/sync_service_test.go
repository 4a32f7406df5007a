package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arahkita/arah-go-api/internal/cache"
	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/realtime"
	"github.com/arahkita/arah-go-api/internal/repository"
	"github.com/arahkita/arah-go-api/internal/roadmapgen"
	"github.com/arahkita/arah-go-api/internal/store"
	"github.com/arahkita/arah-go-api/pkg/ai"
)

type stubGenerator struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (g *stubGenerator) GenerateText(_ context.Context, _ ai.GenerationRequest) (ai.GenerationResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.calls
	g.calls++
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return ai.GenerationResponse{Text: g.responses[idx]}, nil
}

type noticeStub struct {
	mu      sync.Mutex
	notices []dto.Notice
}

func (n *noticeStub) Publish(_ context.Context, notice dto.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *noticeStub) Subscribe(string) (<-chan dto.Notice, func()) {
	ch := make(chan dto.Notice)
	return ch, func() { close(ch) }
}

func (n *noticeStub) Start(context.Context) {}

func (n *noticeStub) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]string, 0, len(n.notices))
	for _, notice := range n.notices {
		kinds = append(kinds, notice.Kind)
	}
	return kinds
}

type failingRoadmapRepo struct{}

var errRepoDown = errors.New("repository unavailable")

func (failingRoadmapRepo) Create(context.Context, *models.Roadmap) error { return errRepoDown }
func (failingRoadmapRepo) Get(context.Context, string) (models.Roadmap, error) {
	return models.Roadmap{}, errRepoDown
}
func (failingRoadmapRepo) ListByOwner(context.Context, string) ([]models.Roadmap, error) {
	return nil, errRepoDown
}
func (failingRoadmapRepo) Delete(context.Context, string) error { return errRepoDown }
func (failingRoadmapRepo) SetItemCompletion(context.Context, models.ItemCategory, uint, bool) error {
	return errRepoDown
}
func (failingRoadmapRepo) ResetCompletion(context.Context, string) error { return errRepoDown }
func (failingRoadmapRepo) AppendSteps(context.Context, string, []models.RoadmapStep) error {
	return errRepoDown
}

func newLocalCache(t *testing.T) *cache.RoadmapCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return cache.NewRoadmapCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour, zerolog.Nop())
}

func newSyncHarness(t *testing.T, gen *stubGenerator) (SyncService, *noticeStub) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Roadmap{},
		&models.RoadmapStep{},
		&models.RoadmapSkill{},
		&models.RoadmapTool{},
		&models.RoadmapResource{},
		&models.TimelineEntry{},
	))

	dual := store.New(repository.NewRoadmapRepository(db), newLocalCache(t), zerolog.Nop())
	notices := &noticeStub{}
	svc := newSyncOver(dual, gen, notices)
	return svc, notices
}

func newSyncOver(dual *store.DualStore, gen *stubGenerator, notices *noticeStub) SyncService {
	var client *roadmapgen.Client
	if gen != nil {
		client = roadmapgen.NewClient(gen, roadmapgen.ClientConfig{MaxAttempts: 3, RetryDelay: time.Millisecond}, zerolog.Nop())
	}
	feed := realtime.NewFeed(nil, "", nil, zerolog.Nop())
	return NewSyncService(dual, client, notices, feed, nil, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
}

func learnerProfile() dto.LearnerProfile {
	return dto.LearnerProfile{
		Status:       "career switcher",
		Skills:       []string{"html"},
		Goals:        "become a backend developer",
		HoursPerWeek: 10,
	}
}

func TestGenerateHoldsDraftUntilAccepted(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		`Sure! {"title":"Backend path","steps":["Learn Go","Build an API"],"skills":[{"label":"SQL"}]}`,
	}}
	svc, _ := newSyncHarness(t, gen)
	sess := store.Session{UserID: "user-1", Authenticated: true}

	result, err := svc.Generate(context.Background(), sess, dto.GenerateRequest{Profile: learnerProfile()})
	require.NoError(t, err)
	require.Equal(t, string(roadmapgen.OutcomeSuccess), result.Outcome)
	require.NotEmpty(t, result.DraftID)
	require.Equal(t, "Backend path", result.Draft.Title)

	// Nothing persisted until the draft is accepted.
	listed, err := svc.ListRoadmaps(context.Background(), sess)
	require.NoError(t, err)
	require.Empty(t, listed)

	accepted, err := svc.AcceptDraft(context.Background(), sess, result.DraftID)
	require.NoError(t, err)
	require.Equal(t, "Backend path", accepted.Title)
	require.Equal(t, string(models.ProvenanceAICustom), accepted.Provenance)
	require.Len(t, accepted.Items, 3)
	for _, item := range accepted.Items {
		require.False(t, item.Completed)
	}

	// A draft can be accepted once.
	_, err = svc.AcceptDraft(context.Background(), sess, result.DraftID)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestGenerateReturnsTaggedOutcomeWithoutDraft(t *testing.T) {
	gen := &stubGenerator{responses: []string{"I cannot help with structured output."}}
	svc, _ := newSyncHarness(t, gen)
	sess := store.Session{UserID: "user-1", Authenticated: true}

	result, err := svc.Generate(context.Background(), sess, dto.GenerateRequest{Profile: learnerProfile()})
	require.NoError(t, err)
	require.Equal(t, string(roadmapgen.OutcomeNoJSONFound), result.Outcome)
	require.Empty(t, result.DraftID)
}

func TestAcceptDraftRejectsForeignOwner(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"title":"Plan","steps":["A"]}`}}
	svc, _ := newSyncHarness(t, gen)

	result, err := svc.Generate(context.Background(), store.Session{UserID: "owner", Authenticated: true}, dto.GenerateRequest{Profile: learnerProfile()})
	require.NoError(t, err)

	_, err = svc.AcceptDraft(context.Background(), store.Session{UserID: "intruder", Authenticated: true}, result.DraftID)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestToggleItemFiresMilestonesOnTransitionOnly(t *testing.T) {
	svc, notices := newSyncHarness(t, nil)
	sess := store.Session{UserID: "user-1", Authenticated: true}

	created, err := svc.CreateRoadmap(context.Background(), sess, models.Roadmap{
		Title:      "Two step plan",
		Provenance: models.ProvenanceUserAuthored,
		Steps: []models.RoadmapStep{
			{Label: "First", Sequence: 1},
			{Label: "Second", Sequence: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Items, 2)

	first, err := svc.ToggleItem(context.Background(), sess, created.ID, dto.ToggleItemRequest{
		Category: "step", ItemID: created.Items[0].ID,
	})
	require.NoError(t, err)
	require.True(t, first.Completed)
	require.Equal(t, 50, first.Percentage)
	require.True(t, first.Fifty)
	require.False(t, first.Hundred)

	second, err := svc.ToggleItem(context.Background(), sess, created.ID, dto.ToggleItemRequest{
		Category: "step", ItemID: created.Items[1].ID,
	})
	require.NoError(t, err)
	require.Equal(t, 100, second.Percentage)
	require.False(t, second.Fifty)
	require.True(t, second.Hundred)

	require.Equal(t, []string{dto.NoticeMilestoneFifty, dto.NoticeMilestoneHundred}, notices.kinds())

	// Un-toggling moves backwards without firing anything.
	third, err := svc.ToggleItem(context.Background(), sess, created.ID, dto.ToggleItemRequest{
		Category: "step", ItemID: created.Items[1].ID,
	})
	require.NoError(t, err)
	require.False(t, third.Completed)
	require.Equal(t, 50, third.Percentage)
	require.False(t, third.Fifty)
	require.False(t, third.Hundred)
}

func TestToggleItemRollsBackOnPersistenceFailure(t *testing.T) {
	local := newLocalCache(t)
	sess := store.Session{UserID: "user-1", Authenticated: true}

	// Seed the local document so reads fall back while the remote is down.
	seeded := store.New(nil, local, zerolog.Nop())
	anon := store.Session{UserID: sess.UserID}
	roadmap := models.Roadmap{
		Title: "Offline plan",
		Steps: []models.RoadmapStep{{Label: "Only step", Sequence: 1}},
	}
	id, err := seeded.WriteRoadmap(context.Background(), anon, &roadmap)
	require.NoError(t, err)

	notices := &noticeStub{}
	svc := newSyncOver(store.New(failingRoadmapRepo{}, local, zerolog.Nop()), nil, notices)

	before, err := svc.Progress(context.Background(), sess, id)
	require.NoError(t, err)
	require.Equal(t, 0, before.Percentage)

	_, err = svc.ToggleItem(context.Background(), sess, id, dto.ToggleItemRequest{
		Category: "step", ItemID: roadmap.Steps[0].ID,
	})
	require.ErrorIs(t, err, errRepoDown)

	// The optimistic flip was rolled back.
	after, err := svc.Progress(context.Background(), sess, id)
	require.NoError(t, err)
	require.Equal(t, 0, after.Percentage)
	require.Equal(t, []string{dto.NoticePersistenceFailed}, notices.kinds())
}

func TestResetClearsEverythingInOneBatch(t *testing.T) {
	svc, _ := newSyncHarness(t, nil)
	sess := store.Session{UserID: "user-1", Authenticated: true}

	created, err := svc.CreateRoadmap(context.Background(), sess, models.Roadmap{
		Title:      "Plan",
		Provenance: models.ProvenanceUserAuthored,
		Steps: []models.RoadmapStep{
			{Label: "A", Sequence: 1, Completed: true},
			{Label: "B", Sequence: 2, Completed: true},
		},
		Skills: []models.RoadmapSkill{{Label: "S", Sequence: 1, Completed: true}},
	})
	require.NoError(t, err)

	snapshot, err := svc.Reset(context.Background(), sess, created.ID)
	require.NoError(t, err)
	require.Equal(t, 0, snapshot.Percentage)
	require.Equal(t, 0, snapshot.CompletedCount)
	require.Equal(t, 3, snapshot.TotalCount)

	fetched, err := svc.GetRoadmap(context.Background(), sess, created.ID)
	require.NoError(t, err)
	for _, item := range fetched.Items {
		require.False(t, item.Completed)
	}
}

func TestAppendPersonalizedStepsKeepsExistingCompletion(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		`{"title":"ignored","steps":[{"label":"Deploy to production","estimated_time":"1 week"}]}`,
	}}
	svc, _ := newSyncHarness(t, gen)
	sess := store.Session{UserID: "user-1", Authenticated: true}

	created, err := svc.CreateRoadmap(context.Background(), sess, models.Roadmap{
		Title:      "Plan",
		Provenance: models.ProvenanceUserAuthored,
		Steps: []models.RoadmapStep{
			{Label: "Learn Go", Sequence: 1, Completed: true},
		},
	})
	require.NoError(t, err)

	updated, err := svc.AppendPersonalizedSteps(context.Background(), sess, created.ID, dto.AppendStepsRequest{Profile: learnerProfile()})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	require.Equal(t, "Learn Go", updated.Items[0].Label)
	require.True(t, updated.Items[0].Completed)
	require.Equal(t, "Deploy to production", updated.Items[1].Label)
	require.False(t, updated.Items[1].Completed)
	require.Equal(t, 2, updated.Items[1].Sequence)
}

func TestDeleteRoadmapRemovesView(t *testing.T) {
	svc, _ := newSyncHarness(t, nil)
	sess := store.Session{UserID: "user-1", Authenticated: true}

	created, err := svc.CreateRoadmap(context.Background(), sess, models.Roadmap{
		Title:      "Plan",
		Provenance: models.ProvenanceUserAuthored,
		Steps:      []models.RoadmapStep{{Label: "A", Sequence: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRoadmap(context.Background(), sess, created.ID))

	_, err = svc.GetRoadmap(context.Background(), sess, created.ID)
	require.Error(t, err)
}
