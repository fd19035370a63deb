package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	arearepository "github.com/makoban/koubo-navi/internal/area/repository"
	"github.com/makoban/koubo-navi/internal/clock"
	profiledomain "github.com/makoban/koubo-navi/internal/companyprofile/domain"
	profilerepository "github.com/makoban/koubo-navi/internal/companyprofile/repository"
	"github.com/makoban/koubo-navi/internal/observability/metrics"
	oppdomain "github.com/makoban/koubo-navi/internal/opportunity/domain"
	opprepository "github.com/makoban/koubo-navi/internal/opportunity/repository"
	"github.com/makoban/koubo-navi/internal/screening/domain"
	"github.com/makoban/koubo-navi/internal/screening/repository"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	userrepository "github.com/makoban/koubo-navi/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

// scriptedAI replays canned responses in call order.
type scriptedAI struct {
	mu        sync.Mutex
	calls     int
	responses []string
	errs      []error
}

func (a *scriptedAI) Generate(_ context.Context, _ string, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.calls
	a.calls++
	if idx < len(a.errs) && a.errs[idx] != nil {
		return "", a.errs[idx]
	}
	if idx < len(a.responses) {
		return a.responses[idx], nil
	}
	return "[]", nil
}

func (a *scriptedAI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func setupScreening(t *testing.T, aiClient *scriptedAI) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&areadomain.UserArea{},
		&profiledomain.CompanyProfile{},
		&oppdomain.Opportunity{},
		&oppdomain.UserOpportunity{},
		&domain.ScreeningTask{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	m, err := metrics.New(metrics.Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(testNow),
		Metrics:     m,
		Repo:        repository.Provide(),
		UserRepo:    userrepository.Provide(),
		AreaRepo:    arearepository.Provide(),
		OppRepo:     opprepository.Provide(),
		ProfileRepo: profilerepository.Provide(),
		AI:          aiClient,
	}).(*Service)
	return svc, db
}

func seedScreeningUser(t *testing.T, db *gorm.DB, screened bool) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Create(&userdomain.User{
		ID:                   id,
		CompanyURL:           "https://example.co.jp",
		Status:               userdomain.StatusTrial,
		InitialScreeningDone: screened,
	}).Error)
	return id
}

func seedScreeningFixtures(t *testing.T, db *gorm.DB, userID string, oppCount int) []string {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	require.NoError(t, db.Create(&areadomain.UserArea{
		ID:     node.Generate(),
		UserID: userID,
		AreaID: "aichi",
		Active: true,
	}).Error)
	require.NoError(t, db.Create(&profiledomain.CompanyProfile{
		ID:               node.Generate(),
		UserID:           userID,
		Services:         datatypes.NewJSONSlice([]string{"システム開発"}),
		MatchingKeywords: datatypes.NewJSONSlice([]string{"情報システム", "保守"}),
		AnalyzedAt:       testNow,
	}).Error)

	ids := make([]string, 0, oppCount)
	for i := 0; i < oppCount; i++ {
		id := uuid.NewString()
		require.NoError(t, db.Create(&oppdomain.Opportunity{
			ID:        id,
			AreaID:    "aichi",
			SourceID:  "aichi-pref",
			Title:     fmt.Sprintf("案件%02d", i),
			ScrapedAt: testNow.Add(-time.Duration(i) * time.Minute),
		}).Error)
		ids = append(ids, id)
	}
	return ids
}

func TestTriggerAlreadyDone(t *testing.T) {
	ai := &scriptedAI{}
	svc, db := setupScreening(t, ai)
	userID := seedScreeningUser(t, db, true)

	resp, err := svc.Trigger(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAlreadyDone, resp.Status)
	assert.Equal(t, 0, ai.callCount())
}

func TestTriggerUnknownUser(t *testing.T) {
	svc, _ := setupScreening(t, &scriptedAI{})

	_, err := svc.Trigger(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTriggerClaimsOnce(t *testing.T) {
	ai := &scriptedAI{}
	svc, db := setupScreening(t, ai)
	userID := seedScreeningUser(t, db, false)

	resp, err := svc.Trigger(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStarted, resp.Status)

	resp, err = svc.Trigger(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAlreadyDone, resp.Status)

	// no profile seeded, so the background run settles as failed
	assert.Eventually(t, func() bool {
		var task domain.ScreeningTask
		if err := db.Where("user_id = ?", userID).Take(&task).Error; err != nil {
			return false
		}
		return task.Status == domain.TaskFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScreenRanksMatches(t *testing.T) {
	ai := &scriptedAI{responses: []string{
		`[
  {"index": 0, "match_score": 55, "match_reason": "部分的に関連", "recommendation": "検討可"},
  {"index": 1, "match_score": 90, "match_reason": "事業内容と合致", "recommendation": "強く推奨"},
  {"index": 2, "match_score": 70, "match_reason": "対応可能", "recommendation": "推奨"}
]`,
	}}
	svc, db := setupScreening(t, ai)
	userID := seedScreeningUser(t, db, false)
	oppIDs := seedScreeningFixtures(t, db, userID, 3)

	created, err := svc.screen(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, 1, ai.callCount())

	var matches []oppdomain.UserOpportunity
	require.NoError(t, db.Order("rank_position asc").Find(&matches).Error)
	require.Len(t, matches, 3)
	assert.Equal(t, oppIDs[1], matches[0].OpportunityID)
	assert.Equal(t, 90, *matches[0].MatchScore)
	assert.Equal(t, 1, *matches[0].RankPosition)
	assert.Equal(t, "強く推奨", *matches[0].Recommendation)
	assert.Equal(t, oppIDs[2], matches[1].OpportunityID)
	assert.Equal(t, 2, *matches[1].RankPosition)
	assert.Equal(t, oppIDs[0], matches[2].OpportunityID)
	assert.Equal(t, 3, *matches[2].RankPosition)
}

func TestScreenBatchesOfFifteen(t *testing.T) {
	ai := &scriptedAI{responses: []string{
		`[{"index": 0, "match_score": 80, "match_reason": "合致", "recommendation": "推奨"}]`,
		`[{"index": 2, "match_score": 60, "match_reason": "関連あり", "recommendation": "検討可"}]`,
	}}
	svc, db := setupScreening(t, ai)
	userID := seedScreeningUser(t, db, false)
	seedScreeningFixtures(t, db, userID, 20)

	created, err := svc.screen(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, ai.callCount())
}

func TestScreenSkipsFailedBatch(t *testing.T) {
	ai := &scriptedAI{
		errs: []error{errors.New("upstream down"), nil},
		responses: []string{
			"",
			`[{"index": 0, "match_score": 75, "match_reason": "関連あり", "recommendation": "推奨"}]`,
		},
	}
	svc, db := setupScreening(t, ai)
	userID := seedScreeningUser(t, db, false)
	seedScreeningFixtures(t, db, userID, 20)

	created, err := svc.screen(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, ai.callCount())
}

func TestScreenToleratesGarbageOutput(t *testing.T) {
	ai := &scriptedAI{responses: []string{"AIが混乱しました"}}
	svc, db := setupScreening(t, ai)
	userID := seedScreeningUser(t, db, false)
	seedScreeningFixtures(t, db, userID, 3)

	created, err := svc.screen(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	var count int64
	require.NoError(t, db.Model(&oppdomain.UserOpportunity{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestScreenIgnoresOutOfRangeIndexes(t *testing.T) {
	ai := &scriptedAI{responses: []string{
		`[
  {"index": 0, "match_score": 80, "match_reason": "合致", "recommendation": "推奨"},
  {"index": 9, "match_score": 99, "match_reason": "幻の案件", "recommendation": "強く推奨"}
]`,
	}}
	svc, db := setupScreening(t, ai)
	userID := seedScreeningUser(t, db, false)
	seedScreeningFixtures(t, db, userID, 2)

	created, err := svc.screen(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestScreenNoAreasFinishesEmpty(t *testing.T) {
	ai := &scriptedAI{}
	svc, db := setupScreening(t, ai)
	userID := seedScreeningUser(t, db, false)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	require.NoError(t, db.Create(&profiledomain.CompanyProfile{
		ID:         node.Generate(),
		UserID:     userID,
		AnalyzedAt: testNow,
	}).Error)

	created, err := svc.screen(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, ai.callCount())
}
