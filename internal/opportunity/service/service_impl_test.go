package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	arearepository "github.com/makoban/koubo-navi/internal/area/repository"
	"github.com/makoban/koubo-navi/internal/clock"
	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	"github.com/makoban/koubo-navi/internal/opportunity/domain"
	"github.com/makoban/koubo-navi/internal/opportunity/repository"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	userrepository "github.com/makoban/koubo-navi/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func setupListingService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
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
		&domain.Opportunity{},
		&domain.UserOpportunity{},
	))

	fake := clock.NewFakeClock(testNow)
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fake,
		Repo:     repository.Provide(),
		UserRepo: userrepository.Provide(),
		AreaRepo: arearepository.Provide(),
	})
	return svc, db, fake
}

func seedUser(t *testing.T, db *gorm.DB, status userdomain.Status, trialEndsAt *time.Time) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Create(&userdomain.User{
		ID:          id,
		CompanyURL:  "https://example.co.jp",
		Status:      status,
		TrialEndsAt: trialEndsAt,
	}).Error)
	return id
}

func seedArea(t *testing.T, db *gorm.DB, node *snowflake.Node, userID, areaID string) {
	t.Helper()
	require.NoError(t, db.Create(&areadomain.UserArea{
		ID:     node.Generate(),
		UserID: userID,
		AreaID: areaID,
		Active: true,
	}).Error)
}

func seedOpportunity(t *testing.T, db *gorm.DB, areaID, title string, deadline *string, scrapedAt time.Time) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Create(&domain.Opportunity{
		ID:        id,
		AreaID:    areaID,
		SourceID:  areaID + "-src",
		Title:     title,
		Deadline:  deadline,
		ScrapedAt: scrapedAt,
	}).Error)
	return id
}

func seedMatch(t *testing.T, db *gorm.DB, node *snowflake.Node, userID, oppID string, score int, rank *int) {
	t.Helper()
	require.NoError(t, db.Create(&domain.UserOpportunity{
		ID:            node.Generate(),
		UserID:        userID,
		OpportunityID: oppID,
		MatchScore:    &score,
		RankPosition:  rank,
	}).Error)
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestListZeroAreasShortCircuits(t *testing.T) {
	svc, db, _ := setupListingService(t)
	userID := seedUser(t, db, userdomain.StatusActive, nil)

	// a listing exists in the table, but the user subscribed to no areas
	seedOpportunity(t, db, "tokyo", "都内案件", nil, testNow)

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Opportunities)
	assert.Equal(t, 0, resp.Total)
	assert.Equal(t, 0, resp.TotalUnfiltered)
	assert.Equal(t, userdomain.TierPaid, resp.Tier)
}

func TestListExcludesPastDeadlines(t *testing.T) {
	svc, db, _ := setupListingService(t)
	node := mustNode(t)
	userID := seedUser(t, db, userdomain.StatusActive, nil)
	seedArea(t, db, node, userID, "aichi")

	seedOpportunity(t, db, "aichi", "期限切れ", strPtr("2025-06-14"), testNow)
	seedOpportunity(t, db, "aichi", "本日締切", strPtr("2025-06-15"), testNow)
	seedOpportunity(t, db, "aichi", "期限なし", nil, testNow)

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Opportunities, 2)
	for _, item := range resp.Opportunities {
		assert.NotEqual(t, "期限切れ", item.Opportunity.Title)
	}
}

func TestListFreeTierCap(t *testing.T) {
	svc, db, _ := setupListingService(t)
	node := mustNode(t)
	ended := testNow.Add(-24 * time.Hour)
	userID := seedUser(t, db, userdomain.StatusTrial, &ended)
	seedArea(t, db, node, userID, "tokyo")

	for i := 0; i < 60; i++ {
		seedOpportunity(t, db, "tokyo", fmt.Sprintf("案件%02d", i), nil, testNow.Add(-time.Duration(i)*time.Minute))
	}

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{Limit: 200})
	require.NoError(t, err)
	assert.Equal(t, userdomain.TierFree, resp.Tier)
	assert.Len(t, resp.Opportunities, domain.FreeTierCap)
	assert.Equal(t, domain.FreeTierCap, resp.MaxResults)
	assert.Equal(t, 60, resp.TotalUnfiltered)
	assert.Equal(t, domain.FreeVisibleRows, resp.VisibleCount)
}

func TestListPaidTierCap(t *testing.T) {
	svc, db, _ := setupListingService(t)
	node := mustNode(t)
	userID := seedUser(t, db, userdomain.StatusActive, nil)
	seedArea(t, db, node, userID, "tokyo")

	for i := 0; i < 120; i++ {
		seedOpportunity(t, db, "tokyo", fmt.Sprintf("案件%03d", i), nil, testNow.Add(-time.Duration(i)*time.Minute))
	}

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, resp.Opportunities, domain.PaidTierCap)
	assert.Equal(t, len(resp.Opportunities), resp.VisibleCount)
}

func TestListTwoBucketSort(t *testing.T) {
	svc, db, _ := setupListingService(t)
	node := mustNode(t)
	userID := seedUser(t, db, userdomain.StatusActive, nil)
	seedArea(t, db, node, userID, "aichi")

	low := seedOpportunity(t, db, "aichi", "低スコア", nil, testNow.Add(-1*time.Minute))
	unscored := seedOpportunity(t, db, "aichi", "未評価", nil, testNow)
	high := seedOpportunity(t, db, "aichi", "高スコア", nil, testNow.Add(-2*time.Minute))

	seedMatch(t, db, node, userID, low, 40, nil)
	seedMatch(t, db, node, userID, high, 90, nil)
	_ = unscored

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Opportunities, 3)

	assert.Equal(t, "高スコア", resp.Opportunities[0].Opportunity.Title)
	assert.Equal(t, "低スコア", resp.Opportunities[1].Opportunity.Title)
	assert.Equal(t, "未評価", resp.Opportunities[2].Opportunity.Title)
	assert.Nil(t, resp.Opportunities[2].MatchScore)

	// scored prefix is non-increasing, unscored rows trail
	sawNil := false
	var prev *int
	for _, item := range resp.Opportunities {
		if item.MatchScore == nil {
			sawNil = true
			continue
		}
		assert.False(t, sawNil, "scored item after unscored item")
		if prev != nil {
			assert.GreaterOrEqual(t, *prev, *item.MatchScore)
		}
		prev = item.MatchScore
	}
}

func TestListScoreMinZeroKeepsUnscored(t *testing.T) {
	svc, db, _ := setupListingService(t)
	node := mustNode(t)
	userID := seedUser(t, db, userdomain.StatusActive, nil)
	seedArea(t, db, node, userID, "aichi")

	scored := seedOpportunity(t, db, "aichi", "評価済み", nil, testNow)
	seedOpportunity(t, db, "aichi", "未評価", nil, testNow)
	seedMatch(t, db, node, userID, scored, 85, nil)

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{ScoreMin: intPtr(0)})
	require.NoError(t, err)
	assert.Len(t, resp.Opportunities, 2)
	assert.Equal(t, 85, *resp.Opportunities[0].MatchScore)
	assert.Equal(t, "評価済み", resp.Opportunities[0].Opportunity.Title)

	resp, err = svc.List(context.Background(), userID, domain.ListRequest{ScoreMin: intPtr(50)})
	require.NoError(t, err)
	require.Len(t, resp.Opportunities, 1)
	assert.Equal(t, "評価済み", resp.Opportunities[0].Opportunity.Title)
}

func TestListExcludesDismissed(t *testing.T) {
	svc, db, _ := setupListingService(t)
	node := mustNode(t)
	userID := seedUser(t, db, userdomain.StatusActive, nil)
	seedArea(t, db, node, userID, "aichi")

	oppID := seedOpportunity(t, db, "aichi", "却下済み", nil, testNow)
	score := 70
	require.NoError(t, db.Create(&domain.UserOpportunity{
		ID:            node.Generate(),
		UserID:        userID,
		OpportunityID: oppID,
		MatchScore:    &score,
		IsDismissed:   true,
	}).Error)

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Opportunities)
}

func TestListPreservesPersistedRanks(t *testing.T) {
	svc, db, _ := setupListingService(t)
	node := mustNode(t)
	userID := seedUser(t, db, userdomain.StatusActive, nil)
	seedArea(t, db, node, userID, "aichi")

	ranked := seedOpportunity(t, db, "aichi", "バッチ評価済み", nil, testNow)
	seedOpportunity(t, db, "aichi", "後から追加", nil, testNow.Add(-time.Minute))
	seedMatch(t, db, node, userID, ranked, 88, intPtr(7))

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Opportunities, 2)
	assert.Equal(t, 7, resp.Opportunities[0].RankPosition)
	assert.Equal(t, 2, resp.Opportunities[1].RankPosition)
}

func TestListCategoryFilter(t *testing.T) {
	svc, db, _ := setupListingService(t)
	node := mustNode(t)
	userID := seedUser(t, db, userdomain.StatusActive, nil)
	seedArea(t, db, node, userID, "aichi")

	construction := seedOpportunity(t, db, "aichi", "建設工事", nil, testNow)
	require.NoError(t, db.Model(&domain.Opportunity{}).
		Where("id = ?", construction).
		Update("category", "工事").Error)
	seedOpportunity(t, db, "aichi", "物品調達", nil, testNow)

	resp, err := svc.List(context.Background(), userID, domain.ListRequest{Category: "工事"})
	require.NoError(t, err)
	require.Len(t, resp.Opportunities, 1)
	assert.Equal(t, "建設工事", resp.Opportunities[0].Opportunity.Title)
}
