package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/makoban/koubo-navi/internal/clock"
	"github.com/makoban/koubo-navi/internal/companyprofile/domain"
	"github.com/makoban/koubo-navi/internal/companyprofile/repository"
	"github.com/makoban/koubo-navi/internal/providers/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

const profileJSON = `{
  "company_name": "株式会社サンプル",
  "location": "東京都千代田区",
  "business_areas": ["清掃", "施設管理"],
  "services": ["庁舎清掃", "設備点検"],
  "strengths": ["官公庁実績"],
  "target_industries": ["官公庁"],
  "qualifications": ["建築物環境衛生管理技術者"],
  "matching_keywords": ["清掃", "施設管理", "点検"]
}`

type recordingAI struct {
	prompts   []string
	responses []string
	errs      []error
}

func (a *recordingAI) Generate(_ context.Context, _ string, prompt string) (string, error) {
	i := len(a.prompts)
	a.prompts = append(a.prompts, prompt)
	if i < len(a.errs) && a.errs[i] != nil {
		return "", a.errs[i]
	}
	if i < len(a.responses) {
		return a.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

type fetchResult struct {
	text string
	err  error
}

type scriptedFetcher struct {
	result fetchResult
	urls   []string
}

func (f *scriptedFetcher) PlainText(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.result.text, f.result.err
}

func setupProfileService(t *testing.T, aiStub *recordingAI, fetcher *scriptedFetcher) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&domain.CompanyProfile{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(testNow),
		Repo:    repository.Provide(),
		AI:      aiStub,
		Fetcher: fetcher,
	})
	return svc, db
}

func TestAnalyzeFromURLPersistsProfile(t *testing.T) {
	aiStub := &recordingAI{responses: []string{profileJSON}}
	fetcher := &scriptedFetcher{result: fetchResult{text: "株式会社サンプルの清掃サービス"}}
	svc, db := setupProfileService(t, aiStub, fetcher)

	userID := uuid.NewString()
	profile, err := svc.Analyze(context.Background(), userID, domain.AnalyzeRequest{URL: "https://example.co.jp"})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.co.jp"}, fetcher.urls)
	require.Len(t, aiStub.prompts, 1)
	assert.Contains(t, aiStub.prompts[0], "株式会社サンプルの清掃サービス")

	assert.Equal(t, "株式会社サンプル", profile.CompanyName)
	assert.Equal(t, []string{"清掃", "施設管理", "点検"}, profile.MatchingKeywords)

	var row domain.CompanyProfile
	require.NoError(t, db.Where("user_id = ?", userID).First(&row).Error)
	require.NotNil(t, row.CompanyName)
	assert.Equal(t, "株式会社サンプル", *row.CompanyName)
	assert.Equal(t, testNow, row.AnalyzedAt.UTC())
}

func TestAnalyzeFromTextSkipsFetch(t *testing.T) {
	aiStub := &recordingAI{responses: []string{profileJSON}}
	fetcher := &scriptedFetcher{result: fetchResult{err: errors.New("must not be called")}}
	svc, _ := setupProfileService(t, aiStub, fetcher)

	_, err := svc.Analyze(context.Background(), uuid.NewString(), domain.AnalyzeRequest{Text: "自社紹介の貼り付けテキスト"})
	require.NoError(t, err)
	assert.Empty(t, fetcher.urls)
}

func TestAnalyzeRejectsEmptyInput(t *testing.T) {
	svc, _ := setupProfileService(t, &recordingAI{}, &scriptedFetcher{})

	_, err := svc.Analyze(context.Background(), uuid.NewString(), domain.AnalyzeRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnalyzeSiteFetchFailure(t *testing.T) {
	fetcher := &scriptedFetcher{result: fetchResult{err: errors.New("connection refused")}}
	svc, _ := setupProfileService(t, &recordingAI{}, fetcher)

	_, err := svc.Analyze(context.Background(), uuid.NewString(), domain.AnalyzeRequest{URL: "https://example.co.jp"})
	assert.ErrorIs(t, err, domain.ErrSiteFetch)
}

func TestAnalyzeGarbageOutputIsParseError(t *testing.T) {
	aiStub := &recordingAI{responses: []string{"すみません、JSONでは出力できません"}}
	svc, db := setupProfileService(t, aiStub, &scriptedFetcher{})

	userID := uuid.NewString()
	_, err := svc.Analyze(context.Background(), userID, domain.AnalyzeRequest{Text: "テキスト"})

	var parseErr *ai.ParseError
	assert.ErrorAs(t, err, &parseErr)

	var count int64
	require.NoError(t, db.Model(&domain.CompanyProfile{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAnalyzeReplacesExistingProfile(t *testing.T) {
	aiStub := &recordingAI{responses: []string{profileJSON, `{"company_name":"新社名","matching_keywords":["警備"]}`}}
	svc, db := setupProfileService(t, aiStub, &scriptedFetcher{})

	userID := uuid.NewString()
	_, err := svc.Analyze(context.Background(), userID, domain.AnalyzeRequest{Text: "一回目"})
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), userID, domain.AnalyzeRequest{Text: "二回目"})
	require.NoError(t, err)

	var rows []domain.CompanyProfile
	require.NoError(t, db.Where("user_id = ?", userID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CompanyName)
	assert.Equal(t, "新社名", *rows[0].CompanyName)
}

func TestUpdateKeywords(t *testing.T) {
	aiStub := &recordingAI{responses: []string{profileJSON}}
	svc, _ := setupProfileService(t, aiStub, &scriptedFetcher{})

	userID := uuid.NewString()
	_, err := svc.Analyze(context.Background(), userID, domain.AnalyzeRequest{Text: "テキスト"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateKeywords(context.Background(), userID, []string{"清掃", "警備"}))

	stored, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"清掃", "警備"}, []string(stored.MatchingKeywords))
}
