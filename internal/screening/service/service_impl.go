package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	"github.com/makoban/koubo-navi/internal/clock"
	profiledomain "github.com/makoban/koubo-navi/internal/companyprofile/domain"
	"github.com/makoban/koubo-navi/internal/observability/metrics"
	oppdomain "github.com/makoban/koubo-navi/internal/opportunity/domain"
	"github.com/makoban/koubo-navi/internal/providers/ai"
	"github.com/makoban/koubo-navi/internal/screening/domain"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	batchSize      = 15
	fetchLimit     = 50
	lookbackDays   = 30
	screeningScope = "screening"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Metrics     *metrics.Metrics
	Repo        domain.Repository
	UserRepo    userdomain.Repository
	AreaRepo    areadomain.Repository
	OppRepo     oppdomain.Repository
	ProfileRepo profiledomain.Repository
	AI          ai.Client
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	metrics     *metrics.Metrics
	repo        domain.Repository
	userRepo    userdomain.Repository
	areaRepo    areadomain.Repository
	oppRepo     oppdomain.Repository
	profileRepo profiledomain.Repository
	ai          ai.Client
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("screening.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		metrics:     p.Metrics,
		repo:        p.Repo,
		userRepo:    p.UserRepo,
		areaRepo:    p.AreaRepo,
		oppRepo:     p.OppRepo,
		profileRepo: p.ProfileRepo,
		ai:          p.AI,
	}
}

func (s *Service) Trigger(ctx context.Context, userID string) (domain.TriggerResponse, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.TriggerResponse{}, err
	}
	if user == nil {
		return domain.TriggerResponse{}, domain.ErrUserNotFound
	}

	// conditional update claims the one-shot flag before any work launches
	claimed, err := s.userRepo.ClaimScreening(ctx, s.db, userID, s.clock.Now())
	if err != nil {
		return domain.TriggerResponse{}, err
	}
	if !claimed {
		return domain.TriggerResponse{Status: domain.StatusAlreadyDone}, nil
	}

	task := &domain.ScreeningTask{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Status:    domain.TaskPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, s.db, task); err != nil {
		s.log.Warn("screening task row not recorded",
			zap.String("user_id", userID), zap.Error(err))
	}

	go s.run(context.WithoutCancel(ctx), userID, task.ID)

	return domain.TriggerResponse{Status: domain.StatusStarted}, nil
}

// run executes the bulk scoring pass detached from the triggering request.
// It never returns an error; failures land on the task row and in the logs.
func (s *Service) run(ctx context.Context, userID string, taskID snowflake.ID) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("screening panic",
				zap.String("user_id", userID), zap.Any("panic", r))
		}
	}()

	if err := s.repo.UpdateFields(ctx, s.db, taskID, map[string]any{
		"status":     domain.TaskRunning,
		"started_at": s.clock.Now(),
	}); err != nil {
		s.log.Warn("screening task start not recorded", zap.Error(err))
	}

	created, err := s.screen(ctx, userID)

	finish := map[string]any{
		"finished_at":     s.clock.Now(),
		"matches_created": created,
	}
	if err != nil {
		finish["status"] = domain.TaskFailed
		finish["error_message"] = err.Error()
		s.log.Warn("screening failed",
			zap.String("user_id", userID), zap.Error(err))
	} else {
		finish["status"] = domain.TaskDone
		s.log.Info("screening finished",
			zap.String("user_id", userID), zap.Int("matches_created", created))
	}
	if uerr := s.repo.UpdateFields(ctx, s.db, taskID, finish); uerr != nil {
		s.log.Warn("screening task finish not recorded", zap.Error(uerr))
	}
}

type scoredOpportunity struct {
	opportunityID  string
	score          int
	reason         string
	recommendation string
}

func (s *Service) screen(ctx context.Context, userID string) (int, error) {
	profile, err := s.profileRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, errors.New("プロフィール未設定")
	}

	areaIDs, err := s.areaRepo.ActiveAreaIDs(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if len(areaIDs) == 0 {
		return 0, nil
	}

	since := s.clock.Now().AddDate(0, 0, -lookbackDays)
	opps, err := s.oppRepo.RecentByAreasSince(ctx, s.db, areaIDs, since, fetchLimit)
	if err != nil {
		return 0, err
	}
	if len(opps) == 0 {
		return 0, nil
	}

	matched := make([]scoredOpportunity, 0, len(opps))
	for start := 0; start < len(opps); start += batchSize {
		end := start + batchSize
		if end > len(opps) {
			end = len(opps)
		}
		results, err := s.screenBatch(ctx, profile, opps[start:end])
		if err != nil {
			// failed batch is skipped, remaining batches still run
			s.metrics.RecordScreeningBatch(ctx, "failed")
			s.log.Warn("screening batch skipped",
				zap.String("user_id", userID),
				zap.Int("batch_start", start),
				zap.Error(err))
			continue
		}
		s.metrics.RecordScreeningBatch(ctx, "ok")
		matched = append(matched, results...)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score > matched[j].score
	})

	now := s.clock.Now()
	created := 0
	for i, m := range matched {
		rank := i + 1
		score := m.score
		row := &oppdomain.UserOpportunity{
			ID:            s.genID.Generate(),
			UserID:        userID,
			OpportunityID: m.opportunityID,
			MatchScore:    &score,
			RankPosition:  &rank,
			CreatedAt:     now,
		}
		if m.reason != "" {
			reason := m.reason
			row.MatchReason = &reason
		}
		if m.recommendation != "" {
			rec := m.recommendation
			row.Recommendation = &rec
		}
		if err := s.oppRepo.UpsertMatch(ctx, s.db, row); err != nil {
			s.log.Warn("match upsert dropped",
				zap.String("user_id", userID),
				zap.String("opportunity_id", m.opportunityID),
				zap.Error(err))
			continue
		}
		created++
	}
	return created, nil
}

const screeningPromptFormat = `あなたは公募・入札案件のマッチングAIアドバイザーです。
以下の「会社プロフィール」と「公募・入札案件リスト」を照合し、
各案件について、この会社がどの程度マッチするかを判定してください。

## 会社プロフィール
%s

## 案件リスト
%s

## 出力フォーマット（JSON配列）
[
  {
    "index": 0,
    "match_score": 85,
    "match_reason": "マッチする理由（50文字以内）",
    "recommendation": "強く推奨/推奨/検討可/非推奨"
  }
]

## 判定基準
- 80-100: 事業内容と非常によく合致
- 60-79:  関連性あり、対応可能
- 40-59:  部分的に関連
- 0-39:   関連性が低い

indexは案件リストのindexをそのまま使い、全案件を判定してください。`

type promptProfile struct {
	CompanyName      *string  `json:"company_name"`
	BusinessAreas    []string `json:"business_areas"`
	Services         []string `json:"services"`
	Strengths        []string `json:"strengths"`
	Qualifications   []string `json:"qualifications"`
	MatchingKeywords []string `json:"matching_keywords"`
}

type promptOpportunity struct {
	Index        int     `json:"index"`
	Title        string  `json:"title"`
	Organization *string `json:"organization"`
	Category     *string `json:"category"`
	Method       *string `json:"method"`
	Budget       *string `json:"budget"`
	Summary      *string `json:"summary"`
	Requirements *string `json:"requirements"`
}

type batchResult struct {
	Index          int    `json:"index"`
	MatchScore     int    `json:"match_score"`
	MatchReason    string `json:"match_reason"`
	Recommendation string `json:"recommendation"`
}

func (s *Service) screenBatch(ctx context.Context, profile *profiledomain.CompanyProfile, batch []*oppdomain.Opportunity) ([]scoredOpportunity, error) {
	profileJSON, err := json.MarshalIndent(promptProfile{
		CompanyName:      profile.CompanyName,
		BusinessAreas:    profile.BusinessAreas,
		Services:         profile.Services,
		Strengths:        profile.Strengths,
		Qualifications:   profile.Qualifications,
		MatchingKeywords: profile.MatchingKeywords,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	entries := make([]promptOpportunity, 0, len(batch))
	for i, opp := range batch {
		entries = append(entries, promptOpportunity{
			Index:        i,
			Title:        opp.Title,
			Organization: opp.Organization,
			Category:     opp.Category,
			Method:       opp.Method,
			Budget:       opp.Budget,
			Summary:      opp.Summary,
			Requirements: opp.Requirements,
		})
	}
	oppsJSON, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}

	raw, err := s.ai.Generate(ctx, screeningScope, fmt.Sprintf(screeningPromptFormat, profileJSON, oppsJSON))
	if err != nil {
		return nil, err
	}

	var results []batchResult
	if err := ai.DecodeArray(raw, &results); err != nil {
		return nil, err
	}

	matched := make([]scoredOpportunity, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(batch) {
			continue
		}
		matched = append(matched, scoredOpportunity{
			opportunityID:  batch[r.Index].ID,
			score:          r.MatchScore,
			reason:         r.MatchReason,
			recommendation: r.Recommendation,
		})
	}
	return matched, nil
}
