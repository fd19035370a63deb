package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makoban/koubo-navi/internal/analysis/domain"
	"github.com/makoban/koubo-navi/internal/clock"
	profiledomain "github.com/makoban/koubo-navi/internal/companyprofile/domain"
	oppdomain "github.com/makoban/koubo-navi/internal/opportunity/domain"
	"github.com/makoban/koubo-navi/internal/providers/ai"
	"github.com/makoban/koubo-navi/internal/providers/webfetch"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	OppRepo     oppdomain.Repository
	ProfileRepo profiledomain.Repository
	AI          ai.Client
	Fetcher     webfetch.Fetcher
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	oppRepo     oppdomain.Repository
	profileRepo profiledomain.Repository
	ai          ai.Client
	fetcher     webfetch.Fetcher
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("analysis.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		oppRepo:     p.OppRepo,
		profileRepo: p.ProfileRepo,
		ai:          p.AI,
		fetcher:     p.Fetcher,
	}
}

func (s *Service) Analyze(ctx context.Context, userID, opportunityID string) (json.RawMessage, error) {
	match, err := s.oppRepo.FindMatch(ctx, s.db, userID, opportunityID)
	if err != nil {
		return nil, err
	}
	// cached result is returned verbatim, never recomputed
	if match != nil && len(match.DetailedAnalysis) > 0 {
		return json.RawMessage(match.DetailedAnalysis), nil
	}

	opp, err := s.oppRepo.FindByID(ctx, s.db, opportunityID)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, domain.ErrOpportunityNotFound
	}

	profile, err := s.profileRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	detailText := ""
	if opp.DetailURL != nil && *opp.DetailURL != "" {
		fetched, ferr := s.fetcher.PlainText(ctx, *opp.DetailURL)
		if ferr != nil {
			// detail page is an enrichment only, summary fields suffice
			s.log.Debug("detail page fetch skipped",
				zap.String("opportunity_id", opportunityID), zap.Error(ferr))
		} else {
			detailText = fetched
		}
	}

	raw, err := s.ai.Generate(ctx, "opportunity_analysis", buildPrompt(opp, profile, match, detailText))
	if err != nil {
		return nil, err
	}

	var parsed domain.DetailedAnalysis
	if err := ai.DecodeObject(raw, &parsed); err != nil {
		return nil, err
	}

	blob, err := json.Marshal(parsed)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	row := &oppdomain.UserOpportunity{
		ID:                  s.genID.Generate(),
		UserID:              userID,
		OpportunityID:       opportunityID,
		DetailedAnalysis:    datatypes.JSON(blob),
		AnalysisCompletedAt: &now,
		CreatedAt:           now,
	}
	if err := s.oppRepo.SaveDetailedAnalysis(ctx, s.db, row); err != nil {
		return nil, err
	}

	s.log.Info("opportunity analyzed",
		zap.String("user_id", userID),
		zap.String("opportunity_id", opportunityID))
	return blob, nil
}

const analysisPromptFormat = `あなたは公募案件と企業のマッチング分析の専門家です。
以下の案件情報と企業プロフィールを照らし合わせて、詳細な分析をJSON形式で出力してください。

【案件情報】
タイトル: %s
カテゴリ: %s
発注機関: %s
締切: %s
予算: %s
要約: %s
%s
【企業プロフィール】
会社名: %s
事業分野: %s
サービス: %s
強み: %s
%s
出力:
{
  "summary": "総合評価（150文字程度）",
  "match_points": ["マッチポイント1", "ポイント2", "ポイント3"],
  "concerns": ["懸念点1", "懸念点2"],
  "actions": ["アクション1", "アクション2", "アクション3"],
  "difficulty": "この案件の参入難易度を判定（高/中/低）",
  "prep_days": 14
}

prep_daysには応募準備に必要な推定日数を整数で出力してください。`

func buildPrompt(opp *oppdomain.Opportunity, profile *profiledomain.CompanyProfile, match *oppdomain.UserOpportunity, detailText string) string {
	detailSection := ""
	if detailText != "" {
		detailSection = fmt.Sprintf("詳細ページ: %s\n", detailText)
	}

	companyName := "不明"
	var areas, services, strengths []string
	if profile != nil {
		if profile.CompanyName != nil && *profile.CompanyName != "" {
			companyName = *profile.CompanyName
		}
		areas = profile.BusinessAreas
		services = profile.Services
		strengths = profile.Strengths
	}

	matchSection := ""
	if match != nil && match.MatchScore != nil {
		matchSection = fmt.Sprintf("事前マッチスコア: %d\n", *match.MatchScore)
		if match.MatchReason != nil && *match.MatchReason != "" {
			matchSection += fmt.Sprintf("マッチ理由: %s\n", *match.MatchReason)
		}
	}

	return fmt.Sprintf(analysisPromptFormat,
		opp.Title,
		orUnknown(opp.Category),
		orUnknown(opp.Organization),
		orUnknown(opp.Deadline),
		orUnknown(opp.Budget),
		orUnknown(opp.Summary),
		detailSection,
		companyName,
		strings.Join(areas, ", "),
		strings.Join(services, ", "),
		strings.Join(strengths, ", "),
		matchSection,
	)
}

func orUnknown(v *string) string {
	if v == nil || *v == "" {
		return "不明"
	}
	return *v
}
