package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makoban/koubo-navi/internal/clock"
	"github.com/makoban/koubo-navi/internal/companyprofile/domain"
	"github.com/makoban/koubo-navi/internal/providers/ai"
	"github.com/makoban/koubo-navi/internal/providers/webfetch"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	AI      ai.Client
	Fetcher webfetch.Fetcher
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	ai      ai.Client
	fetcher webfetch.Fetcher
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("companyprofile.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		ai:      p.AI,
		fetcher: p.Fetcher,
	}
}

const analyzePromptFormat = `以下はある会社のウェブサイトのテキスト内容です。
この会社の事業内容・強み・対応可能な業務を分析し、JSON形式で出力してください。

出力フォーマット:
{
  "company_name": "会社名",
  "location": "所在地",
  "business_areas": ["事業分野1", "事業分野2"],
  "services": ["提供サービス1", "提供サービス2"],
  "strengths": ["強み1", "強み2"],
  "target_industries": ["対象業界1"],
  "qualifications": ["保有資格（推定）"],
  "matching_keywords": ["公募マッチング用キーワード1", "キーワード2"]
}

matching_keywordsには行政案件を見つけるためのキーワードを10個以上生成してください。

ウェブサイトテキスト:
%s`

func (s *Service) Analyze(ctx context.Context, userID string, req domain.AnalyzeRequest) (domain.AnalyzedProfile, error) {
	pageText := strings.TrimSpace(req.Text)
	url := strings.TrimSpace(req.URL)
	if pageText == "" && url == "" {
		return domain.AnalyzedProfile{}, domain.ErrInvalidInput
	}

	if pageText == "" {
		fetched, err := s.fetcher.PlainText(ctx, url)
		if err != nil {
			return domain.AnalyzedProfile{}, fmt.Errorf("%w: %v", domain.ErrSiteFetch, err)
		}
		pageText = fetched
	}

	raw, err := s.ai.Generate(ctx, "company_profile", fmt.Sprintf(analyzePromptFormat, pageText))
	if err != nil {
		return domain.AnalyzedProfile{}, err
	}

	var profile domain.AnalyzedProfile
	if err := ai.DecodeObject(raw, &profile); err != nil {
		return domain.AnalyzedProfile{}, err
	}

	rawJSON, err := json.Marshal(profile)
	if err != nil {
		return domain.AnalyzedProfile{}, err
	}

	row := domain.CompanyProfile{
		ID:               s.genID.Generate(),
		UserID:           userID,
		BusinessAreas:    datatypes.NewJSONSlice(orEmpty(profile.BusinessAreas)),
		Services:         datatypes.NewJSONSlice(orEmpty(profile.Services)),
		Strengths:        datatypes.NewJSONSlice(orEmpty(profile.Strengths)),
		TargetIndustries: datatypes.NewJSONSlice(orEmpty(profile.TargetIndustries)),
		Qualifications:   datatypes.NewJSONSlice(orEmpty(profile.Qualifications)),
		MatchingKeywords: datatypes.NewJSONSlice(orEmpty(profile.MatchingKeywords)),
		RawAnalysis:      datatypes.JSON(rawJSON),
		AnalyzedAt:       s.clock.Now(),
	}
	if name := strings.TrimSpace(profile.CompanyName); name != "" {
		row.CompanyName = &name
	}
	if loc := strings.TrimSpace(profile.Location); loc != "" {
		row.Location = &loc
	}

	if err := s.repo.Replace(ctx, s.db, &row); err != nil {
		return domain.AnalyzedProfile{}, err
	}

	s.log.Info("company profile analyzed",
		zap.String("user_id", userID),
		zap.Int("keywords", len(profile.MatchingKeywords)),
	)
	return profile, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.CompanyProfile, error) {
	return s.repo.FindByUser(ctx, s.db, userID)
}

func (s *Service) UpdateKeywords(ctx context.Context, userID string, keywords []string) error {
	return s.repo.UpdateKeywords(ctx, s.db, userID, keywords)
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
