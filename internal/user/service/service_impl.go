package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	"github.com/makoban/koubo-navi/internal/clock"
	"github.com/makoban/koubo-navi/internal/config"
	"github.com/makoban/koubo-navi/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AreaRepo areadomain.Repository
}

type Service struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	areaRepo areadomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:      p.Config,
		db:       p.DB,
		log:      p.Log.Named("user.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		areaRepo: p.AreaRepo,
	}
}

func (s *Service) Register(ctx context.Context, userID, email string, req domain.RegisterRequest) (domain.RegisterResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.RegisterResponse{}, domain.ErrInvalidUser
	}
	companyURL := strings.TrimSpace(req.CompanyURL)
	if companyURL == "" {
		return domain.RegisterResponse{}, domain.ErrInvalidCompanyURL
	}

	now := s.clock.Now()
	trialEnd := now.Add(time.Duration(s.cfg.TrialDays) * 24 * time.Hour)

	user := domain.User{
		ID:          userID,
		CompanyURL:  companyURL,
		Status:      domain.StatusTrial,
		TrialEndsAt: &trialEnd,
		EmailNotify: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if email = strings.TrimSpace(email); email != "" {
		user.NotificationEmail = &email
	}

	if err := s.repo.Upsert(ctx, s.db, &user); err != nil {
		return domain.RegisterResponse{}, err
	}

	for _, areaID := range req.AreaIDs {
		areaID = strings.TrimSpace(areaID)
		if areaID == "" {
			continue
		}
		area := areadomain.UserArea{
			ID:        s.genID.Generate(),
			UserID:    userID,
			AreaID:    areaID,
			Active:    true,
			CreatedAt: now,
		}
		if err := s.areaRepo.UpsertUserArea(ctx, s.db, &area); err != nil {
			return domain.RegisterResponse{}, err
		}
	}

	s.log.Info("user registered", zap.String("user_id", userID), zap.Int("areas", len(req.AreaIDs)))
	return domain.RegisterResponse{Registered: true, TrialEndsAt: trialEnd}, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) UpdateSettings(ctx context.Context, userID string, req domain.UpdateSettingsRequest) error {
	updates := map[string]any{}
	if req.NotificationThreshold != nil {
		updates["notification_threshold"] = *req.NotificationThreshold
	}
	if req.EmailNotify != nil {
		updates["email_notify"] = *req.EmailNotify
	}
	if req.NotificationEmail != nil {
		updates["notification_email"] = strings.TrimSpace(*req.NotificationEmail)
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = s.clock.Now()
	return s.repo.UpdateFields(ctx, s.db, userID, updates)
}

func (s *Service) SetStatus(ctx context.Context, userID string, status domain.Status) error {
	return s.repo.UpdateFields(ctx, s.db, userID, map[string]any{
		"status":     status,
		"updated_at": s.clock.Now(),
	})
}

func (s *Service) ClaimScreening(ctx context.Context, userID string) (bool, error) {
	return s.repo.ClaimScreening(ctx, s.db, userID, s.clock.Now())
}
