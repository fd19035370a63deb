package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makoban/koubo-navi/internal/area/domain"
	"github.com/makoban/koubo-navi/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("area.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) ListAreas(ctx context.Context) ([]domain.Area, error) {
	sources, err := s.repo.ActiveSources(ctx, s.db)
	if err != nil {
		return nil, err
	}

	var areas []domain.Area
	index := map[string]int{}
	for _, src := range sources {
		pos, ok := index[src.AreaID]
		if !ok {
			pos = len(areas)
			index[src.AreaID] = pos
			areas = append(areas, domain.Area{AreaID: src.AreaID, AreaName: src.AreaName})
		}
		areas[pos].Sources = append(areas[pos].Sources, domain.SourceInfo{ID: src.ID, Name: src.SourceName})
	}
	if areas == nil {
		areas = []domain.Area{}
	}
	return areas, nil
}

func (s *Service) ActiveAreaIDs(ctx context.Context, userID string) ([]string, error) {
	return s.repo.ActiveAreaIDs(ctx, s.db, userID)
}

// ReplaceUserAreas applies replace-all semantics: deactivate everything, then
// upsert the selected set.
func (s *Service) ReplaceUserAreas(ctx context.Context, userID string, req domain.ReplaceAreasRequest) error {
	areaIDs := make([]string, 0, len(req.AreaIDs))
	for _, id := range req.AreaIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return domain.ErrInvalidAreaIDs
		}
		areaIDs = append(areaIDs, id)
	}
	if len(areaIDs) > domain.MaxActiveAreas {
		return domain.ErrTooManyAreas
	}

	if err := s.repo.DeactivateUserAreas(ctx, s.db, userID); err != nil {
		return err
	}

	now := s.clock.Now()
	for _, areaID := range areaIDs {
		area := domain.UserArea{
			ID:        s.genID.Generate(),
			UserID:    userID,
			AreaID:    areaID,
			Active:    true,
			CreatedAt: now,
		}
		if err := s.repo.UpsertUserArea(ctx, s.db, &area); err != nil {
			return err
		}
	}

	s.log.Info("user areas replaced", zap.String("user_id", userID), zap.Strings("area_ids", areaIDs))
	return nil
}
