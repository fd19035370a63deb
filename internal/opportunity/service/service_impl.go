package service

import (
	"context"
	"fmt"
	"sort"

	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	"github.com/makoban/koubo-navi/internal/clock"
	"github.com/makoban/koubo-navi/internal/opportunity/domain"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	UserRepo userdomain.Repository
	AreaRepo areadomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	userRepo userdomain.Repository
	areaRepo areadomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("opportunity.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		userRepo: p.UserRepo,
		areaRepo: p.AreaRepo,
	}
}

// List produces the tier-limited, sorted view of the user's area
// opportunities. Scored items sort first in descending score order; items
// without a match record keep their scrape order behind them.
func (s *Service) List(ctx context.Context, userID string, req domain.ListRequest) (domain.ListResponse, error) {
	now := s.clock.Now()

	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.ListResponse{}, fmt.Errorf("%w: %v", domain.ErrOpportunityFetch, err)
	}
	tier := user.Tier(now)

	tierCap := domain.FreeTierCap
	if tier == userdomain.TierPaid {
		tierCap = domain.PaidTierCap
	}

	empty := domain.ListResponse{
		Opportunities: []domain.ListedOpportunity{},
		Tier:          tier,
		MaxResults:    tierCap,
	}

	// area lookup failure degrades to an empty listing, not an error
	areaIDs, err := s.areaRepo.ActiveAreaIDs(ctx, s.db, userID)
	if err != nil {
		s.log.Warn("area lookup failed, serving empty listing",
			zap.String("user_id", userID), zap.Error(err))
		return empty, nil
	}
	if len(areaIDs) == 0 {
		return empty, nil
	}

	opps, err := s.repo.RecentByAreas(ctx, s.db, areaIDs, domain.FetchCap)
	if err != nil {
		return domain.ListResponse{}, fmt.Errorf("%w: %v", domain.ErrOpportunityFetch, err)
	}

	today := now.Format("2006-01-02")
	kept := make([]*domain.Opportunity, 0, len(opps))
	oppIDs := make([]string, 0, len(opps))
	for _, opp := range opps {
		// lexical date comparison, deadlines strictly before today drop out
		if opp.Deadline != nil && *opp.Deadline != "" && *opp.Deadline < today {
			continue
		}
		kept = append(kept, opp)
		oppIDs = append(oppIDs, opp.ID)
	}

	matches, err := s.repo.MatchesByUser(ctx, s.db, userID, oppIDs)
	if err != nil {
		return domain.ListResponse{}, fmt.Errorf("%w: %v", domain.ErrOpportunityFetch, err)
	}

	scored := make([]domain.ListedOpportunity, 0, len(kept))
	unscored := make([]domain.ListedOpportunity, 0, len(kept))
	for _, opp := range kept {
		item := domain.ListedOpportunity{Opportunity: *opp}
		if match := matches[opp.ID]; match != nil {
			if match.IsDismissed {
				continue
			}
			item.MatchScore = match.MatchScore
			item.MatchReason = match.MatchReason
			item.Recommendation = match.Recommendation
			if match.RankPosition != nil {
				item.RankPosition = *match.RankPosition
			}
		}

		if !passesFilters(item, req) {
			continue
		}

		if item.MatchScore != nil {
			scored = append(scored, item)
		} else {
			unscored = append(unscored, item)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].MatchScore > *scored[j].MatchScore
	})

	items := append(scored, unscored...)
	totalUnfiltered := len(items)

	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultLimit
	}
	if limit > tierCap {
		limit = tierCap
	}
	if len(items) > limit {
		items = items[:limit]
	}

	for i := range items {
		if items[i].RankPosition == 0 {
			items[i].RankPosition = i + 1
		}
	}

	visible := len(items)
	if tier == userdomain.TierFree && visible > domain.FreeVisibleRows {
		visible = domain.FreeVisibleRows
	}

	return domain.ListResponse{
		Opportunities:   items,
		Total:           len(items),
		TotalUnfiltered: totalUnfiltered,
		Tier:            tier,
		MaxResults:      tierCap,
		VisibleCount:    visible,
	}, nil
}

// passesFilters applies the caller-supplied score and category filters.
// score_min=0 keeps unscored rows; any positive threshold excludes them.
func passesFilters(item domain.ListedOpportunity, req domain.ListRequest) bool {
	if req.ScoreMin != nil && *req.ScoreMin > 0 {
		if item.MatchScore == nil || *item.MatchScore < *req.ScoreMin {
			return false
		}
	}
	if req.ScoreMax != nil && item.MatchScore != nil && *item.MatchScore > *req.ScoreMax {
		return false
	}
	if req.Category != "" {
		if item.Opportunity.Category == nil || *item.Opportunity.Category != req.Category {
			return false
		}
	}
	return true
}
