package domain

import (
	"context"
	"errors"

	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
)

type ListRequest struct {
	ScoreMin *int
	ScoreMax *int
	Limit    int
	Category string
}

// ListedOpportunity nests the opportunity under "opportunities" to match the
// join shape clients already consume.
type ListedOpportunity struct {
	Opportunity    Opportunity `json:"opportunities"`
	MatchScore     *int        `json:"match_score"`
	MatchReason    *string     `json:"match_reason"`
	Recommendation *string     `json:"recommendation"`
	RankPosition   int         `json:"rank_position"`
}

type ListResponse struct {
	Opportunities   []ListedOpportunity `json:"opportunities"`
	Total           int                 `json:"total"`
	TotalUnfiltered int                 `json:"total_unfiltered"`
	Tier            userdomain.Tier     `json:"tier"`
	MaxResults      int                 `json:"max_results"`
	VisibleCount    int                 `json:"visible_count"`
}

type Service interface {
	List(ctx context.Context, userID string, req ListRequest) (ListResponse, error)
}

var ErrOpportunityFetch = errors.New("opportunity_fetch_failed")
