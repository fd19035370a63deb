package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// DetailedAnalysis is the shape the deep-analysis prompt asks the model for.
type DetailedAnalysis struct {
	Summary     string   `json:"summary"`
	MatchPoints []string `json:"match_points"`
	Concerns    []string `json:"concerns"`
	Actions     []string `json:"actions"`
	Difficulty  string   `json:"difficulty"`
	PrepDays    int      `json:"prep_days"`
}

type Service interface {
	// Analyze returns the cached analysis blob when one exists, otherwise
	// generates, persists and returns a fresh one.
	Analyze(ctx context.Context, userID, opportunityID string) (json.RawMessage, error)
}

var ErrOpportunityNotFound = errors.New("opportunity_not_found")
