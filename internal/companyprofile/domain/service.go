package domain

import (
	"context"
	"errors"
)

type AnalyzeRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type Service interface {
	// Analyze profiles the company from its website (or supplied free text)
	// and replaces the stored profile.
	Analyze(ctx context.Context, userID string, req AnalyzeRequest) (AnalyzedProfile, error)
	Get(ctx context.Context, userID string) (*CompanyProfile, error)
	UpdateKeywords(ctx context.Context, userID string, keywords []string) error
}

var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrSiteFetch    = errors.New("site_fetch_failed")
)
