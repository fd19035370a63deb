package domain

import (
	"context"
	"errors"
)

// MaxActiveAreas bounds how many areas a user can subscribe to.
const MaxActiveAreas = 3

type ReplaceAreasRequest struct {
	AreaIDs []string `json:"area_ids"`
}

type Service interface {
	ListAreas(ctx context.Context) ([]Area, error)
	ActiveAreaIDs(ctx context.Context, userID string) ([]string, error)
	ReplaceUserAreas(ctx context.Context, userID string, req ReplaceAreasRequest) error
}

var (
	ErrTooManyAreas   = errors.New("too_many_areas")
	ErrInvalidAreaIDs = errors.New("invalid_area_ids")
)
