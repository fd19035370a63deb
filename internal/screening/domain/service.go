package domain

import (
	"context"
	"errors"
)

const (
	StatusStarted     = "screening_started"
	StatusAlreadyDone = "already_done"
)

type TriggerResponse struct {
	Status string `json:"status"`
}

type Service interface {
	// Trigger claims the one-shot screening flag and, on a won claim, launches
	// the bulk scoring pass in the background. The response is immediate.
	Trigger(ctx context.Context, userID string) (TriggerResponse, error)
}

var ErrUserNotFound = errors.New("user_not_found")
