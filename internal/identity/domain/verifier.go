package domain

import "context"

// Identity is the resolved caller. Anonymous callers have an empty UserID.
type Identity struct {
	UserID string
	Email  string
}

func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// Verifier exchanges a bearer token for the caller's identity. Resolution
// failures yield an anonymous identity, never an error: the decision whether
// anonymous access is acceptable belongs to the route.
type Verifier interface {
	Verify(ctx context.Context, token string) Identity
}
