package ai

import "context"

// Client is a prompt-in / text-out generative text endpoint. The returned
// string is the raw candidate text; callers decode it with DecodeObject or
// DecodeArray depending on the shape they asked the model for.
type Client interface {
	Generate(ctx context.Context, purpose, prompt string) (string, error)
}
