package repo

import "context"

// FilterRepo is the relevance filtering interface
type FilterRepo interface {
	// IsRelevant asks whether a keyword-matched message is worth forwarding
	// message: message text
	// keywords: configured keywords
	// prompt: custom instructions (optional, uses default if empty)
	IsRelevant(ctx context.Context, message string, keywords []string, prompt string) (bool, error)
}
