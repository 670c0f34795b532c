package data

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/infra/llm"
)

// llmFilterRepo implements the relevance filter with a chat model
type llmFilterRepo struct {
	client *llm.Client
	logger *slog.Logger
}

// NewFilterRepo creates a relevance filter. A nil client disables filtering.
func NewFilterRepo(client *llm.Client, logger *slog.Logger) repo.FilterRepo {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &llmFilterRepo{client: client, logger: logger}
}

// IsRelevant asks the model whether message is worth forwarding
func (r *llmFilterRepo) IsRelevant(ctx context.Context, message string, keywords []string, prompt string) (bool, error) {
	userMsg := fmt.Sprintf("## Keywords\n%s\n\n## Message to evaluate\n%s", strings.Join(keywords, ", "), message)

	ok, raw, err := r.client.Classify(ctx, prompt+"\n\nReply only YES or NO.", userMsg)
	if err != nil {
		return false, err
	}
	r.logger.Debug("Relevance filter verdict", "response", raw, "relevant", ok)
	return ok, nil
}
