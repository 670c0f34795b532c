package usecase

import (
	"context"
	"strings"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

// FilterUsecase handles the optional relevance check on matched messages
type FilterUsecase struct {
	filterRepo repo.FilterRepo
}

// NewFilterUsecase creates a new filter usecase. filterRepo may be nil.
func NewFilterUsecase(filterRepo repo.FilterRepo) *FilterUsecase {
	return &FilterUsecase{filterRepo: filterRepo}
}

// ShouldForward reports whether a matched message passes the filter.
// With the filter disabled or unconfigured every message passes.
func (uc *FilterUsecase) ShouldForward(ctx context.Context, msg *domain.CanonicalMessage, settings *domain.Settings) (bool, error) {
	if !uc.IsFilterEnabled() || !settings.Filter.Enabled {
		return true, nil
	}
	// media-only messages carry nothing to judge
	if strings.TrimSpace(msg.Text) == "" || (msg.HasMedia() && msg.Text == domain.MediaPlaceholder) {
		return true, nil
	}
	return uc.filterRepo.IsRelevant(ctx, msg.Text, settings.Keywords, settings.Filter.Prompt)
}

// IsFilterEnabled returns whether a filter model is configured
func (uc *FilterUsecase) IsFilterEnabled() bool {
	return uc.filterRepo != nil
}
