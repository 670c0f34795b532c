package repo

import (
	"context"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

// SettingsRepo supplies user settings.
// The core only reads them.
type SettingsRepo interface {
	Load(ctx context.Context) (*domain.Settings, error)
}
