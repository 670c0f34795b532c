package repo

import (
	"context"
	"time"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

// HistoryRepo persists forward records
type HistoryRepo interface {
	// Record stores a forward record
	Record(ctx context.Context, rec *domain.ForwardRecord) error

	// Recent returns the newest records first
	Recent(ctx context.Context, limit int) ([]*domain.ForwardRecord, error)

	// Prune deletes records created before cutoff and returns how many were removed
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
