package repo

import (
	"context"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

// FileProber reports whether a file is present, fully written and readable.
// All I/O failures are translated into the result.
type FileProber interface {
	Check(ctx context.Context, path string) domain.ProbeResult
}
