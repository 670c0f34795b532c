package data

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

// DefaultGuardWindow is how recently a file may have been written before
// it is considered still in flight
const DefaultGuardWindow = 100 * time.Millisecond

// fileProber checks whether media files are complete on disk
type fileProber struct {
	guard time.Duration
	now   func() time.Time
}

// NewFileProber creates a readiness probe. A non-positive guard uses DefaultGuardWindow.
func NewFileProber(guard time.Duration) repo.FileProber {
	if guard <= 0 {
		guard = DefaultGuardWindow
	}
	return &fileProber{guard: guard, now: time.Now}
}

// Check never returns an error; problems are folded into the result reason
func (p *fileProber) Check(ctx context.Context, path string) domain.ProbeResult {
	f, err := os.Open(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr != nil && errors.Is(statErr, fs.ErrNotExist) {
			return domain.ProbeResult{Reason: domain.ReasonNotFound}
		}
		return domain.ProbeResult{Reason: domain.ReasonAccessDenied}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.ProbeResult{Reason: domain.ReasonAccessDenied}
	}

	res := domain.ProbeResult{
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
	switch {
	case info.Size() == 0:
		res.Reason = domain.ReasonEmpty
	case p.now().Sub(info.ModTime()) < p.guard:
		res.Reason = domain.ReasonRecentlyModified
	default:
		res.Exists = true
	}
	return res
}
