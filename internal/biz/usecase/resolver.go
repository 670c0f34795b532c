package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/infra/backoff"
)

// DefaultRecheckDelay is the in-pass wait before re-probing a file that is still being written
const DefaultRecheckDelay = 100 * time.Millisecond

// ImageResolver finds a readable on-disk file for a media reference
type ImageResolver struct {
	prober       repo.FileProber
	policy       backoff.Policy
	recheckDelay time.Duration
	logger       *slog.Logger
}

// NewImageResolver creates a new image resolver
func NewImageResolver(prober repo.FileProber, policy backoff.Policy, logger *slog.Logger) *ImageResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageResolver{
		prober:       prober,
		policy:       policy,
		recheckDelay: DefaultRecheckDelay,
		logger:       logger,
	}
}

// WithMaxWait returns a copy of the resolver bounded by maxWait
func (r *ImageResolver) WithMaxWait(maxWait time.Duration) *ImageResolver {
	if maxWait <= 0 || maxWait == r.policy.MaxWait {
		return r
	}
	cp := *r
	cp.policy.MaxWait = maxWait
	return &cp
}

// Resolve returns the first ready variant of originalPath. When none becomes
// ready within the policy bound it returns the highest-priority variant,
// which callers must treat as possibly missing. URLs are returned as-is.
func (r *ImageResolver) Resolve(ctx context.Context, originalPath string) string {
	if originalPath == "" {
		return ""
	}
	if isRemoteRef(originalPath) {
		return originalPath
	}

	variants := GeneratePathVariants(originalPath)
	if len(variants) == 1 {
		return originalPath
	}

	if found, ok := r.probePass(ctx, variants, false); ok {
		return found
	}

	var resolved string
	err := backoff.Poll(ctx, r.policy, func(ctx context.Context) (bool, error) {
		found, ok := r.probePass(ctx, variants, true)
		if ok {
			resolved = found
		}
		return ok, nil
	})
	if err == nil && resolved != "" {
		r.logger.Debug("Resolved image", "original", originalPath, "resolved", resolved)
		return resolved
	}

	r.logger.Warn("Image resolution failed, using best guess",
		"original", originalPath,
		"fallback", variants[0],
		"error", err)
	return variants[0]
}

// ResolveAll resolves refs in order, dropping refs with empty paths
func (r *ImageResolver) ResolveAll(ctx context.Context, refs []domain.MediaRef) []string {
	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		if p := r.Resolve(ctx, ref.OriginalPath); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// probePass checks every variant once in priority order. With recheck set,
// a variant that exists but is still settling gets one more look after a
// short delay before moving on.
func (r *ImageResolver) probePass(ctx context.Context, variants []string, recheck bool) (string, bool) {
	for _, v := range variants {
		if ctx.Err() != nil {
			return "", false
		}
		res := r.prober.Check(ctx, v)
		if res.Ready() {
			return v, true
		}
		if recheck && res.Settling() {
			if !sleepContext(ctx, r.recheckDelay) {
				return "", false
			}
			if r.prober.Check(ctx, v).Ready() {
				return v, true
			}
		}
	}
	return "", false
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
