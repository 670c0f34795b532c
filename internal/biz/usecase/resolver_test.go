package usecase

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/infra/backoff"
)

// fakeProber reports a path ready once its time has come
type fakeProber struct {
	mu       sync.Mutex
	readyAt  map[string]time.Time
	settling map[string]int // number of checks reported as RECENTLY_MODIFIED
	calls    int
}

func newFakeProber() *fakeProber {
	return &fakeProber{readyAt: map[string]time.Time{}, settling: map[string]int{}}
}

func (p *fakeProber) Check(ctx context.Context, path string) domain.ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if n := p.settling[path]; n > 0 {
		p.settling[path] = n - 1
		return domain.ProbeResult{Reason: domain.ReasonRecentlyModified, Size: 10}
	}
	at, ok := p.readyAt[path]
	if ok && !time.Now().Before(at) {
		return domain.ProbeResult{Exists: true, Size: 10, ModifiedAt: at}
	}
	return domain.ProbeResult{Reason: domain.ReasonNotFound}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestImageResolver_ImmediateHit(t *testing.T) {
	prober := newFakeProber()
	prober.readyAt[oriPath] = time.Now().Add(-time.Minute)

	r := NewImageResolver(prober, backoff.DefaultImagePolicy(), testLogger())
	if got := r.Resolve(context.Background(), oriPath); got != oriPath {
		t.Errorf("Expected original path, got '%s'", got)
	}
	if prober.calls != 11 {
		t.Errorf("Expected a single pass over 11 variants, got %d checks", prober.calls)
	}
}

func TestImageResolver_PrefersHigherPriorityVariant(t *testing.T) {
	prober := newFakeProber()
	variants := GeneratePathVariants(oriPath)
	prober.readyAt[variants[2]] = time.Now().Add(-time.Minute)
	prober.readyAt[oriPath] = time.Now().Add(-time.Minute)

	r := NewImageResolver(prober, backoff.DefaultImagePolicy(), testLogger())
	if got := r.Resolve(context.Background(), oriPath); got != variants[2] {
		t.Errorf("Expected '%s', got '%s'", variants[2], got)
	}
}

func TestImageResolver_FileAppearsLater(t *testing.T) {
	prober := newFakeProber()
	thumb720 := GeneratePathVariants(oriPath)[0]
	prober.readyAt[thumb720] = time.Now().Add(1500 * time.Millisecond)

	r := NewImageResolver(prober, backoff.DefaultImagePolicy(), testLogger())

	start := time.Now()
	got := r.Resolve(context.Background(), oriPath)
	elapsed := time.Since(start)

	if got != thumb720 {
		t.Errorf("Expected '%s', got '%s'", thumb720, got)
	}
	if elapsed < 1500*time.Millisecond || elapsed > 5*time.Second {
		t.Errorf("Expected resolution shortly after 1.5s, took %v", elapsed)
	}
}

func TestImageResolver_FallbackWithinBound(t *testing.T) {
	prober := newFakeProber()
	policy := backoff.Policy{Schedule: backoff.ImageSchedule, MaxWait: 800 * time.Millisecond}
	r := NewImageResolver(prober, policy, testLogger())

	start := time.Now()
	got := r.Resolve(context.Background(), oriPath)
	elapsed := time.Since(start)

	want := GeneratePathVariants(oriPath)[0]
	if got != want {
		t.Errorf("Expected fallback '%s', got '%s'", want, got)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Expected fallback near the 800ms bound, took %v", elapsed)
	}
}

func TestImageResolver_RechecksSettlingFile(t *testing.T) {
	prober := newFakeProber()
	path := "/tmp/pics/a.jpg"
	first := GeneratePathVariants(path)[0]
	prober.readyAt[first] = time.Now().Add(-time.Minute)
	// first immediate pass plus one in-loop look see it settling
	prober.settling[first] = 2

	policy := backoff.Policy{Schedule: func(uint) time.Duration { return 10 * time.Millisecond }, MaxWait: time.Second}
	r := NewImageResolver(prober, policy, testLogger())

	if got := r.Resolve(context.Background(), path); got != first {
		t.Errorf("Expected '%s', got '%s'", first, got)
	}
}

func TestImageResolver_EdgeCases(t *testing.T) {
	prober := newFakeProber()
	r := NewImageResolver(prober, backoff.DefaultImagePolicy(), testLogger())

	if got := r.Resolve(context.Background(), ""); got != "" {
		t.Errorf("Expected empty result, got '%s'", got)
	}
	if got := r.Resolve(context.Background(), "/tmp/noext"); got != "/tmp/noext" {
		t.Errorf("Expected original for extensionless path, got '%s'", got)
	}
	if prober.calls != 0 {
		t.Errorf("Expected no probing, got %d checks", prober.calls)
	}
}

func TestImageResolver_ResolveAllSkipsEmpty(t *testing.T) {
	prober := newFakeProber()
	prober.readyAt["/a/b.jpg"] = time.Now().Add(-time.Minute)
	r := NewImageResolver(prober, backoff.DefaultImagePolicy(), testLogger())

	got := r.ResolveAll(context.Background(), []domain.MediaRef{{OriginalPath: ""}, {OriginalPath: "/a/b.jpg"}})
	if len(got) != 1 || got[0] != "/a/b.jpg" {
		t.Errorf("Expected [/a/b.jpg], got %v", got)
	}
}

func TestImageResolver_URLPassesThrough(t *testing.T) {
	prober := newFakeProber()
	policy := backoff.DefaultImagePolicy()
	policy.MaxWait = 2 * time.Second
	r := NewImageResolver(prober, policy, testLogger())

	// a segment with only a bare file name falls back to its download URL
	msg := Normalize(decodeEvent(t, `{
		"post_type": "message",
		"message_type": "group",
		"message_id": 7,
		"group_id": 123456,
		"message": [
			{"type": "image", "data": {"file": "ABC.jpg", "url": "https://multimedia.nt.qq.com.cn/download/abc.jpg"}}
		]
	}`), watchList)
	if len(msg.MediaRefs) != 1 {
		t.Fatalf("Expected 1 media ref, got %d", len(msg.MediaRefs))
	}

	start := time.Now()
	got := r.ResolveAll(context.Background(), msg.MediaRefs)
	if len(got) != 1 || got[0] != "https://multimedia.nt.qq.com.cn/download/abc.jpg" {
		t.Errorf("Expected URL unchanged, got %v", got)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Expected no waiting for a URL, took %v", elapsed)
	}
	if prober.calls != 0 {
		t.Errorf("Expected no probing, got %d checks", prober.calls)
	}
}
