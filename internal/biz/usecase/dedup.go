package usecase

import "sync"

// DefaultDedupCapacity is the number of recent message keys remembered
const DefaultDedupCapacity = 1000

// DedupGuard remembers recently processed message keys so that duplicate
// notifications from the host are handled once. When full, the oldest key
// is evicted first.
type DedupGuard struct {
	mu    sync.Mutex
	cap   int
	order []string // ring buffer of keys in insertion order
	head  int      // index of the oldest key once the ring is full
	keys  map[string]struct{}
}

// NewDedupGuard creates a guard holding at most capacity keys
func NewDedupGuard(capacity int) *DedupGuard {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &DedupGuard{
		cap:   capacity,
		order: make([]string, 0, capacity),
		keys:  make(map[string]struct{}, capacity),
	}
}

// Seen reports whether key was already recorded, recording it if not.
// Empty keys are never considered seen.
func (g *DedupGuard) Seen(key string) bool {
	if key == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.keys[key]; ok {
		return true
	}

	if len(g.order) < g.cap {
		g.order = append(g.order, key)
	} else {
		delete(g.keys, g.order[g.head])
		g.order[g.head] = key
		g.head = (g.head + 1) % g.cap
	}
	g.keys[key] = struct{}{}
	return false
}

// Len returns the number of remembered keys
func (g *DedupGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}
