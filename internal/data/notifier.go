package data

import (
	"context"
	"log/slog"
	"sync"

	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
)

// Notification is a local notice raised by the bridge
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// LogNotifier writes notices to the log and keeps the latest ones in memory
type LogNotifier struct {
	logger *slog.Logger
	limit  int

	mu     sync.Mutex
	recent []Notification
}

var _ repo.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier retaining up to limit notices
func NewLogNotifier(logger *slog.Logger, limit int) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 50
	}
	return &LogNotifier{logger: logger, limit: limit}
}

// Notify records a notice
func (n *LogNotifier) Notify(ctx context.Context, title, body string) {
	n.logger.Info("Notification", "title", title, "body", body)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.recent = append(n.recent, Notification{Title: title, Body: body})
	if len(n.recent) > n.limit {
		n.recent = n.recent[len(n.recent)-n.limit:]
	}
}

// Recent returns the retained notices, oldest first
func (n *LogNotifier) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.recent))
	copy(out, n.recent)
	return out
}
