package data

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/conf"
)

// DefaultSettingsTTL bounds how long a loaded settings snapshot is reused
const DefaultSettingsTTL = 30 * time.Second

// SettingsStore serves settings from settings.yaml with a short cache.
// The cache is dropped when the file changes on disk.
type SettingsStore struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	cached   *domain.Settings
	loadedAt time.Time
}

// NewSettingsStore creates a store reading path. An empty path serves defaults.
func NewSettingsStore(path string, logger *slog.Logger) *SettingsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{
		path:   path,
		ttl:    DefaultSettingsTTL,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the settings file path
func (s *SettingsStore) Path() string {
	return s.path
}

// Load returns the current settings. Parse errors are logged and the defaults returned.
// Callers must treat the result as read-only.
func (s *SettingsStore) Load(ctx context.Context) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.loadedAt) < s.ttl {
		return s.cached, nil
	}

	settings, err := conf.LoadSettings(s.path)
	if err != nil {
		s.logger.Error("Failed to load settings, using defaults", "path", s.path, "error", err)
		settings = domain.DefaultSettings()
	}
	s.cached = settings
	s.loadedAt = s.now()
	return settings, nil
}

// Invalidate drops the cached snapshot
func (s *SettingsStore) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Watch invalidates the cache whenever the settings file changes.
// It blocks until ctx is done.
func (s *SettingsStore) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// editors replace files by rename, so watch the directory
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	name := filepath.Base(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.logger.Info("Settings file changed, reloading", "path", s.path, "op", ev.Op.String())
			s.Invalidate()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("Settings watcher error", "error", err)
		}
	}
}
