package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/biz/usecase"
	"github.com/buytheway/buytheway-bridge/internal/data"
	"github.com/buytheway/buytheway-bridge/internal/service"
)

// StatsSource reports intake counters
type StatsSource interface {
	Stats() service.IntakeStats
}

// NoticeSource reports recent local notifications
type NoticeSource interface {
	Recent() []data.Notification
}

// Server provides the local HTTP API used by the MCP tools
type Server struct {
	historyRepo  repo.HistoryRepo
	settingsRepo repo.SettingsRepo
	forwardUC    *usecase.ForwardUsecase
	stats        StatsSource
	notices      NoticeSource
	logger       *slog.Logger

	server *http.Server
	port   int
}

// NewServer creates a new API server.
// stats and notices may be nil.
func NewServer(
	historyRepo repo.HistoryRepo,
	settingsRepo repo.SettingsRepo,
	forwardUC *usecase.ForwardUsecase,
	stats StatsSource,
	notices NoticeSource,
	port int,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		historyRepo:  historyRepo,
		settingsRepo: settingsRepo,
		forwardUC:    forwardUC,
		stats:        stats,
		notices:      notices,
		logger:       logger,
		port:         port,
	}
}

// Handler returns the request router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/match", s.handleMatch)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/resolve", s.handleResolve)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/notifications", s.handleNotifications)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info("Starting HTTP API", "port", s.port)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort returns the server port
func (s *Server) GetPort() int {
	return s.port
}

// ============ History ============

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.historyRepo == nil {
		s.writeJSON(w, map[string]interface{}{"records": []*domain.ForwardRecord{}})
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.historyRepo.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []*domain.ForwardRecord{}
	}
	s.writeJSON(w, map[string]interface{}{"records": records})
}

// ============ Match ============

// MatchRequest asks whether a message would be forwarded
type MatchRequest struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

// MatchResponse is the dry-run verdict
type MatchResponse struct {
	Matched bool   `json:"matched"`
	Label   string `json:"label"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SourceID) == "" {
		http.Error(w, "source_id is required", http.StatusBadRequest)
		return
	}

	settings, err := s.loadSettings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	matched, label := s.forwardUC.DryRun(strings.TrimSpace(req.SourceID), req.Text, settings)
	s.writeJSON(w, MatchResponse{Matched: matched, Label: label})
}

// ============ Settings ============

// SettingsSummary is the settings view with secrets left out
type SettingsSummary struct {
	PluginEnabled  bool     `json:"plugin_enabled"`
	WatchList      []string `json:"watch_list"`
	Keywords       []string `json:"keywords"`
	Template       string   `json:"template"`
	EmailEnabled   bool     `json:"email_enabled"`
	EmailComplete  bool     `json:"email_complete"`
	EmailHost      string   `json:"email_host,omitempty"`
	EmailTo        string   `json:"email_to,omitempty"`
	ContactTargets []string `json:"contact_targets"`
	GroupTargets   []string `json:"group_targets"`
	FeishuChats    []string `json:"feishu_chats"`
	FilterEnabled  bool     `json:"filter_enabled"`
	ResolverWait   string   `json:"resolver_max_wait"`
}

// Summarize builds the redacted view of settings
func Summarize(settings *domain.Settings) SettingsSummary {
	fwd := settings.Forward
	sum := SettingsSummary{
		PluginEnabled:  settings.PluginEnabled,
		WatchList:      nonNil(settings.WatchList),
		Keywords:       nonNil(settings.Keywords),
		Template:       string(fwd.Template),
		EmailEnabled:   fwd.Email.Enabled,
		EmailComplete:  fwd.Email.Complete(),
		EmailHost:      fwd.Email.Host,
		EmailTo:        fwd.Email.To,
		ContactTargets: []string{},
		GroupTargets:   []string{},
		FeishuChats:    []string{},
		FilterEnabled:  settings.Filter.Enabled,
		ResolverWait:   settings.Resolver.MaxWait.String(),
	}
	if fwd.Contacts.Enabled {
		sum.ContactTargets = nonNil(fwd.Contacts.TargetIDs())
	}
	if fwd.Groups.Enabled {
		sum.GroupTargets = nonNil(fwd.Groups.TargetIDs())
	}
	if fwd.Feishu.Enabled {
		sum.FeishuChats = nonNil(fwd.Feishu.ChatIDs)
	}
	return sum
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	settings, err := s.loadSettings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, Summarize(settings))
}

// ============ Resolve ============

// ResolveRequest names a reported media path
type ResolveRequest struct {
	Path string `json:"path"`
}

// ResolveResponse lists the probed candidates and the chosen file
type ResolveResponse struct {
	Variants []string `json:"variants"`
	Resolved string   `json:"resolved"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	resolver := s.forwardUC.Resolver()
	if settings, err := s.loadSettings(r.Context()); err == nil {
		resolver = resolver.WithMaxWait(settings.Resolver.MaxWait)
	}

	s.writeJSON(w, ResolveResponse{
		Variants: usecase.GeneratePathVariants(req.Path),
		Resolved: resolver.Resolve(r.Context(), req.Path),
	})
}

// ============ Stats ============

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.stats == nil {
		s.writeJSON(w, service.IntakeStats{})
		return
	}
	s.writeJSON(w, s.stats.Stats())
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	notices := []data.Notification{}
	if s.notices != nil {
		notices = append(notices, s.notices.Recent()...)
	}
	s.writeJSON(w, map[string]interface{}{"notifications": notices})
}

// ============ Helpers ============

func (s *Server) loadSettings(ctx context.Context) (*domain.Settings, error) {
	if s.settingsRepo == nil {
		return domain.DefaultSettings(), nil
	}
	return s.settingsRepo.Load(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error("API request failed", "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
