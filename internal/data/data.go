package data

import (
	"log/slog"

	"github.com/buytheway/buytheway-bridge/internal/biz/repo"
	"github.com/buytheway/buytheway-bridge/internal/conf"
	"github.com/buytheway/buytheway-bridge/internal/infra/feishu"
	"github.com/buytheway/buytheway-bridge/internal/infra/llm"
	"github.com/buytheway/buytheway-bridge/internal/infra/onebot"
)

// Repositories contains all repositories
type Repositories struct {
	Settings *SettingsStore
	History  repo.HistoryRepo
	Prober   repo.FileProber
	Runtime  repo.ChatRuntime
	Mailer   repo.MailSender
	Feishu   repo.ChatPoster // nil when Feishu is not configured
	Filter   repo.FilterRepo // nil when no model is configured
	Notifier *LogNotifier
}

// NewRepositories creates all repositories
func NewRepositories(cfg *conf.Config, onebotClient *onebot.Client, logger *slog.Logger) (*Repositories, error) {
	historyRepo, err := NewHistoryRepo(cfg.History.DBPath, logger)
	if err != nil {
		return nil, err
	}

	settingsPath := conf.FindSettings(cfg.SettingsPath)
	if settingsPath == "" {
		logger.Warn("No settings.yaml found, using defaults")
	} else {
		logger.Info("Loading settings", "path", settingsPath)
	}

	repos := &Repositories{
		Settings: NewSettingsStore(settingsPath, logger),
		History:  historyRepo,
		Prober:   NewFileProber(cfg.GuardWindow),
		Runtime:  NewChatRuntime(onebotClient),
		Mailer:   NewMailSender(logger, cfg.Debug),
		Notifier: NewLogNotifier(logger, 0),
	}

	if cfg.Feishu.Configured() {
		repos.Feishu = NewFeishuPoster(feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger), logger)
	}
	if cfg.OpenAI.APIKey != "" {
		repos.Filter = NewFilterRepo(llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model), logger)
	}
	return repos, nil
}

// Close releases held resources
func (r *Repositories) Close() error {
	return r.History.Close()
}
