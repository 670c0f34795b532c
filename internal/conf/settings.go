package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

// SettingsFile is the on-disk shape of settings.yaml
type SettingsFile struct {
	PluginEnabled *bool        `yaml:"plugin_enabled"`
	WatchList     []string     `yaml:"watch_list"`
	Keywords      []string     `yaml:"keywords"`
	Email         EmailFile    `yaml:"email"`
	Forward       ForwardFile  `yaml:"forward"`
	Template      string       `yaml:"template"`
	Filter        FilterFile   `yaml:"filter"`
	Resolver      ResolverFile `yaml:"resolver"`
}

// EmailFile contains SMTP settings
type EmailFile struct {
	Enabled            bool   `yaml:"enabled"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Secure             *bool  `yaml:"secure"`
	RejectUnauthorized *bool  `yaml:"reject_unauthorized"`
	User               string `yaml:"user"`
	Pass               string `yaml:"pass"`
	To                 string `yaml:"to"`
}

// RelayFile contains one relay sink
type RelayFile struct {
	Enabled bool     `yaml:"enabled"`
	Targets []string `yaml:"targets"`
}

// FeishuFile contains the Feishu relay sink
type FeishuFile struct {
	Enabled    bool     `yaml:"enabled"`
	ChatIDs    []string `yaml:"chat_ids"`
	SendImages bool     `yaml:"send_images"`
}

// ForwardFile groups the relay sinks
type ForwardFile struct {
	Contacts RelayFile  `yaml:"contacts"`
	Groups   RelayFile  `yaml:"groups"`
	Feishu   FeishuFile `yaml:"feishu"`
}

// FilterFile configures the relevance filter
type FilterFile struct {
	Enabled bool   `yaml:"enabled"`
	Prompt  string `yaml:"prompt"`
}

// ResolverFile tunes media resolution
type ResolverFile struct {
	MaxWait string `yaml:"max_wait"` // Go duration, e.g. "10s"
}

// DefaultFilterPrompt is used when the filter is enabled without a prompt
const DefaultFilterPrompt = `You screen chat messages for a shopper who watches for restocks and deals.
Answer YES if the message announces availability, a restock, a price or a purchase opportunity
related to the keywords. Answer NO for chatter, questions or unrelated content.`

var envPlaceholder = regexp.MustCompile(`\$\(([A-Za-z_][A-Za-z0-9_]*)\)`)

// ExpandEnv replaces $(VAR) placeholders with environment values
func ExpandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		name := envPlaceholder.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})
}

// SettingsCandidates returns the paths tried when no explicit path is configured
func SettingsCandidates(configPath string) []string {
	if configPath != "" {
		return []string{configPath}
	}
	paths := []string{"settings.yaml", "./configs/settings.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".buytheway", "settings.yaml"))
	}
	if execPath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(execPath), "settings.yaml"))
	}
	return paths
}

// FindSettings returns the first existing candidate, or "" when none exists
func FindSettings(configPath string) string {
	for _, p := range SettingsCandidates(configPath) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadSettings reads and parses settings from path.
// An empty path yields the defaults.
func LoadSettings(path string) (*domain.Settings, error) {
	if path == "" {
		return domain.DefaultSettings(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings parses settings YAML, filling in defaults for missing values
func ParseSettings(data []byte) (*domain.Settings, error) {
	var file SettingsFile
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("failed to parse settings.yaml: %w", err)
	}
	return file.ToSettings()
}

// ToSettings converts the file shape into domain settings
func (f *SettingsFile) ToSettings() (*domain.Settings, error) {
	s := domain.DefaultSettings()

	if f.PluginEnabled != nil {
		s.PluginEnabled = *f.PluginEnabled
	}
	if f.WatchList != nil {
		s.WatchList = f.WatchList
	}
	s.Keywords = cleanKeywords(f.Keywords)

	email := &s.Forward.Email
	email.Enabled = f.Email.Enabled
	email.Host = strings.TrimSpace(f.Email.Host)
	if f.Email.Port > 0 {
		email.Port = f.Email.Port
	}
	if f.Email.Secure != nil {
		email.Secure = *f.Email.Secure
	}
	if f.Email.RejectUnauthorized != nil {
		email.RejectUnauthorized = *f.Email.RejectUnauthorized
	}
	email.User = strings.TrimSpace(f.Email.User)
	email.Pass = strings.TrimSpace(f.Email.Pass)
	email.To = strings.TrimSpace(f.Email.To)

	s.Forward.Contacts = domain.RelaySettings{Enabled: f.Forward.Contacts.Enabled, Targets: f.Forward.Contacts.Targets}
	s.Forward.Groups = domain.RelaySettings{Enabled: f.Forward.Groups.Enabled, Targets: f.Forward.Groups.Targets}
	s.Forward.Feishu = domain.FeishuSettings{
		Enabled:    f.Forward.Feishu.Enabled,
		ChatIDs:    f.Forward.Feishu.ChatIDs,
		SendImages: f.Forward.Feishu.SendImages,
	}

	if f.Template != "" {
		tpl := domain.Template(f.Template)
		if !tpl.Valid() {
			return nil, &ConfigError{Field: "template", Message: "unknown template " + f.Template}
		}
		s.Forward.Template = tpl
	}

	s.Filter.Enabled = f.Filter.Enabled
	s.Filter.Prompt = strings.TrimSpace(f.Filter.Prompt)
	if s.Filter.Enabled && s.Filter.Prompt == "" {
		s.Filter.Prompt = DefaultFilterPrompt
	}

	if f.Resolver.MaxWait != "" {
		d, err := time.ParseDuration(f.Resolver.MaxWait)
		if err != nil || d <= 0 {
			return nil, &ConfigError{Field: "resolver.max_wait", Message: "invalid duration " + f.Resolver.MaxWait}
		}
		s.Resolver.MaxWait = d
	}
	return s, nil
}

// cleanKeywords trims keywords and drops blank lines
func cleanKeywords(lines []string) []string {
	keywords := make([]string, 0, len(lines))
	for _, line := range lines {
		if kw := strings.TrimSpace(line); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
