package domain

import "time"

// Template selects the presentation style of forwarded messages
type Template string

const (
	TemplateDefault       Template = "default"
	TemplateEmoji         Template = "emoji"
	TemplateBrackets      Template = "brackets"
	TemplateSymbols       Template = "symbols"
	TemplateMarkdownLines Template = "markdown_lines"
	TemplateMarkdownBold  Template = "markdown_bold"
	TemplateMarkdownTable Template = "markdown_table"
)

// Templates lists every supported template
var Templates = []Template{
	TemplateDefault,
	TemplateEmoji,
	TemplateBrackets,
	TemplateSymbols,
	TemplateMarkdownLines,
	TemplateMarkdownBold,
	TemplateMarkdownTable,
}

// Valid reports whether t is a known template
func (t Template) Valid() bool {
	for _, known := range Templates {
		if t == known {
			return true
		}
	}
	return false
}

// EmailSettings contains SMTP sink configuration
type EmailSettings struct {
	Enabled            bool
	Host               string
	Port               int
	Secure             bool
	RejectUnauthorized bool
	User               string
	Pass               string
	To                 string
}

// Complete reports whether every field needed to send is present
func (e EmailSettings) Complete() bool {
	return e.Host != "" && e.Port > 0 && e.User != "" && e.Pass != "" && e.To != ""
}

// RelaySettings configures a contact or group relay sink.
// Targets are raw lines; ids are extracted with ParseTargets.
type RelaySettings struct {
	Enabled bool
	Targets []string
}

// TargetIDs returns the de-duplicated numeric ids of the targets
func (r RelaySettings) TargetIDs() []string {
	return ParseTargets(r.Targets)
}

// FeishuSettings configures the Feishu relay sink
type FeishuSettings struct {
	Enabled    bool
	ChatIDs    []string
	SendImages bool
}

// ForwardConfig is the sink configuration for one dispatch
type ForwardConfig struct {
	Email    EmailSettings
	Contacts RelaySettings
	Groups   RelaySettings
	Feishu   FeishuSettings
	Template Template
}

// FilterSettings configures the optional relevance pre-filter
type FilterSettings struct {
	Enabled bool
	Prompt  string
}

// ResolverSettings tunes media resolution
type ResolverSettings struct {
	MaxWait time.Duration
}

// Settings is the user configuration read at the start of every message
type Settings struct {
	PluginEnabled bool
	WatchList     []string
	Keywords      []string
	Forward       ForwardConfig
	Filter        FilterSettings
	Resolver      ResolverSettings
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() *Settings {
	return &Settings{
		PluginEnabled: true,
		WatchList:     []string{},
		Keywords:      []string{},
		Forward: ForwardConfig{
			Email: EmailSettings{
				Port:               465,
				Secure:             true,
				RejectUnauthorized: true,
			},
			Template: TemplateDefault,
		},
		Resolver: ResolverSettings{
			MaxWait: 10 * time.Second,
		},
	}
}

// Sink names a forwarding destination
type Sink string

const (
	SinkEmail   Sink = "email"
	SinkContact Sink = "contact"
	SinkGroup   Sink = "group"
	SinkFeishu  Sink = "feishu"
	SinkLocal   Sink = "local"
)

// SinkOutcome records one delivery attempt
type SinkOutcome struct {
	Sink   Sink   `json:"sink"`
	Target string `json:"target,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// ForwardRecord is the persisted history entry of one dispatch
type ForwardRecord struct {
	ID          string        `json:"id"`
	MessageID   string        `json:"message_id"`
	SourceID    string        `json:"source_id"`
	SourceLabel string        `json:"source_label"`
	Text        string        `json:"text"`
	MediaCount  int           `json:"media_count"`
	Outcomes    []SinkOutcome `json:"outcomes"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Delivered reports whether at least one sink succeeded
func (r *ForwardRecord) Delivered() bool {
	for _, o := range r.Outcomes {
		if o.OK {
			return true
		}
	}
	return false
}
