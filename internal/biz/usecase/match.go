package usecase

import (
	"strings"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

// Matcher decides whether a message should be forwarded
type Matcher struct {
	watchIDs map[string]struct{}
	keywords []string // trimmed, lower-cased, non-empty
	filtered bool     // a keyword list was configured, even if every entry is blank
}

// NewMatcher precomputes the watch set and normalized keywords
func NewMatcher(watchList, keywords []string) *Matcher {
	return &Matcher{
		watchIDs: domain.WatchIDSet(watchList),
		keywords: normalizeKeywords(keywords),
		filtered: len(keywords) > 0,
	}
}

// IsMatch reports whether msg comes from a watched source and contains a keyword
func (m *Matcher) IsMatch(msg *domain.CanonicalMessage) bool {
	if _, ok := m.watchIDs[msg.SourceID]; !ok {
		return false
	}
	return containsAny(msg.Text, m.keywords, m.filtered)
}

// Watches reports whether sourceID is on the watch list
func (m *Matcher) Watches(sourceID string) bool {
	_, ok := m.watchIDs[sourceID]
	return ok
}

// MatchedKeyword returns the first keyword found in msg, or "" when
// keywords are empty or none is found
func (m *Matcher) MatchedKeyword(msg *domain.CanonicalMessage) string {
	lower := strings.ToLower(msg.Text)
	for _, kw := range m.keywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// IsMatch is the stateless form of Matcher.IsMatch.
// Keywords match as case-insensitive substrings, so "phone" matches "iPhone".
// An empty keyword list matches every message from a watched source.
func IsMatch(msg *domain.CanonicalMessage, watchIDs map[string]struct{}, keywords []string) bool {
	if _, ok := watchIDs[msg.SourceID]; !ok {
		return false
	}
	return containsAny(msg.Text, normalizeKeywords(keywords), len(keywords) > 0)
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func containsAny(text string, keywords []string, filtered bool) bool {
	if !filtered {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
