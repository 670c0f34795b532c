package domain

import "strings"

// WatchEntry is a parsed watch-list line such as "123456 (Supplier A)".
// ID is the matching key; Label is the trimmed raw line.
type WatchEntry struct {
	ID    string
	Label string
}

// ParseWatchEntry extracts the first run of ASCII digits from line as a
// canonical id without leading zeros, so "0123" and "123" name the same
// chat. It returns false when the line contains no digits.
func ParseWatchEntry(line string) (WatchEntry, bool) {
	start := -1
	end := len(line)
	for i := 0; i < len(line); i++ {
		isDigit := line[i] >= '0' && line[i] <= '9'
		if start < 0 {
			if isDigit {
				start = i
			}
			continue
		}
		if !isDigit {
			end = i
			break
		}
	}
	if start < 0 {
		return WatchEntry{}, false
	}
	id := strings.TrimLeft(line[start:end], "0")
	if id == "" {
		id = "0"
	}
	return WatchEntry{ID: id, Label: strings.TrimSpace(line)}, true
}

// ParseTargets returns the numeric ids of lines in order, without duplicates
func ParseTargets(lines []string) []string {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		entry, ok := ParseWatchEntry(line)
		if !ok {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		ids = append(ids, entry.ID)
	}
	return ids
}

// WatchIDSet builds the membership set used by matching
func WatchIDSet(lines []string) map[string]struct{} {
	set := make(map[string]struct{}, len(lines))
	for _, id := range ParseTargets(lines) {
		set[id] = struct{}{}
	}
	return set
}

// LookupLabel returns the first watch-list line whose id equals sourceID,
// or sourceID itself when there is none.
func LookupLabel(lines []string, sourceID string) string {
	for _, line := range lines {
		if entry, ok := ParseWatchEntry(line); ok && entry.ID == sourceID {
			return entry.Label
		}
	}
	return sourceID
}
