package usecase

import (
	"regexp"
	"strings"
	"time"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
)

const defaultMentionAll = "@全体成员"

var cqCodePattern = regexp.MustCompile(`\[CQ:([A-Za-z_]+)((?:,[^\]]*)?)\]`)

var cqUnescaper = strings.NewReplacer("&#44;", ",", "&#91;", "[", "&#93;", "]", "&amp;", "&")

// Normalize converts a raw host event into a canonical message.
// Two shapes are understood: OneBot v11 message events and the element
// chains of the desktop client. Missing or mistyped fields degrade to
// empty values; Normalize never panics on malformed input.
func Normalize(raw domain.RawEvent, watchList []string) domain.CanonicalMessage {
	var (
		id       string
		kind     domain.SourceKind
		sourceID string
		segments []domain.Segment
		at       time.Time
	)

	if _, ok := raw["elements"]; ok {
		id, kind, sourceID, segments, at = parseElementChain(raw)
	} else {
		id, kind, sourceID, segments, at = parseOneBot(raw)
	}

	label := domain.LookupLabel(watchList, sourceID)
	return domain.NewCanonicalMessage(id, kind, sourceID, label, segments, at)
}

// EventKey returns the dedup key of a raw event, or "" when it has no id
func EventKey(raw domain.RawEvent) string {
	if _, ok := raw["elements"]; ok {
		if id := raw.String("msgId"); id != "" {
			return "chain:" + id
		}
		return ""
	}
	if id := raw.String("message_id"); id != "" {
		return "onebot:" + raw.String("self_id") + ":" + id
	}
	return ""
}

func parseOneBot(raw domain.RawEvent) (string, domain.SourceKind, string, []domain.Segment, time.Time) {
	kind := domain.SourceDirect
	sourceID := raw.String("user_id")
	if raw.String("message_type") == "group" {
		kind = domain.SourceGroup
		sourceID = raw.String("group_id")
	}

	var segments []domain.Segment
	switch msg := raw["message"].(type) {
	case []any:
		for _, item := range msg {
			seg, ok := item.(map[string]any)
			if !ok {
				continue
			}
			data, _ := seg["data"].(map[string]any)
			if s, ok := oneBotSegment(domain.AnyString(seg["type"]), data); ok {
				segments = append(segments, s)
			}
		}
	case string:
		segments = parseCQString(msg)
	default:
		if rawMsg := raw.String("raw_message"); rawMsg != "" {
			segments = parseCQString(rawMsg)
		}
	}

	return raw.String("message_id"), kind, sourceID, segments, unixOrNow(domain.AnyInt64(raw["time"]))
}

func oneBotSegment(typ string, data map[string]any) (domain.Segment, bool) {
	get := func(key string) string { return domain.AnyString(data[key]) }

	switch typ {
	case "text":
		return domain.TextSegment(get("text")), true
	case "image":
		if p := imageLocation(get("path"), get("file"), get("url")); p != "" {
			return domain.ImageSegment(p), true
		}
	case "at":
		qq := get("qq")
		if qq == "all" {
			content := get("name")
			if content == "" {
				content = defaultMentionAll
			}
			return domain.MentionAllSegment(content), true
		}
		if qq != "" {
			return domain.MentionSegment(qq), true
		}
	}
	return domain.Segment{}, false
}

// imageLocation prefers a local path, then a local file reference, then a URL
func imageLocation(path, file, url string) string {
	if path != "" {
		return strings.TrimPrefix(path, "file://")
	}
	if f := strings.TrimPrefix(file, "file://"); isLocalPath(f) {
		return f
	}
	if url != "" {
		return url
	}
	return ""
}

func isLocalPath(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\\`) {
		return true
	}
	// drive letter, e.g. C:\
	return len(p) > 2 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

// isRemoteRef reports whether p is a URL rather than a filesystem path
func isRemoteRef(p string) bool {
	i := strings.Index(p, "://")
	return i > 0 && !strings.ContainsAny(p[:i], `/\:`)
}

// parseCQString splits a CQ-coded message string into segments
func parseCQString(s string) []domain.Segment {
	var segments []domain.Segment
	last := 0
	for _, m := range cqCodePattern.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			segments = append(segments, domain.TextSegment(cqUnescaper.Replace(s[last:m[0]])))
		}
		last = m[1]

		typ := s[m[2]:m[3]]
		data := map[string]any{}
		for _, kv := range strings.Split(strings.TrimPrefix(s[m[4]:m[5]], ","), ",") {
			if k, v, ok := strings.Cut(kv, "="); ok {
				data[k] = cqUnescaper.Replace(v)
			}
		}
		if seg, ok := oneBotSegment(typ, data); ok {
			segments = append(segments, seg)
		}
	}
	if last < len(s) {
		segments = append(segments, domain.TextSegment(cqUnescaper.Replace(s[last:])))
	}
	return segments
}

func parseElementChain(raw domain.RawEvent) (string, domain.SourceKind, string, []domain.Segment, time.Time) {
	kind := domain.SourceDirect
	if domain.AnyInt64(raw["chatType"]) == 2 {
		kind = domain.SourceGroup
	}
	sourceID := raw.String("peerUin")
	if sourceID == "" || sourceID == "0" {
		sourceID = raw.String("peerUid")
	}

	var segments []domain.Segment
	elements, _ := raw["elements"].([]any)
	for _, item := range elements {
		el, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := el["textElement"].(map[string]any); ok {
			content := domain.AnyString(text["content"])
			switch domain.AnyInt64(text["atType"]) {
			case 1:
				if content == "" {
					content = defaultMentionAll
				}
				segments = append(segments, domain.MentionAllSegment(content))
			case 2:
				uin := domain.AnyString(text["atNtUin"])
				if uin == "" {
					uin = domain.AnyString(text["atUid"])
				}
				segments = append(segments, domain.MentionSegment(uin))
			default:
				segments = append(segments, domain.TextSegment(content))
			}
			continue
		}
		if pic, ok := el["picElement"].(map[string]any); ok {
			if p := domain.AnyString(pic["sourcePath"]); p != "" {
				segments = append(segments, domain.ImageSegment(p))
			}
		}
	}

	return raw.String("msgId"), kind, sourceID, segments, unixOrNow(domain.AnyInt64(raw["msgTime"]))
}

func unixOrNow(sec int64) time.Time {
	if sec <= 0 {
		return time.Now()
	}
	return time.Unix(sec, 0)
}
