package domain

import (
	"strings"
	"time"
)

// MediaPlaceholder replaces empty text when a message carries only media
const MediaPlaceholder = "[图片消息]"

// TimestampLayout is the display format used in forwarded messages
const TimestampLayout = "2006/1/2 15:04:05"

// SourceKind distinguishes group chats from direct chats
type SourceKind string

const (
	SourceGroup  SourceKind = "group"
	SourceDirect SourceKind = "direct"
)

// SegmentKind tags a content element
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentImage
	SegmentMention
	SegmentMentionAll
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentText:
		return "text"
	case SegmentImage:
		return "image"
	case SegmentMention:
		return "mention"
	case SegmentMentionAll:
		return "mention_all"
	default:
		return "unknown"
	}
}

// Segment is one content element of an inbound message.
// Only the field matching Kind is meaningful.
type Segment struct {
	Kind    SegmentKind
	Text    string // SegmentText
	Path    string // SegmentImage
	UIN     string // SegmentMention
	Content string // SegmentMentionAll
}

// TextSegment creates a text segment
func TextSegment(text string) Segment { return Segment{Kind: SegmentText, Text: text} }

// ImageSegment creates an image segment
func ImageSegment(path string) Segment { return Segment{Kind: SegmentImage, Path: path} }

// MentionSegment creates a mention segment
func MentionSegment(uin string) Segment { return Segment{Kind: SegmentMention, UIN: uin} }

// MentionAllSegment creates a mention-all segment
func MentionAllSegment(content string) Segment {
	return Segment{Kind: SegmentMentionAll, Content: content}
}

// Render returns the inline text form of the segment.
// Images render as nothing; they are collected as media refs instead.
func (s Segment) Render() string {
	switch s.Kind {
	case SegmentText:
		return s.Text
	case SegmentMention:
		return "@" + s.UIN + " "
	case SegmentMentionAll:
		return s.Content + " "
	default:
		return ""
	}
}

// MediaRef references a media file reported by the source.
// The resolver never modifies it.
type MediaRef struct {
	OriginalPath string
}

// CanonicalMessage is the source-agnostic form of an inbound chat event
type CanonicalMessage struct {
	MessageID   string
	SourceKind  SourceKind
	SourceID    string
	SourceLabel string
	Text        string
	MediaRefs   []MediaRef
	Timestamp   string
	ReceivedAt  time.Time
}

// NewCanonicalMessage builds a message from its segments.
// Text is concatenated in order, images become media refs, and a
// media-only message gets MediaPlaceholder as its text.
func NewCanonicalMessage(id string, kind SourceKind, sourceID, label string, segments []Segment, at time.Time) CanonicalMessage {
	var sb strings.Builder
	refs := make([]MediaRef, 0)
	for _, seg := range segments {
		if seg.Kind == SegmentImage {
			if seg.Path != "" {
				refs = append(refs, MediaRef{OriginalPath: seg.Path})
			}
			continue
		}
		sb.WriteString(seg.Render())
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" && len(refs) > 0 {
		text = MediaPlaceholder
	}
	if label == "" {
		label = sourceID
	}

	return CanonicalMessage{
		MessageID:   id,
		SourceKind:  kind,
		SourceID:    sourceID,
		SourceLabel: label,
		Text:        text,
		MediaRefs:   refs,
		Timestamp:   at.Local().Format(TimestampLayout),
		ReceivedAt:  at,
	}
}

// HasMedia reports whether the message references any media
func (m *CanonicalMessage) HasMedia() bool {
	return len(m.MediaRefs) > 0
}

// DedupKey returns the key used to suppress duplicate notifications.
// Messages without an id return an empty key.
func (m *CanonicalMessage) DedupKey() string {
	if m.MessageID != "" {
		return string(m.SourceKind) + ":" + m.MessageID
	}
	return ""
}
