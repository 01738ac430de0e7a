package domain

import "time"

// MediaKind distinguishes how a content item's text is obtained.
type MediaKind string

const (
	// MediaVideo requires audio extraction and speech-to-text.
	MediaVideo MediaKind = "video"
	// MediaPost is text-native social content.
	MediaPost MediaKind = "post"
)

// ContentItem is one externally sourced unit of content (a video or a
// post). It is ephemeral: consumed by extraction and kept only as a
// provenance pointer on the predictions it yields.
type ContentItem struct {
	ExternalID  string
	ChannelID   string
	ChannelType ChannelType
	Kind        MediaKind
	Title       string
	Description string
	// Text carries the raw body for text-native items. Empty for video.
	Text string
	// MediaURL points at the audio/video asset for MediaVideo items.
	MediaURL    string
	SourceURL   string
	PublishedAt time.Time
}

// IdempotencyKey dedupes a content item across runs. Collection itself
// never dedupes; the orchestrator checks this key before processing.
func (c ContentItem) IdempotencyKey() string {
	return c.ChannelID + ":" + c.ExternalID
}

// NormalizedDocument is the uniform text representation handed to the
// extraction engine.
type NormalizedDocument struct {
	Text     string
	Language string
	// Duration is the media runtime for transcribed items, zero for posts.
	Duration time.Duration
	// Length is the rune count of Text.
	Length int
}
