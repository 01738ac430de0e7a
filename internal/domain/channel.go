// Package domain contains the core types for the prediction extraction and
// validation pipeline.
package domain

import "time"

// ChannelType identifies the external platform a channel lives on.
type ChannelType string

const (
	// ChannelYouTube is a YouTube channel.
	ChannelYouTube ChannelType = "YOUTUBE"
	// ChannelTwitter is a Twitter/X account.
	ChannelTwitter ChannelType = "TWITTER"
)

var validChannelTypes = map[ChannelType]bool{
	ChannelYouTube: true,
	ChannelTwitter: true,
}

// IsValid reports whether t is a recognised channel type.
func (t ChannelType) IsValid() bool {
	return validChannelTypes[t]
}

// SourceKey returns the lowercase provenance value stored on predictions
// produced from this channel type ("youtube", "twitter").
func (t ChannelType) SourceKey() string {
	switch t {
	case ChannelYouTube:
		return "youtube"
	case ChannelTwitter:
		return "twitter"
	default:
		return "unknown"
	}
}

// Forecaster is a tracked author of market predictions. Created and edited
// by the admin surface; the pipeline only reads it and attaches provenance.
type Forecaster struct {
	ID            string    `db:"id"             json:"id"`
	Name          string    `db:"name"           json:"name"`
	Slug          string    `db:"slug"           json:"slug"`
	Verified      bool      `db:"verified"       json:"verified"`
	ExpertiseTags []string  `db:"expertise_tags" json:"expertise_tags,omitempty"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
}

// Channel is a per-forecaster content source configuration.
//
// Primary channels are ingested whole and carry no keyword list. Secondary
// channels are ingested only when content matches the effective keyword set
// (configured keywords plus the forecaster's name).
type Channel struct {
	ID           string      `db:"id"            json:"id"`
	ForecasterID string      `db:"forecaster_id" json:"forecaster_id"`
	Type         ChannelType `db:"type"          json:"type"`
	ExternalID   string      `db:"external_id"   json:"external_id"`
	IsPrimary    bool        `db:"is_primary"    json:"is_primary"`
	Enabled      bool        `db:"enabled"       json:"enabled"`
	Keywords     []string    `db:"keywords"      json:"keywords,omitempty"`
	CreatedAt    time.Time   `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"    json:"updated_at"`
}
