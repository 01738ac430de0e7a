// Package transcribe converts collected content into a uniform text
// document: speech-to-text for audio/video items, whitespace and markup
// normalization for text-native posts.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

// Transcriber turns a media URL into text.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL string) (Transcript, error)
}

// Transcript is the speech-to-text result for one media item.
type Transcript struct {
	Text     string
	Language string
	Duration time.Duration
}

// Normalizer produces NormalizedDocuments from content items.
type Normalizer struct {
	transcriber Transcriber
	itemTimeout time.Duration
	log         logger.Logger
}

// NewNormalizer creates a Normalizer. itemTimeout bounds one item's
// transcription; exceeding it is reported as a transcription failure, not a
// hang.
func NewNormalizer(transcriber Transcriber, itemTimeout time.Duration, log logger.Logger) *Normalizer {
	if itemTimeout <= 0 {
		itemTimeout = 10 * time.Minute
	}
	return &Normalizer{
		transcriber: transcriber,
		itemTimeout: itemTimeout,
		log:         log,
	}
}

// Normalize converts one item. Failures are item-level: the caller skips
// and counts them without failing the surrounding job.
func (n *Normalizer) Normalize(ctx context.Context, item domain.ContentItem) (domain.NormalizedDocument, error) {
	switch item.Kind {
	case domain.MediaPost:
		text := NormalizeText(item.Text)
		if text == "" {
			text = NormalizeText(item.Title + " " + item.Description)
		}
		return domain.NormalizedDocument{
			Text:   text,
			Length: utf8.RuneCountInString(text),
		}, nil

	case domain.MediaVideo:
		return n.normalizeVideo(ctx, item)

	default:
		return domain.NormalizedDocument{}, fmt.Errorf("%w: media kind %q", domain.ErrUnsupportedMedia, item.Kind)
	}
}

func (n *Normalizer) normalizeVideo(ctx context.Context, item domain.ContentItem) (domain.NormalizedDocument, error) {
	if n.transcriber == nil {
		return domain.NormalizedDocument{}, fmt.Errorf("%w: no transcriber configured", domain.ErrUnsupportedMedia)
	}
	if item.MediaURL == "" {
		return domain.NormalizedDocument{}, fmt.Errorf("%w: item %s has no media url", domain.ErrUnsupportedMedia, item.ExternalID)
	}

	itemCtx, cancel := context.WithTimeout(ctx, n.itemTimeout)
	defer cancel()

	start := time.Now()
	transcript, err := n.transcriber.Transcribe(itemCtx, item.MediaURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.NormalizedDocument{}, fmt.Errorf("%w: item %s exceeded %s", domain.ErrTranscriptionFailed, item.ExternalID, n.itemTimeout)
		}
		return domain.NormalizedDocument{}, fmt.Errorf("%w: item %s: %w", domain.ErrTranscriptionFailed, item.ExternalID, err)
	}

	text := NormalizeText(transcript.Text)
	if text == "" {
		return domain.NormalizedDocument{}, fmt.Errorf("%w: item %s produced empty transcript", domain.ErrTranscriptionFailed, item.ExternalID)
	}

	n.log.Debug("transcribed media item",
		logger.String("external_id", item.ExternalID),
		logger.Duration("media_duration", transcript.Duration),
		logger.Duration("took", time.Since(start)),
	)

	return domain.NormalizedDocument{
		Text:     text,
		Language: transcript.Language,
		Duration: transcript.Duration,
		Length:   utf8.RuneCountInString(text),
	}, nil
}

// NormalizeText strips markup and collapses whitespace into single spaces.
func NormalizeText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Social post bodies occasionally carry HTML fragments; reduce them
	// to their visible text before whitespace folding.
	if strings.ContainsAny(raw, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			raw = doc.Text()
		}
	}

	return strings.Join(strings.Fields(raw), " ")
}
