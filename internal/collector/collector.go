// Package collector retrieves candidate content items from external content
// sources, applying the keyword-filter policy for secondary channels.
package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/registry"
)

// Source fetches content from one external platform.
type Source interface {
	// Type identifies the platform this source serves.
	Type() domain.ChannelType

	// Fetch returns all items published on the channel since the given
	// time. Implementations perform no keyword filtering.
	Fetch(ctx context.Context, ch domain.Channel, since time.Time) ([]domain.ContentItem, error)

	// Resolve fetches the single item a public URL points at. Used for
	// single-source extraction requests.
	Resolve(ctx context.Context, url string) (domain.ContentItem, error)
}

// Collector dispatches collection to the registered sources and applies the
// secondary-channel keyword filter. It performs no deduplication; callers
// dedupe via ContentItem.IdempotencyKey.
type Collector struct {
	sources  map[domain.ChannelType]Source
	limiters map[domain.ChannelType]*rate.Limiter
	log      logger.Logger
}

// New creates a Collector over the given sources. requestsPerMin bounds
// calls per source type to respect provider rate limits.
func New(sources []Source, requestsPerMin map[domain.ChannelType]int, log logger.Logger) *Collector {
	c := &Collector{
		sources:  make(map[domain.ChannelType]Source, len(sources)),
		limiters: make(map[domain.ChannelType]*rate.Limiter, len(sources)),
		log:      log,
	}
	for _, s := range sources {
		c.sources[s.Type()] = s
		perMin := requestsPerMin[s.Type()]
		if perMin <= 0 {
			perMin = 60
		}
		c.limiters[s.Type()] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1)
	}
	return c
}

// Collect returns the channel's items published since the given time, in
// publish-timestamp order. For secondary channels an item is retained iff at
// least one effective keyword matches its title or description
// (case-insensitive substring). Source failures surface as
// domain.ErrSourceUnavailable.
func (c *Collector) Collect(ctx context.Context, ch domain.Channel, forecasterName string, since time.Time) ([]domain.ContentItem, error) {
	src, ok := c.sources[ch.Type]
	if !ok {
		return nil, fmt.Errorf("%w: no source registered for %s", domain.ErrSourceUnavailable, ch.Type)
	}

	if err := c.limiters[ch.Type].Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	items, err := src.Fetch(ctx, ch, since)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s channel %s: %w", domain.ErrSourceUnavailable, ch.Type, ch.ExternalID, err)
	}

	keywords := registry.ResolveEffectiveKeywords(ch, forecasterName)
	if len(keywords) > 0 {
		items = filterByKeywords(items, keywords)
	}

	// Publish order keeps baseline price capture consistent within a unit.
	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.Before(items[j].PublishedAt)
	})

	c.log.Debug("collected channel content",
		logger.String("channel_id", ch.ID),
		logger.String("source", string(ch.Type)),
		logger.Int("items", len(items)),
		logger.Int("keywords", len(keywords)),
	)

	return items, nil
}

// Resolve fetches the single content item behind a URL on the given source
// type.
func (c *Collector) Resolve(ctx context.Context, sourceType domain.ChannelType, url string) (domain.ContentItem, error) {
	src, ok := c.sources[sourceType]
	if !ok {
		return domain.ContentItem{}, fmt.Errorf("%w: no source registered for %s", domain.ErrSourceUnavailable, sourceType)
	}

	if err := c.limiters[sourceType].Wait(ctx); err != nil {
		return domain.ContentItem{}, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	item, err := src.Resolve(ctx, url)
	if err != nil {
		return domain.ContentItem{}, fmt.Errorf("%w: resolve %s: %w", domain.ErrSourceUnavailable, url, err)
	}
	return item, nil
}

// filterByKeywords keeps items whose title or description contains at least
// one keyword. Matching is case-insensitive and partial-word.
func filterByKeywords(items []domain.ContentItem, keywords []string) []domain.ContentItem {
	kept := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		haystack := strings.ToLower(item.Title + " " + item.Description)
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				kept = append(kept, item)
				break
			}
		}
	}
	return kept
}
