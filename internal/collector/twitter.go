package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

const twitterRequestTimeout = 15 * time.Second

// TwitterSource fetches account timelines through the Twitter API v2.
type TwitterSource struct {
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewTwitterSource creates a Twitter source. baseURL defaults to the public
// v2 endpoint when empty.
func NewTwitterSource(baseURL, bearerToken string) *TwitterSource {
	if baseURL == "" {
		baseURL = "https://api.twitter.com/2"
	}
	return &TwitterSource{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: twitterRequestTimeout},
	}
}

// Type implements Source.
func (s *TwitterSource) Type() domain.ChannelType { return domain.ChannelTwitter }

type tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	AuthorID  string    `json:"author_id"`
}

type twitterTimelineResponse struct {
	Data []tweet `json:"data"`
}

type twitterTweetResponse struct {
	Data tweet `json:"data"`
}

// Fetch implements Source. The channel's external ID is the account's user
// ID.
func (s *TwitterSource) Fetch(ctx context.Context, ch domain.Channel, since time.Time) ([]domain.ContentItem, error) {
	q := url.Values{}
	q.Set("start_time", since.UTC().Format(time.RFC3339))
	q.Set("max_results", "100")
	q.Set("tweet.fields", "created_at,author_id")

	path := fmt.Sprintf("/users/%s/tweets?%s", ch.ExternalID, q.Encode())

	var resp twitterTimelineResponse
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(resp.Data))
	for _, tw := range resp.Data {
		items = append(items, s.toItem(tw, ch.ID))
	}
	return items, nil
}

// Resolve implements Source for single tweet URLs.
func (s *TwitterSource) Resolve(ctx context.Context, rawURL string) (domain.ContentItem, error) {
	tweetID, err := parseTweetID(rawURL)
	if err != nil {
		return domain.ContentItem{}, err
	}

	var resp twitterTweetResponse
	path := "/tweets/" + tweetID + "?tweet.fields=created_at,author_id"
	if err := s.get(ctx, path, &resp); err != nil {
		return domain.ContentItem{}, err
	}
	if resp.Data.ID == "" {
		return domain.ContentItem{}, fmt.Errorf("tweet %s not found", tweetID)
	}

	return s.toItem(resp.Data, ""), nil
}

func (s *TwitterSource) toItem(tw tweet, channelID string) domain.ContentItem {
	return domain.ContentItem{
		ExternalID:  tw.ID,
		ChannelID:   channelID,
		ChannelType: domain.ChannelTwitter,
		Kind:        domain.MediaPost,
		Title:       "",
		Description: tw.Text,
		Text:        tw.Text,
		SourceURL:   "https://twitter.com/i/status/" + tw.ID,
		PublishedAt: tw.CreatedAt,
	}
}

func (s *TwitterSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.bearerToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twitter api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twitter api: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode twitter response: %w", err)
	}
	return nil
}

// parseTweetID pulls the tweet ID from status URLs.
func parseTweetID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "status" && i+1 < len(parts) {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("no tweet id in url %s", rawURL)
}
