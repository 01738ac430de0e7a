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

const youtubeRequestTimeout = 30 * time.Second

// YouTubeSource fetches channel uploads through the YouTube Data API.
type YouTubeSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewYouTubeSource creates a YouTube source. baseURL defaults to the public
// Data API endpoint when empty.
func NewYouTubeSource(baseURL, apiKey string) *YouTubeSource {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/youtube/v3"
	}
	return &YouTubeSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: youtubeRequestTimeout},
	}
}

// Type implements Source.
func (s *YouTubeSource) Type() domain.ChannelType { return domain.ChannelYouTube }

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

type youtubeVideosResponse struct {
	Items []struct {
		ID      string         `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

type youtubeSnippet struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Fetch implements Source. It lists videos published on the channel since
// the given time.
func (s *YouTubeSource) Fetch(ctx context.Context, ch domain.Channel, since time.Time) ([]domain.ContentItem, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("channelId", ch.ExternalID)
	q.Set("type", "video")
	q.Set("order", "date")
	q.Set("maxResults", "50")
	q.Set("publishedAfter", since.UTC().Format(time.RFC3339))
	q.Set("key", s.apiKey)

	var resp youtubeSearchResponse
	if err := s.get(ctx, "/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(resp.Items))
	for _, v := range resp.Items {
		if v.ID.VideoID == "" {
			continue
		}
		items = append(items, s.toItem(v.ID.VideoID, ch.ID, v.Snippet))
	}
	return items, nil
}

// Resolve implements Source for single watch URLs.
func (s *YouTubeSource) Resolve(ctx context.Context, rawURL string) (domain.ContentItem, error) {
	videoID, err := parseVideoID(rawURL)
	if err != nil {
		return domain.ContentItem{}, err
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("id", videoID)
	q.Set("key", s.apiKey)

	var resp youtubeVideosResponse
	if err := s.get(ctx, "/videos?"+q.Encode(), &resp); err != nil {
		return domain.ContentItem{}, err
	}
	if len(resp.Items) == 0 {
		return domain.ContentItem{}, fmt.Errorf("video %s not found", videoID)
	}

	return s.toItem(resp.Items[0].ID, "", resp.Items[0].Snippet), nil
}

func (s *YouTubeSource) toItem(videoID, channelID string, sn youtubeSnippet) domain.ContentItem {
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	return domain.ContentItem{
		ExternalID:  videoID,
		ChannelID:   channelID,
		ChannelType: domain.ChannelYouTube,
		Kind:        domain.MediaVideo,
		Title:       sn.Title,
		Description: sn.Description,
		MediaURL:    watchURL,
		SourceURL:   watchURL,
		PublishedAt: sn.PublishedAt,
	}
}

func (s *YouTubeSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("youtube api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube api: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode youtube response: %w", err)
	}
	return nil
}

// parseVideoID pulls the video ID out of watch and short-link URLs.
func parseVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	if strings.Contains(u.Host, "youtu.be") {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
	}
	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}
	if strings.HasPrefix(u.Path, "/shorts/") {
		if id := strings.TrimPrefix(u.Path, "/shorts/"); id != "" {
			return strings.Trim(id, "/"), nil
		}
	}

	return "", fmt.Errorf("no video id in url %s", rawURL)
}
