package outcome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMarketUnavailable indicates the market data service is unreachable.
var ErrMarketUnavailable = errors.New("market data unavailable")

// Snapshot is the observed price window for one asset between a
// prediction's creation and its evaluation.
type Snapshot struct {
	Symbol string
	// Open is the price at the start of the window.
	Open float64
	// High and Low bound the prices reached inside the window.
	High float64
	Low  float64
	// Close is the price at the end of the window.
	Close float64
	AsOf  time.Time
}

// MarketDataSource supplies observed prices for grading.
type MarketDataSource interface {
	// Window returns the price window for symbol between from and to.
	Window(ctx context.Context, symbol string, from, to time.Time) (Snapshot, error)

	// Price returns the current price for symbol. Used to capture a
	// prediction's baseline at creation time.
	Price(ctx context.Context, symbol string) (float64, error)
}

const marketRequestTimeout = 15 * time.Second

// HTTPMarketSource is the market data service client.
type HTTPMarketSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPMarketSource creates a market data client for the given base URL.
func NewHTTPMarketSource(baseURL string) *HTTPMarketSource {
	return &HTTPMarketSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: marketRequestTimeout},
	}
}

type windowResponse struct {
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	AsOf   time.Time `json:"as_of"`
}

type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Window implements MarketDataSource.
func (s *HTTPMarketSource) Window(ctx context.Context, symbol string, from, to time.Time) (Snapshot, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))

	var body windowResponse
	if err := s.get(ctx, "/v1/window?"+q.Encode(), &body); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Symbol: body.Symbol,
		Open:   body.Open,
		High:   body.High,
		Low:    body.Low,
		Close:  body.Close,
		AsOf:   body.AsOf,
	}, nil
}

// Price implements MarketDataSource.
func (s *HTTPMarketSource) Price(ctx context.Context, symbol string) (float64, error) {
	var body priceResponse
	if err := s.get(ctx, "/v1/price?symbol="+url.QueryEscape(symbol), &body); err != nil {
		return 0, err
	}
	return body.Price, nil
}

func (s *HTTPMarketSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarketUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("market data: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode market response: %w", err)
	}
	return nil
}
