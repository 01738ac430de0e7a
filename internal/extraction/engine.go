// Package extraction turns normalized documents into structured prediction
// candidates via a language model, then validates and canonicalizes each
// candidate before it leaves this package.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

// rawCandidate mirrors the model's response schema. Confidence arrives on a
// 0-100 scale; dates as ISO strings.
type rawCandidate struct {
	AssetSymbol    string   `json:"asset_symbol"`
	AssetType      string   `json:"asset_type"`
	Direction      string   `json:"direction"`
	Confidence     float64  `json:"confidence"`
	TargetPrice    *float64 `json:"target_price"`
	TargetDate     *string  `json:"target_date"`
	PredictionText string   `json:"prediction_text"`
}

// Engine extracts prediction candidates from documents.
type Engine struct {
	model       ModelClient
	maxAttempts int
	log         logger.Logger
}

// NewEngine creates an extraction engine. maxAttempts bounds retries on
// malformed model responses per document.
func NewEngine(model ModelClient, maxAttempts int, log logger.Logger) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Engine{
		model:       model,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Extract returns zero or more canonicalized candidates for one document.
// A model that keeps producing unparseable output exhausts the retry budget
// and the document fails with domain.ErrExtractionFailed; the surrounding
// job is unaffected.
func (e *Engine) Extract(ctx context.Context, doc domain.NormalizedDocument, publishedAt time.Time) ([]domain.PredictionCandidate, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	prompt := buildPrompt(doc.Text, publishedAt)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		response, err := e.model.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: model call: %w", domain.ErrExtractionFailed, err)
		}

		raws, parseErr := parseResponse(response)
		if parseErr != nil {
			lastErr = parseErr
			e.log.Warn("malformed extraction response",
				logger.Int("attempt", attempt),
				logger.Error(parseErr),
			)
			continue
		}

		return canonicalizeAll(raws), nil
	}

	return nil, fmt.Errorf("%w: malformed response after %d attempts: %w", domain.ErrExtractionFailed, e.maxAttempts, lastErr)
}

// parseResponse decodes the model output, tolerating prose around the JSON
// array.
func parseResponse(response string) ([]rawCandidate, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var raws []rawCandidate
	if err := json.Unmarshal([]byte(response[start:end+1]), &raws); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return raws, nil
}

func canonicalizeAll(raws []rawCandidate) []domain.PredictionCandidate {
	candidates := make([]domain.PredictionCandidate, 0, len(raws))
	for _, raw := range raws {
		if c, ok := canonicalize(raw); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// canonicalize applies the validation rules to one raw candidate. It
// returns false for candidates with neither a prediction sentence nor an
// asset symbol. Target price and date are kept verbatim; plausibility is a
// downstream review concern.
func canonicalize(raw rawCandidate) (domain.PredictionCandidate, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(raw.AssetSymbol))
	text := strings.TrimSpace(raw.PredictionText)
	if symbol == "" && text == "" {
		return domain.PredictionCandidate{}, false
	}

	c := domain.PredictionCandidate{
		AssetSymbol:    symbol,
		AssetType:      string(canonicalAssetType(raw.AssetType)),
		Direction:      string(canonicalDirection(raw.Direction)),
		Confidence:     canonicalConfidence(raw.Confidence),
		TargetPrice:    raw.TargetPrice,
		PredictionText: text,
	}

	if raw.TargetDate != nil {
		if ts, err := parseTargetDate(*raw.TargetDate); err == nil {
			c.TargetDate = &ts
		}
	}

	return c, true
}

// canonicalConfidence maps the model's 0-100 scale into [0,1], tolerating
// models that already answer on a 0-1 scale.
func canonicalConfidence(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func canonicalDirection(raw string) domain.Direction {
	d := domain.Direction(strings.ToUpper(strings.TrimSpace(raw)))
	if !d.IsValid() {
		return domain.DirectionNeutral
	}
	return d
}

func canonicalAssetType(raw string) domain.AssetType {
	t := domain.AssetType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.IsKnown() {
		return domain.AssetUnknown
	}
	return t
}

// parseTargetDate accepts ISO dates with or without a time component.
func parseTargetDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}
