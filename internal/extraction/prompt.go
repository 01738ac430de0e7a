package extraction

import (
	"fmt"
	"time"
)

// systemPrompt pins the model to the response schema. The engine rejects
// and retries anything that does not parse as the JSON array below.
const systemPrompt = `You extract market predictions from transcripts and social posts by financial forecasters.

Respond with ONLY a JSON array, no prose. Each element:
{
  "asset_symbol": "BTC",            // ticker-style symbol, uppercase
  "asset_type": "CRYPTO",           // CRYPTO | STOCK | INDEX | COMMODITY | FOREX
  "direction": "BULLISH",           // BULLISH | BEARISH | NEUTRAL
  "confidence": 85,                 // 0-100, how certain the speaker sounds
  "target_price": 150000,           // number or null
  "target_date": "2025-12-31",      // ISO date or null
  "prediction_text": "one sentence restating the prediction"
}

Only include genuine forward-looking market predictions. Return [] when the
text contains none. Never invent targets the speaker did not state.`

// buildPrompt frames one normalized document for extraction.
func buildPrompt(text string, publishedAt time.Time) string {
	return fmt.Sprintf(
		"Content published on %s.\n\nExtract every market prediction from the following text:\n\n%s",
		publishedAt.UTC().Format("2006-01-02"), text,
	)
}
