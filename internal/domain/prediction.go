package domain

import "time"

// Direction is the predicted market direction.
type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
	DirectionNeutral Direction = "NEUTRAL"
)

var validDirections = map[Direction]bool{
	DirectionBullish: true,
	DirectionBearish: true,
	DirectionNeutral: true,
}

// IsValid reports whether d is a recognised direction.
func (d Direction) IsValid() bool {
	return validDirections[d]
}

// AssetType classifies the predicted asset.
type AssetType string

const (
	AssetCrypto    AssetType = "CRYPTO"
	AssetStock     AssetType = "STOCK"
	AssetIndex     AssetType = "INDEX"
	AssetCommodity AssetType = "COMMODITY"
	AssetForex     AssetType = "FOREX"
	// AssetUnknown flags symbols outside the known whitelist. The
	// prediction is still stored.
	AssetUnknown AssetType = "UNKNOWN"
)

var knownAssetTypes = map[AssetType]bool{
	AssetCrypto:    true,
	AssetStock:     true,
	AssetIndex:     true,
	AssetCommodity: true,
	AssetForex:     true,
}

// IsKnown reports whether t is in the whitelist of known asset types.
func (t AssetType) IsKnown() bool {
	return knownAssetTypes[t]
}

// Outcome is the grading state of a prediction. It starts PENDING and is
// monotonic: once terminal, the automated validator never changes it again.
type Outcome string

const (
	OutcomePending          Outcome = "PENDING"
	OutcomeCorrect          Outcome = "CORRECT"
	OutcomeIncorrect        Outcome = "INCORRECT"
	OutcomePartiallyCorrect Outcome = "PARTIALLY_CORRECT"
)

// IsTerminal reports whether o is a terminal grading state.
func (o Outcome) IsTerminal() bool {
	return o == OutcomeCorrect || o == OutcomeIncorrect || o == OutcomePartiallyCorrect
}

// SourceMetadata records where a prediction came from. Required on every
// pipeline-produced prediction.
type SourceMetadata struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Prediction is a structured market prediction extracted from a
// forecaster's content.
type Prediction struct {
	ID             string     `db:"id"              json:"id"`
	ForecasterID   string     `db:"forecaster_id"   json:"forecaster_id"`
	AssetSymbol    string     `db:"asset_symbol"    json:"asset_symbol"`
	AssetType      AssetType  `db:"asset_type"      json:"asset_type"`
	PredictionText string     `db:"prediction_text" json:"prediction_text"`
	Direction      Direction  `db:"direction"       json:"direction"`
	Confidence     float64    `db:"confidence"      json:"confidence"`
	BaselinePrice  *float64   `db:"baseline_price"  json:"baseline_price,omitempty"`
	TargetPrice    *float64   `db:"target_price"    json:"target_price,omitempty"`
	TargetDate     *time.Time `db:"target_date"     json:"target_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	Outcome        Outcome    `db:"outcome"         json:"outcome"`
	Source         SourceMetadata `db:"-"           json:"source"`
}

// PredictionCandidate is an unvalidated extraction output before
// canonicalization. Field values are verbatim from the model.
type PredictionCandidate struct {
	AssetSymbol    string     `json:"asset_symbol"`
	AssetType      string     `json:"asset_type"`
	Direction      string     `json:"direction"`
	Confidence     float64    `json:"confidence"`
	TargetPrice    *float64   `json:"target_price"`
	TargetDate     *time.Time `json:"target_date"`
	PredictionText string     `json:"prediction_text"`
}
