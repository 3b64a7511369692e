package domain

import "math"

// Recommendation values returned by the analysis API.
const (
	RecommendBuy     = "BUY"
	RecommendCaution = "CAUTION"
	RecommendAvoid   = "AVOID"
)

// Scores holds the per-category scores of a token, 0-100 each. Overall is
// a pointer so an API-supplied zero is distinguishable from an omitted
// field.
type Scores struct {
	Overall   *float64 `json:"overall"`
	Liquidity float64  `json:"liquidity"`
	Volume    float64  `json:"volume"`
	Holders   float64  `json:"holders"`
}

// TokenAnalysis is the read-only contract of the MemeIQ analysis API.
// The API owns every field; we only decode and render.
type TokenAnalysis struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Verified bool   `json:"verified"`

	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"priceChange24h"`
	MarketCap      float64 `json:"marketCap"`
	FDV            float64 `json:"fdv"`

	LiquidityUSD float64 `json:"liquidityUsd"`
	LPLockedPct  float64 `json:"lpLockedPct"`
	McapLiqRatio float64 `json:"mcapLiqRatio"`

	Volume24hUSD float64 `json:"volume24hUsd"`
	WashRisk     string  `json:"washRisk"`

	Holders       int64   `json:"holders"`
	Top10Pct      float64 `json:"top10Pct"`
	Concentration string  `json:"concentration"`

	Recommendation string  `json:"recommendation"`
	Scores         *Scores `json:"scores"`
	Summary        string  `json:"summary"`
}

// OverallScore returns the API-supplied overall score, or the rounded mean
// of the three sub-scores when the API omitted it. A supplied zero is a
// real score, not a fallback trigger.
func (t *TokenAnalysis) OverallScore() int {
	if t.Scores == nil {
		return 0
	}
	if t.Scores.Overall != nil {
		return int(math.Round(*t.Scores.Overall))
	}
	mean := (t.Scores.Liquidity + t.Scores.Volume + t.Scores.Holders) / 3
	return int(math.Round(mean))
}

// Normalize applies defaults for genuinely optional fields so rendering
// never has to guard against absent data.
func (t *TokenAnalysis) Normalize() {
	if t.Name == "" {
		t.Name = "Unknown"
	}
	if t.Symbol == "" {
		t.Symbol = "???"
	}
	if t.Recommendation == "" {
		t.Recommendation = RecommendAvoid
	}
	if t.Scores == nil {
		t.Scores = &Scores{}
	}
}

// TrendingToken is one entry of the trending feed.
type TrendingToken struct {
	Address        string  `json:"address"`
	Name           string  `json:"name"`
	Symbol         string  `json:"symbol"`
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"priceChange24h"`
	Volume24hUSD   float64 `json:"volume24hUsd"`
}
