package domain

import "time"

// Recommendation is the tradable action of a verdict.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationHold Recommendation = "HOLD"
	RecommendationSell Recommendation = "SELL"
)

// SentimentLabel classifies a sentiment score.
type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "BULLISH"
	SentimentNeutral SentimentLabel = "NEUTRAL"
	SentimentBearish SentimentLabel = "BEARISH"
)

// RiskLevel classifies assessed risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// scoreBand is the neutral zone: scores within it map to HOLD / NEUTRAL.
const scoreBand = 0.3

// RecommendationFromScore maps a combined score to an action.
func RecommendationFromScore(score float64) Recommendation {
	switch {
	case score > scoreBand:
		return RecommendationBuy
	case score < -scoreBand:
		return RecommendationSell
	default:
		return RecommendationHold
	}
}

// SentimentLabelFromScore maps a sentiment score to its label.
func SentimentLabelFromScore(score float64) SentimentLabel {
	switch {
	case score > scoreBand:
		return SentimentBullish
	case score < -scoreBand:
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// ClampScore bounds a model-reported score to [-1, 1].
func ClampScore(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// SentimentVerdict is the structured output of the sentiment analyst.
type SentimentVerdict struct {
	Score      float64        `json:"score"`
	Label      SentimentLabel `json:"label"`
	KeyFactors []string       `json:"key_factors"`
	Confidence float64        `json:"confidence"`
}

// TechnicalVerdict is the structured output of the technical analyst.
type TechnicalVerdict struct {
	Signal     Recommendation     `json:"signal"`
	Score      float64            `json:"technical_score"`
	Indicators map[string]float64 `json:"indicators"`
	KeySignals []string           `json:"key_signals"`
}

// RiskVerdict is the structured output of the risk analyst.
type RiskVerdict struct {
	Level                 RiskLevel `json:"risk_level"`
	Score                 float64   `json:"risk_score"`
	VolatilityDaily       float64   `json:"volatility_daily"`
	VolatilityAnnualized  float64   `json:"volatility_annualized"`
	SuggestedPositionSize float64   `json:"suggested_position_size"`
	StopLossPct           float64   `json:"stop_loss_pct"`
}

// DecisionVerdict is the structured output of the decision maker.
// Confidence is in [0, 1]; the assembled verdict rescales to [0, 100].
type DecisionVerdict struct {
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	PrimaryDriver  string         `json:"primary_driver"`
}

// Verdict is the assembled per-subject output, served synchronously and
// pushed to subscribers unchanged.
type Verdict struct {
	Subject        string         `json:"subject"`
	Timestamp      time.Time      `json:"timestamp"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	SentimentScore float64        `json:"sentiment_score"`
	SentimentLabel SentimentLabel `json:"sentiment_label"`
	TechnicalScore float64        `json:"technical_score"`
	RiskScore      float64        `json:"risk_score"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	PrimaryDriver  string         `json:"primary_driver"`
	KeyFactors     []string       `json:"key_factors"`
	Sources        []ArticleRef   `json:"sources"`
	LatencyMS      int64          `json:"latency_ms"`
}

// SubjectState is the latest published score for a subject.
type SubjectState struct {
	Subject     string         `json:"subject"`
	Score       float64        `json:"score"`
	Label       SentimentLabel `json:"label"`
	LastUpdated time.Time      `json:"last_updated"`
}

// NeutralSentiment is the verdict adapters emit for empty input.
func NeutralSentiment() SentimentVerdict {
	return SentimentVerdict{
		Score:      0,
		Label:      SentimentNeutral,
		KeyFactors: []string{"No recent news available"},
		Confidence: 0.3,
	}
}

// NeutralTechnical is the verdict emitted when no price data is available.
func NeutralTechnical() TechnicalVerdict {
	return TechnicalVerdict{
		Signal:     RecommendationHold,
		Score:      0,
		Indicators: map[string]float64{},
		KeySignals: []string{"No price data available"},
	}
}

// NeutralRisk is the verdict emitted when volatility cannot be measured.
func NeutralRisk() RiskVerdict {
	return RiskVerdict{
		Level:                 RiskMedium,
		Score:                 0.5,
		VolatilityDaily:       0.02,
		VolatilityAnnualized:  0.02 * annualizationFactor,
		SuggestedPositionSize: 0.03,
		StopLossPct:           0.04,
	}
}

// annualizationFactor converts daily volatility to annualized (√252 trading days).
const annualizationFactor = 15.874507866387544
