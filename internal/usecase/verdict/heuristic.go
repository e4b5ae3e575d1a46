package verdict

import (
	"fmt"

	"market-intel/internal/domain"
)

// Heuristic blend weights: sentiment carries more signal than the technical
// picture when no decision model is available.
const (
	heuristicSentimentWeight = 0.6
	heuristicTechnicalWeight = 0.4
	heuristicConfidence      = 0.5
)

// HeuristicDecision is the deterministic fallback used when the decision
// adapter fails: a fixed-weight blend of sentiment and technical scores.
func HeuristicDecision(sentiment domain.SentimentVerdict, technical domain.TechnicalVerdict) domain.DecisionVerdict {
	final := heuristicSentimentWeight*sentiment.Score + heuristicTechnicalWeight*technical.Score
	return domain.DecisionVerdict{
		Recommendation: domain.RecommendationFromScore(final),
		Confidence:     heuristicConfidence,
		Reasoning: fmt.Sprintf("Weighted blend of sentiment (%.2f) and technical (%.2f) scores",
			sentiment.Score, technical.Score),
		PrimaryDriver: "Heuristic",
	}
}
