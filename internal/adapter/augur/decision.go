package augur

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"market-intel/internal/domain"
)

var decisionFormat = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"recommendation": map[string]any{
			"type": "string",
			"enum": []string{"BUY", "HOLD", "SELL"},
		},
		"confidence": map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
		"reasoning": map[string]any{
			"type": "string",
		},
		"primary_driver": map[string]any{
			"type": "string",
		},
	},
	"required": []string{"recommendation", "confidence", "reasoning", "primary_driver"},
}

// DecisionClient combines the upstream verdicts into a final recommendation
// via the sidecar's chat model.
type DecisionClient struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

func NewDecisionClient(baseURL, model string, timeout time.Duration, logger *slog.Logger, client *http.Client) *DecisionClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &DecisionClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		logger:  logger,
	}
}

func (c *DecisionClient) Decide(ctx context.Context, subject string, sentiment domain.SentimentVerdict, technical domain.TechnicalVerdict, risk domain.RiskVerdict) (domain.DecisionVerdict, error) {
	start := time.Now()

	var reply domain.DecisionVerdict
	if err := chatJSON(ctx, c.Client, c.BaseURL, c.Model, decisionPrompt(subject, sentiment, technical, risk), decisionFormat, &reply); err != nil {
		return domain.DecisionVerdict{}, fmt.Errorf("failed to decide: %w", err)
	}

	switch reply.Recommendation {
	case domain.RecommendationBuy, domain.RecommendationHold, domain.RecommendationSell:
	default:
		return domain.DecisionVerdict{}, fmt.Errorf("model returned invalid recommendation %q", reply.Recommendation)
	}
	if reply.Confidence < 0 {
		reply.Confidence = 0
	}
	if reply.Confidence > 1 {
		reply.Confidence = 1
	}

	c.logger.Debug("decision_completed",
		slog.String("subject", subject),
		slog.String("recommendation", string(reply.Recommendation)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return reply, nil
}

func decisionPrompt(subject string, sentiment domain.SentimentVerdict, technical domain.TechnicalVerdict, risk domain.RiskVerdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a portfolio decision maker. Combine the analyst verdicts below into a final BUY, HOLD or SELL recommendation for %s. Name the single most influential input as primary_driver.\n\n", subject)
	fmt.Fprintf(&b, "Sentiment: score %.2f (%s), confidence %.2f, factors: %s\n",
		sentiment.Score, sentiment.Label, sentiment.Confidence, strings.Join(sentiment.KeyFactors, "; "))
	fmt.Fprintf(&b, "Technical: signal %s, score %.2f, signals: %s\n",
		technical.Signal, technical.Score, strings.Join(technical.KeySignals, "; "))
	fmt.Fprintf(&b, "Risk: level %s, score %.2f, daily volatility %.4f, suggested position %.2f%%\n",
		risk.Level, risk.Score, risk.VolatilityDaily, risk.SuggestedPositionSize*100)
	return b.String()
}

var _ domain.DecisionMaker = (*DecisionClient)(nil)
