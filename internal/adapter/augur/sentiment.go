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

// maxSentimentContext bounds how many chunks the prompt carries.
const maxSentimentContext = 10

var sentimentFormat = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"score": map[string]any{
			"type":    "number",
			"minimum": -1,
			"maximum": 1,
		},
		"key_factors": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"confidence": map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
	},
	"required": []string{"score", "key_factors", "confidence"},
}

// SentimentClient scores retrieved news context with the sidecar's chat
// model constrained to a structured reply.
type SentimentClient struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

func NewSentimentClient(baseURL, model string, timeout time.Duration, logger *slog.Logger, client *http.Client) *SentimentClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &SentimentClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		logger:  logger,
	}
}

type sentimentReply struct {
	Score      float64  `json:"score"`
	KeyFactors []string `json:"key_factors"`
	Confidence float64  `json:"confidence"`
}

func (c *SentimentClient) Analyze(ctx context.Context, subject string, chunks []domain.Chunk) (domain.SentimentVerdict, error) {
	if len(chunks) == 0 {
		return domain.NeutralSentiment(), nil
	}

	start := time.Now()

	var reply sentimentReply
	if err := chatJSON(ctx, c.Client, c.BaseURL, c.Model, sentimentPrompt(subject, chunks), sentimentFormat, &reply); err != nil {
		return domain.SentimentVerdict{}, fmt.Errorf("failed to analyze sentiment: %w", err)
	}

	score := domain.ClampScore(reply.Score)
	verdict := domain.SentimentVerdict{
		Score:      score,
		Label:      domain.SentimentLabelFromScore(score),
		KeyFactors: reply.KeyFactors,
		Confidence: reply.Confidence,
	}

	c.logger.Debug("sentiment_analysis_completed",
		slog.String("subject", subject),
		slog.Float64("score", verdict.Score),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return verdict, nil
}

func sentimentPrompt(subject string, chunks []domain.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a financial news sentiment analyst. Score the overall sentiment for %s from the headlines below on a scale from -1.0 (very bearish) to 1.0 (very bullish). List the key factors driving the score.\n\n", subject)
	limit := len(chunks)
	if limit > maxSentimentContext {
		limit = maxSentimentContext
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, chunks[i].Ref.Title, chunks[i].Ref.SourceName, chunks[i].Text)
	}
	return b.String()
}

var _ domain.SentimentAnalyst = (*SentimentClient)(nil)
