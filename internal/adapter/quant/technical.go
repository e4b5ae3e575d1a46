package quant

import (
	"context"
	"fmt"
	"log/slog"

	"market-intel/internal/domain"
)

const (
	lookbackDays = 90
	rsiWindow    = 14

	rsiOversold   = 30.0
	rsiOverbought = 70.0

	signalBuyThreshold  = 0.2
	signalSellThreshold = -0.2
)

// TechnicalAnalyst derives a deterministic signal from daily price history:
// an RSI mean-reversion component and an SMA20/SMA50 trend component.
type TechnicalAnalyst struct {
	feed   domain.PriceFeed // nil downgrades every subject to neutral
	logger *slog.Logger
}

func NewTechnicalAnalyst(feed domain.PriceFeed, logger *slog.Logger) *TechnicalAnalyst {
	return &TechnicalAnalyst{feed: feed, logger: logger}
}

func (a *TechnicalAnalyst) Analyze(ctx context.Context, subject string) (domain.TechnicalVerdict, error) {
	if a.feed == nil {
		return domain.NeutralTechnical(), nil
	}

	candles, err := a.feed.Daily(ctx, subject, lookbackDays)
	if err != nil {
		return domain.TechnicalVerdict{}, fmt.Errorf("failed to fetch price history: %w", err)
	}
	if len(candles) == 0 {
		return domain.NeutralTechnical(), nil
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	price := closes[len(closes)-1]

	score := 0.0
	var signals []string
	indicators := map[string]float64{"price": price}

	if rsi, ok := RSI(closes, rsiWindow); ok {
		indicators["rsi"] = rsi
		switch {
		case rsi < rsiOversold:
			score += 0.4
			signals = append(signals, fmt.Sprintf("Oversold RSI (%.1f)", rsi))
		case rsi > rsiOverbought:
			score -= 0.4
			signals = append(signals, fmt.Sprintf("Overbought RSI (%.1f)", rsi))
		}
	}

	sma20, ok20 := SMA(closes, 20)
	sma50, ok50 := SMA(closes, 50)
	if ok20 {
		indicators["sma_20"] = sma20
	}
	if ok50 {
		indicators["sma_50"] = sma50
	}
	if ok20 && ok50 {
		switch {
		case price > sma20 && sma20 > sma50:
			score += 0.3
			signals = append(signals, "Bullish trend (Price > SMA20 > SMA50)")
		case price < sma20 && sma20 < sma50:
			score -= 0.3
			signals = append(signals, "Bearish trend (Price < SMA20 < SMA50)")
		}
	}

	score = domain.ClampScore(score)
	if len(signals) == 0 {
		signals = []string{"Neutral technicals"}
	}

	verdict := domain.TechnicalVerdict{
		Signal:     signalOf(score),
		Score:      score,
		Indicators: indicators,
		KeySignals: signals,
	}

	a.logger.Debug("technical_analysis_completed",
		slog.String("subject", subject),
		slog.String("signal", string(verdict.Signal)),
		slog.Float64("score", score),
		slog.Int("candles", len(candles)))

	return verdict, nil
}

func signalOf(score float64) domain.Recommendation {
	switch {
	case score > signalBuyThreshold:
		return domain.RecommendationBuy
	case score < signalSellThreshold:
		return domain.RecommendationSell
	default:
		return domain.RecommendationHold
	}
}

var _ domain.TechnicalAnalyst = (*TechnicalAnalyst)(nil)
