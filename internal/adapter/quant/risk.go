package quant

import (
	"context"
	"log/slog"
	"math"

	"market-intel/internal/domain"
)

const (
	// annualization converts daily volatility to annualized (252 trading days).
	annualization = 15.874507866387544

	defaultDailyVol = 0.02
	minVolPoints    = 10

	rsiStressHigh = 75.0
	rsiStressLow  = 25.0
	stressFactor  = 1.5

	dailyVolHigh   = 0.04
	dailyVolMedium = 0.02
	riskScoreCap   = 0.04
)

// RiskAnalyst sizes positions from historical volatility: standard deviation
// of daily log returns, amplified when the technical picture shows RSI
// stress.
type RiskAnalyst struct {
	feed   domain.PriceFeed // nil falls back to the baseline volatility
	logger *slog.Logger
}

func NewRiskAnalyst(feed domain.PriceFeed, logger *slog.Logger) *RiskAnalyst {
	return &RiskAnalyst{feed: feed, logger: logger}
}

func (a *RiskAnalyst) Assess(ctx context.Context, subject string, technical domain.TechnicalVerdict) (domain.RiskVerdict, error) {
	vol := a.dailyVolatility(ctx, subject)

	if rsi, ok := technical.Indicators["rsi"]; ok && (rsi > rsiStressHigh || rsi < rsiStressLow) {
		vol *= stressFactor
	}

	var level domain.RiskLevel
	switch {
	case vol > dailyVolHigh:
		level = domain.RiskHigh
	case vol > dailyVolMedium:
		level = domain.RiskMedium
	default:
		level = domain.RiskLow
	}

	verdict := domain.RiskVerdict{
		Level:                 level,
		Score:                 math.Min(1.0, vol/riskScoreCap),
		VolatilityDaily:       vol,
		VolatilityAnnualized:  vol * annualization,
		SuggestedPositionSize: positionSize(level),
		StopLossPct:           vol * 2,
	}

	a.logger.Debug("risk_assessment_completed",
		slog.String("subject", subject),
		slog.String("level", string(level)),
		slog.Float64("daily_volatility", vol))

	return verdict, nil
}

// dailyVolatility measures realized volatility, falling back to the baseline
// when no usable history exists.
func (a *RiskAnalyst) dailyVolatility(ctx context.Context, subject string) float64 {
	if a.feed == nil {
		return defaultDailyVol
	}

	candles, err := a.feed.Daily(ctx, subject, lookbackDays)
	if err != nil {
		a.logger.Warn("volatility_fetch_failed",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		return defaultDailyVol
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	vol, ok := DailyVolatility(closes, minVolPoints)
	if !ok {
		return defaultDailyVol
	}
	return vol
}

func positionSize(level domain.RiskLevel) float64 {
	switch level {
	case domain.RiskLow:
		return 0.05
	case domain.RiskMedium:
		return 0.03
	default:
		return 0.01
	}
}

var _ domain.RiskAnalyst = (*RiskAnalyst)(nil)
