package quant_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-intel/internal/adapter/quant"
	"market-intel/internal/domain"
)

func TestRiskAnalyst_BaselineWithoutAFeed(t *testing.T) {
	analyst := quant.NewRiskAnalyst(nil, slog.Default())

	verdict, err := analyst.Assess(context.Background(), "AAPL", domain.TechnicalVerdict{})
	require.NoError(t, err)

	assert.Equal(t, domain.RiskLow, verdict.Level)
	assert.Equal(t, 0.02, verdict.VolatilityDaily)
	assert.Equal(t, 0.5, verdict.Score, "baseline volatility sits mid-scale")
	assert.Equal(t, 0.05, verdict.SuggestedPositionSize)
	assert.Equal(t, 0.04, verdict.StopLossPct)
	assert.InDelta(t, 0.3175, verdict.VolatilityAnnualized, 0.0001)
}

func TestRiskAnalyst_RSIStressAmplifiesVolatility(t *testing.T) {
	analyst := quant.NewRiskAnalyst(nil, slog.Default())
	technical := domain.TechnicalVerdict{Indicators: map[string]float64{"rsi": 80}}

	verdict, err := analyst.Assess(context.Background(), "AAPL", technical)
	require.NoError(t, err)

	assert.InDelta(t, 0.03, verdict.VolatilityDaily, 1e-9, "baseline 0.02 times the stress factor")
	assert.Equal(t, domain.RiskMedium, verdict.Level)
	assert.InDelta(t, 0.75, verdict.Score, 1e-9)
	assert.Equal(t, 0.03, verdict.SuggestedPositionSize)
	assert.InDelta(t, 0.06, verdict.StopLossPct, 1e-9)
}

func TestRiskAnalyst_MidRangeRSIDoesNotStress(t *testing.T) {
	analyst := quant.NewRiskAnalyst(nil, slog.Default())
	technical := domain.TechnicalVerdict{Indicators: map[string]float64{"rsi": 55}}

	verdict, err := analyst.Assess(context.Background(), "AAPL", technical)
	require.NoError(t, err)
	assert.Equal(t, 0.02, verdict.VolatilityDaily)
}

func TestRiskAnalyst_VolatileHistoryIsHighRisk(t *testing.T) {
	// Alternating 100/120 closes: realized daily volatility well above the
	// high-risk threshold.
	closes := []float64{100}
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			closes = append(closes, 120)
		} else {
			closes = append(closes, 100)
		}
	}
	feed := &stubFeed{candles: candlesFrom(closes)}
	analyst := quant.NewRiskAnalyst(feed, slog.Default())

	verdict, err := analyst.Assess(context.Background(), "TSLA", domain.TechnicalVerdict{})
	require.NoError(t, err)

	expectedVol := math.Log(1.2) * math.Sqrt(10.0/9.0)
	assert.InDelta(t, expectedVol, verdict.VolatilityDaily, 1e-9)
	assert.Equal(t, domain.RiskHigh, verdict.Level)
	assert.Equal(t, 1.0, verdict.Score, "score caps at 1")
	assert.Equal(t, 0.01, verdict.SuggestedPositionSize)
}

func TestRiskAnalyst_FeedErrorFallsBackToBaseline(t *testing.T) {
	feed := &stubFeed{err: errors.New("service down")}
	analyst := quant.NewRiskAnalyst(feed, slog.Default())

	verdict, err := analyst.Assess(context.Background(), "AAPL", domain.TechnicalVerdict{})
	require.NoError(t, err, "risk assessment never fails outright")
	assert.Equal(t, 0.02, verdict.VolatilityDaily)
}

func TestRiskAnalyst_ThinHistoryFallsBackToBaseline(t *testing.T) {
	feed := &stubFeed{candles: candlesFrom([]float64{100, 101, 102})}
	analyst := quant.NewRiskAnalyst(feed, slog.Default())

	verdict, err := analyst.Assess(context.Background(), "AAPL", domain.TechnicalVerdict{})
	require.NoError(t, err)
	assert.Equal(t, 0.02, verdict.VolatilityDaily)
}
