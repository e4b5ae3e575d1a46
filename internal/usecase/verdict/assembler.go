// Package verdict assembles per-subject recommendations from retrieved news
// context and the analyst adapter chain, falling back to a deterministic
// heuristic when the decision adapter is unavailable.
package verdict

import (
	"context"
	"log/slog"
	"time"

	"market-intel/internal/apperr"
	"market-intel/internal/domain"
	"market-intel/internal/infra/logger"
	"market-intel/internal/infra/metrics"
	"market-intel/internal/usecase/market"
	"market-intel/internal/usecase/retrieval"
)

// Broadcaster pushes an assembled verdict to the subject's subscribers.
// Declared here so the assembler does not depend on the hub package.
type Broadcaster interface {
	BroadcastSubject(subject string, payload any)
}

// Assembler runs the full verdict chain for one subject: retrieve news
// context, score sentiment, read the technical picture, size the risk,
// decide. Safe for concurrent calls on different subjects.
type Assembler struct {
	retriever   *retrieval.Retriever
	sentiment   domain.SentimentAnalyst
	technical   domain.TechnicalAnalyst
	risk        domain.RiskAnalyst
	decision    domain.DecisionMaker
	registry    *market.Registry
	broadcaster Broadcaster // nil when push is disabled
	retrieveK   int
	logger      *slog.Logger
}

func NewAssembler(
	retriever *retrieval.Retriever,
	sentiment domain.SentimentAnalyst,
	technical domain.TechnicalAnalyst,
	risk domain.RiskAnalyst,
	decision domain.DecisionMaker,
	registry *market.Registry,
	broadcaster Broadcaster,
	retrieveK int,
	logger *slog.Logger,
) *Assembler {
	if retrieveK <= 0 {
		retrieveK = 5
	}
	return &Assembler{
		retriever:   retriever,
		sentiment:   sentiment,
		technical:   technical,
		risk:        risk,
		decision:    decision,
		registry:    registry,
		broadcaster: broadcaster,
		retrieveK:   retrieveK,
		logger:      logger,
	}
}

// Assemble produces the verdict for subject. Adapter errors never abort:
// analyst failures downgrade to neutral verdicts and a decision failure
// downgrades to the score-weighted heuristic.
func (a *Assembler) Assemble(ctx context.Context, subject string) domain.Verdict {
	start := time.Now()
	log := logger.WithContext(ctx, a.logger)

	results := a.retriever.Retrieve(ctx, retrievalQuery(subject), a.retrieveK)
	chunks := make([]domain.Chunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}

	sentiment, err := a.sentiment.Analyze(ctx, subject, chunks)
	if err != nil {
		log.Warn("sentiment_analysis_failed", "subject", subject,
			"error_code", string(apperr.CodeOf(err)), "error", err.Error())
		sentiment = domain.NeutralSentiment()
	}
	sentiment.Score = domain.ClampScore(sentiment.Score)
	sentiment.Label = domain.SentimentLabelFromScore(sentiment.Score)

	technical, err := a.technical.Analyze(ctx, subject)
	if err != nil {
		log.Warn("technical_analysis_failed", "subject", subject, "error", err.Error())
		technical = domain.NeutralTechnical()
	}

	risk, err := a.risk.Assess(ctx, subject, technical)
	if err != nil {
		log.Warn("risk_assessment_failed", "subject", subject, "error", err.Error())
		risk = domain.NeutralRisk()
	}

	driver := "llm"
	decision, err := a.decision.Decide(ctx, subject, sentiment, technical, risk)
	if err != nil {
		log.Warn("decision_failed_using_heuristic", "subject", subject,
			"error_code", string(apperr.CodeOf(err)), "error", err.Error())
		decision = HeuristicDecision(sentiment, technical)
		driver = "heuristic"
	}
	metrics.VerdictTotal.WithLabelValues(driver).Inc()

	now := time.Now().UTC()
	v := domain.Verdict{
		Subject:        subject,
		Timestamp:      now,
		Recommendation: decision.Recommendation,
		Confidence:     decision.Confidence * 100,
		SentimentScore: sentiment.Score,
		SentimentLabel: sentiment.Label,
		TechnicalScore: technical.Score,
		RiskScore:      risk.Score,
		RiskLevel:      risk.Level,
		PrimaryDriver:  decision.PrimaryDriver,
		KeyFactors:     buildKeyFactors(decision, sentiment, technical),
		Sources:        buildSources(chunks),
		LatencyMS:      time.Since(start).Milliseconds(),
	}

	a.registry.Update(domain.SubjectState{
		Subject:     subject,
		Score:       sentiment.Score,
		Label:       sentiment.Label,
		LastUpdated: now,
	})

	if a.broadcaster != nil {
		a.broadcaster.BroadcastSubject(subject, v)
	}

	log.Info("verdict_assembled",
		"subject", subject,
		"recommendation", string(v.Recommendation),
		"driver", driver,
		"sources", len(v.Sources),
		"latency_ms", v.LatencyMS)

	return v
}

// Recompute is the subject router entry point: assemble and push, discarding
// the verdict itself.
func (a *Assembler) Recompute(ctx context.Context, subject string) {
	a.Assemble(ctx, subject)
}

// retrievalQuery builds the fixed-shape retrieval query for a subject. The
// market-wide pseudo-subject gets a plain market query instead of its
// sentinel spelling.
func retrievalQuery(subject string) string {
	if subject == domain.MarketSubject {
		return "stock market news"
	}
	return subject + " stock news"
}

const (
	maxKeyFactors = 5
	maxSources    = 5
)

// buildKeyFactors merges the decision reasoning with the strongest sentiment
// factors and technical signals.
func buildKeyFactors(decision domain.DecisionVerdict, sentiment domain.SentimentVerdict, technical domain.TechnicalVerdict) []string {
	factors := make([]string, 0, maxKeyFactors)
	if decision.Reasoning != "" {
		factors = append(factors, decision.Reasoning)
	}
	for _, f := range sentiment.KeyFactors {
		if len(factors) >= maxKeyFactors || len(factors) >= 3 {
			break
		}
		factors = append(factors, f)
	}
	for _, s := range technical.KeySignals {
		if len(factors) >= maxKeyFactors {
			break
		}
		factors = append(factors, s)
	}
	return factors
}

// buildSources returns the deduped article refs behind the retrieved chunks.
func buildSources(chunks []domain.Chunk) []domain.ArticleRef {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]domain.ArticleRef, 0, maxSources)
	for _, c := range chunks {
		if _, ok := seen[c.Ref.ArticleID]; ok {
			continue
		}
		seen[c.Ref.ArticleID] = struct{}{}
		sources = append(sources, c.Ref)
		if len(sources) >= maxSources {
			break
		}
	}
	return sources
}
