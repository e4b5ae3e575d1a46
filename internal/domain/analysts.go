package domain

import "context"

// The four verdict adapters. Each is a pure call from the core's point of
// view: structured verdict or error. Errors never abort assembly; the
// assembler downgrades to the deterministic heuristic fallback.

// SentimentAnalyst scores the retrieved news context for a subject.
type SentimentAnalyst interface {
	Analyze(ctx context.Context, subject string, chunks []Chunk) (SentimentVerdict, error)
}

// TechnicalAnalyst derives a signal from the subject's price action.
type TechnicalAnalyst interface {
	Analyze(ctx context.Context, subject string) (TechnicalVerdict, error)
}

// RiskAnalyst sizes the risk of acting on the technical picture.
type RiskAnalyst interface {
	Assess(ctx context.Context, subject string, technical TechnicalVerdict) (RiskVerdict, error)
}

// DecisionMaker combines the upstream verdicts into a final recommendation.
type DecisionMaker interface {
	Decide(ctx context.Context, subject string, sentiment SentimentVerdict, technical TechnicalVerdict, risk RiskVerdict) (DecisionVerdict, error)
}
