package domain

import "time"

// Frame type discriminators on the push channel. Verdict frames carry no
// envelope: they are the Verdict document itself, exactly as served by the
// synchronous query path.
const (
	FrameTypeMarketUpdate  = "market_update"
	FrameTypeMetricsUpdate = "metrics_update"
)

// MarketUpdateEntry is one subject's latest score inside a market_update frame.
type MarketUpdateEntry struct {
	Subject string    `json:"subject"`
	Score   float64   `json:"score"`
	Updated time.Time `json:"updated"`
}

// MarketUpdateFrame broadcasts subject-state deltas to every sink.
type MarketUpdateFrame struct {
	Type string              `json:"type"`
	Data []MarketUpdateEntry `json:"data"`
}

// NewMarketUpdateFrame wraps entries in the market_update envelope.
func NewMarketUpdateFrame(entries []MarketUpdateEntry) MarketUpdateFrame {
	return MarketUpdateFrame{Type: FrameTypeMarketUpdate, Data: entries}
}

// MetricsData is the payload of a metrics_update frame.
type MetricsData struct {
	IndexingLatencyMS float64 `json:"indexing_latency_ms"`
	TotalDocs         int     `json:"total_docs"`
}

// MetricsUpdateFrame broadcasts ingest health to every sink.
type MetricsUpdateFrame struct {
	Type string      `json:"type"`
	Data MetricsData `json:"data"`
}

// NewMetricsUpdateFrame wraps metrics in the metrics_update envelope.
func NewMetricsUpdateFrame(data MetricsData) MetricsUpdateFrame {
	return MetricsUpdateFrame{Type: FrameTypeMetricsUpdate, Data: data}
}
