// Package source holds the provider adapters of the news pipeline. Each
// adapter is a capability record: a name, a Fetch that maps the provider's
// wire format to the canonical article shape, and its own rate-limit state.
// Transport failures never escape an adapter; they are logged and surfaced
// as an empty result so the aggregator's tick always advances.
package source

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DefaultSymbols is the rotation used by symbol-requiring adapters when the
// query is not itself a subject symbol.
var DefaultSymbols = []string{"AAPL", "MSFT", "GOOGL", "TSLA", "NVDA"}

// symbolOf extracts a subject symbol from a free-text query, or "" when the
// query is general. One-letter tickers are accepted here: providers list
// them even though they are too short to be routing subjects.
func symbolOf(query string) string {
	q := strings.ToUpper(strings.TrimSpace(query))
	if len(q) < 1 || len(q) > 5 {
		return ""
	}
	for _, r := range q {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return q
}

// compactTimeLayouts cover provider formats dateparse trips on, most
// notably the 20060102T150405 shape used by sentiment-tagged feeds.
var compactTimeLayouts = []string{
	"20060102T150405",
	"20060102T1504",
}

// parseProviderTime parses whatever timestamp shape a provider reports.
// Returns the zero time on failure; normalization then falls back to
// first_seen_at.
func parseProviderTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range compactTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
