package source_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-intel/internal/adapter/source"
)

const rssPayload = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Markets</title>
    <item>
      <title>TSLA slides on delivery miss</title>
      <link>https://example.com/tsla-slides</link>
      <description>&lt;p&gt;Shares fell &lt;b&gt;5%&lt;/b&gt; after the report.&lt;/p&gt;</description>
      <pubDate>Wed, 20 Aug 2026 12:30:00 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <link></link>
      <description>no identity, dropped</description>
    </item>
  </channel>
</rss>`

func TestPublicFeed_FetchParsesAndSanitizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssPayload))
	}))
	defer server.Close()

	src := source.NewPublicFeedSource([]string{server.URL + "/feed"}, server.Client(), slog.Default())

	articles := src.Fetch(context.Background(), "")
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, "TSLA slides on delivery miss", a.Title)
	assert.Equal(t, "Example Markets", a.SourceName)
	assert.NotContains(t, a.Description, "<p>", "html is stripped before normalization")
	assert.NotContains(t, a.Description, "<b>")
	assert.Contains(t, a.Description, "Shares fell")
	assert.Equal(t, 2026, a.PublishedAt.Year())
}

func TestPublicFeed_HostIntervalSkipsRepeatPolls(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(rssPayload))
	}))
	defer server.Close()

	src := source.NewPublicFeedSource([]string{server.URL + "/feed"}, server.Client(), slog.Default())

	require.Len(t, src.Fetch(context.Background(), ""), 1)
	assert.Empty(t, src.Fetch(context.Background(), ""), "same host inside the interval is skipped")
	assert.Equal(t, int32(1), hits.Load())
}

func TestPublicFeed_UnreachableFeedYieldsEmpty(t *testing.T) {
	src := source.NewPublicFeedSource([]string{"http://127.0.0.1:1/feed"}, http.DefaultClient, slog.Default())
	assert.Empty(t, src.Fetch(context.Background(), ""))
}

func TestPublicFeed_NoFeedsConfigured(t *testing.T) {
	src := source.NewPublicFeedSource(nil, http.DefaultClient, slog.Default())
	assert.False(t, src.Enabled())
	assert.Empty(t, src.Fetch(context.Background(), ""))
	assert.Equal(t, "public-feed", src.Name())
}
