package source_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-intel/internal/adapter/source"
)

const companyNewsPayload = `[
	{
		"headline": "Apple expands services",
		"summary": "Services revenue grew again.",
		"source": "Finnhub",
		"url": "https://example.com/apple-services",
		"image": "https://example.com/apple.png",
		"datetime": 1755950400
	},
	{
		"headline": "",
		"summary": "dropped, no identity",
		"url": "",
		"datetime": 0
	}
]`

func TestCompanyNews_SymbolQueryFetchesThatSymbolOnly(t *testing.T) {
	var mu sync.Mutex
	var symbols []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		symbols = append(symbols, r.URL.Query().Get("symbol"))
		mu.Unlock()
		assert.Equal(t, "token-1", r.URL.Query().Get("token"))
		assert.Equal(t, "/api/v1/company-news", r.URL.Path)
		_, _ = w.Write([]byte(companyNewsPayload))
	}))
	defer server.Close()

	src := source.NewCompanyNewsSource("token-1", server.URL, []string{"AAPL", "MSFT"}, server.Client(), slog.Default())

	articles := src.Fetch(context.Background(), "aapl")
	require.Len(t, articles, 1)
	assert.Equal(t, "Apple expands services", articles[0].Title)
	assert.Equal(t, "Finnhub", articles[0].SourceName)
	assert.False(t, articles[0].PublishedAt.IsZero())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"AAPL"}, symbols, "a symbol query skips the default rotation")
}

func TestCompanyNews_GeneralQueryUsesConfiguredRotation(t *testing.T) {
	var mu sync.Mutex
	var symbols []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		symbols = append(symbols, r.URL.Query().Get("symbol"))
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	src := source.NewCompanyNewsSource("token-1", server.URL, []string{"NVDA"}, server.Client(), slog.Default())

	assert.Empty(t, src.Fetch(context.Background(), "latest market roundup"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"NVDA"}, symbols)
}

func TestCompanyNews_AuthRejectionDisablesAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	src := source.NewCompanyNewsSource("revoked", server.URL, []string{"AAPL"}, server.Client(), slog.Default())

	assert.Empty(t, src.Fetch(context.Background(), "AAPL"))
	assert.False(t, src.Enabled())
}

func TestCompanyNews_MalformedPayloadYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer server.Close()

	src := source.NewCompanyNewsSource("token-1", server.URL, []string{"AAPL"}, server.Client(), slog.Default())

	assert.Empty(t, src.Fetch(context.Background(), "AAPL"))
	assert.True(t, src.Enabled())
}
