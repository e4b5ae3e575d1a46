package domain_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-intel/internal/domain"
)

func TestNormalizeArticle_AppliesDefaultsAndTruncation(t *testing.T) {
	firstSeen := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	longDescription := strings.Repeat("x", domain.DescriptionMaxLen+100)

	a, ok := domain.NormalizeArticle(domain.ArticleDraft{
		Title:        "  Apple beats expectations  ",
		Description:  longDescription,
		CanonicalURL: "https://example.com/apple",
	}, "newsapi", firstSeen)
	require.True(t, ok)

	assert.Equal(t, "Apple beats expectations", a.Title)
	assert.Len(t, a.Description, domain.DescriptionMaxLen)
	assert.Equal(t, a.Description, a.Content, "empty content defaults to description")
	assert.Equal(t, "newsapi", a.SourceName, "empty source falls back to the adapter name")
	assert.Equal(t, firstSeen, a.PublishedAt, "zero published_at falls back to first seen")
	assert.Equal(t, firstSeen, a.FirstSeenAt)
	assert.NotEmpty(t, a.ID)
}

func TestNormalizeArticle_TruncatesDescriptionOnRuneBoundaries(t *testing.T) {
	a, ok := domain.NormalizeArticle(domain.ArticleDraft{
		Title:       "Übernahme abgeschlossen",
		Description: strings.Repeat("é", domain.DescriptionMaxLen+50),
	}, "rss", time.Now().UTC())
	require.True(t, ok)

	assert.Equal(t, domain.DescriptionMaxLen, utf8.RuneCountInString(a.Description),
		"the cap counts characters, not bytes")
	assert.True(t, utf8.ValidString(a.Description), "truncation never splits a rune")
}

func TestNormalizeArticle_RejectsDraftWithoutIdentity(t *testing.T) {
	_, ok := domain.NormalizeArticle(domain.ArticleDraft{
		Title:        "   ",
		CanonicalURL: "",
		Description:  "body without identity",
	}, "newsapi", time.Now())
	assert.False(t, ok)
}

func TestNormalizeArticle_TitleOnlyAndURLOnlyAreAccepted(t *testing.T) {
	now := time.Now().UTC()

	_, ok := domain.NormalizeArticle(domain.ArticleDraft{Title: "headline only"}, "rss", now)
	assert.True(t, ok)

	_, ok = domain.NormalizeArticle(domain.ArticleDraft{CanonicalURL: "https://example.com/x"}, "rss", now)
	assert.True(t, ok)
}

func TestFingerprint_StableAcrossProvidersAndCase(t *testing.T) {
	policy := domain.NewFingerprintPolicy()

	base := policy.Compute("Apple Beats Expectations", "https://example.com/apple")
	assert.Equal(t, base, policy.Compute("  apple beats expectations ", "https://example.com/apple"),
		"title is case-folded and trimmed")
	assert.NotEqual(t, base, policy.Compute("Apple Beats Expectations", "https://example.com/APPLE"),
		"url is trimmed but case-sensitive")
	assert.NotEqual(t, base, policy.Compute("Apple Beats", "Expectations https://example.com/apple"),
		"separator prevents concatenation collisions")
}

func TestFingerprint_DrivesCrossSourceIdentity(t *testing.T) {
	firstSeen := time.Now().UTC()
	draft := domain.ArticleDraft{
		Title:        "Tesla misses delivery estimates",
		CanonicalURL: "https://example.com/tsla",
	}

	fromNewsAPI, ok := domain.NormalizeArticle(draft, "newsapi", firstSeen)
	require.True(t, ok)
	fromRSS, ok := domain.NormalizeArticle(draft, "rss", firstSeen.Add(time.Minute))
	require.True(t, ok)

	assert.Equal(t, fromNewsAPI.ID, fromRSS.ID)
}
