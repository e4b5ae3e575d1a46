package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DescriptionMaxLen is the hard cap applied to normalized descriptions.
const DescriptionMaxLen = 500

// Article is the canonical normalized form every provider payload is mapped
// into. Identity is the content fingerprint; articles are immutable once
// admitted by the aggregator.
type Article struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"content"`
	SourceName   string    `json:"source_name"`
	CanonicalURL string    `json:"canonical_url"`
	PublishedAt  time.Time `json:"published_at"`
	ImageURL     string    `json:"image_url,omitempty"`
	FirstSeenAt  time.Time `json:"first_seen_at"`
}

// ArticleDraft carries whatever fields a provider actually supplied.
// NormalizeArticle turns a draft into a canonical Article.
type ArticleDraft struct {
	Title        string
	Description  string
	Content      string
	SourceName   string
	CanonicalURL string
	ImageURL     string
	PublishedAt  time.Time // zero when the provider gave none or parsing failed
}

// NormalizeArticle applies the strict normalization rules:
// description truncated to DescriptionMaxLen and never null, content
// defaulting to description, published_at falling back to firstSeen,
// source_name falling back to the adapter's own name. A draft with neither
// title nor URL has no identity and is rejected.
func NormalizeArticle(d ArticleDraft, adapterName string, firstSeen time.Time) (Article, bool) {
	title := strings.TrimSpace(d.Title)
	url := strings.TrimSpace(d.CanonicalURL)
	if title == "" && url == "" {
		return Article{}, false
	}

	description := strings.TrimSpace(d.Description)
	if runes := []rune(description); len(runes) > DescriptionMaxLen {
		description = string(runes[:DescriptionMaxLen])
	}

	content := strings.TrimSpace(d.Content)
	if content == "" {
		content = description
	}

	source := strings.TrimSpace(d.SourceName)
	if source == "" {
		source = adapterName
	}

	publishedAt := d.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = firstSeen
	}

	a := Article{
		Title:        title,
		Description:  description,
		Content:      content,
		SourceName:   source,
		CanonicalURL: url,
		PublishedAt:  publishedAt.UTC(),
		ImageURL:     strings.TrimSpace(d.ImageURL),
		FirstSeenAt:  firstSeen.UTC(),
	}
	a.ID = NewFingerprintPolicy().Compute(a.Title, a.CanonicalURL)
	return a, true
}

// FingerprintPolicy defines the logic to compute a stable identity hash for
// an article. Same title+URL (normalized) -> same fingerprint, across
// providers and process restarts.
type FingerprintPolicy interface {
	Compute(title, canonicalURL string) string
}

type fingerprintPolicy struct{}

// NewFingerprintPolicy creates a new instance of the default FingerprintPolicy.
func NewFingerprintPolicy() FingerprintPolicy {
	return &fingerprintPolicy{}
}

// Compute returns the SHA-256 hash of the normalized title and URL.
// A null byte separates the components to avoid concatenation ambiguity.
func (p *fingerprintPolicy) Compute(title, canonicalURL string) string {
	normalizedTitle := strings.ToLower(strings.TrimSpace(title))
	normalizedURL := strings.TrimSpace(canonicalURL)

	content := normalizedTitle + "\x00" + normalizedURL

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
