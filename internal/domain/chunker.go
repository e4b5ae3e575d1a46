package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ChunkerVersion defines the version of the chunking algorithm.
// This allows for future upgrades while tracking which version was used.
type ChunkerVersion string

const (
	// ChunkerVersionV1 is the sentence-packing chunker.
	ChunkerVersionV1 ChunkerVersion = "v1"
)

// DefaultMaxChunkTokens bounds a chunk by its whitespace-token estimate.
const DefaultMaxChunkTokens = 512

// Chunker defines the interface for splitting an article into chunks.
type Chunker interface {
	Chunk(a Article) []Chunk
	Version() ChunkerVersion
}

type sentenceChunker struct {
	maxTokens int
}

// NewChunker creates the default sentence-packing Chunker. maxTokens <= 0
// selects DefaultMaxChunkTokens.
func NewChunker(maxTokens int) Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxChunkTokens
	}
	return &sentenceChunker{maxTokens: maxTokens}
}

func (c *sentenceChunker) Version() ChunkerVersion {
	return ChunkerVersionV1
}

// Chunk prepends the title to the body, splits into sentences, and
// greedy-packs whole sentences up to the token budget. A single sentence
// over the budget becomes one oversized chunk; sentences are never split.
// An article with an empty body yields no chunks.
func (c *sentenceChunker) Chunk(a Article) []Chunk {
	body := strings.TrimSpace(a.Content)
	if body == "" {
		return nil
	}

	text := strings.TrimSpace(a.Title) + "\n" + body
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	ref := RefOf(a)

	var chunks []Chunk
	var cur []string
	curTokens := 0

	emit := func() {
		if len(cur) == 0 {
			return
		}
		content := strings.Join(cur, " ")
		chunks = append(chunks, newChunk(a.ID, len(chunks), content, ref))
		cur = cur[:0]
		curTokens = 0
	}

	for _, s := range sentences {
		tokens := len(strings.Fields(s))
		if curTokens+tokens > c.maxTokens && len(cur) > 0 {
			emit()
		}
		cur = append(cur, s)
		curTokens += tokens
	}
	emit()

	return chunks
}

func newChunk(articleID string, ordinal int, text string, ref ArticleRef) Chunk {
	return Chunk{
		ID:            ChunkID{ArticleID: articleID, Ordinal: ordinal},
		Text:          text,
		SubjectTags:   ExtractSubjectTags(text),
		CharLength:    utf8.RuneCountInString(text),
		TokenEstimate: len(strings.Fields(text)),
		Ref:           ref,
	}
}

// splitSentences cuts text at runs of sentence terminators (. ! ?)
// followed by whitespace. Terminators stay attached to their sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)

		if !isSentenceTerminator(r) {
			continue
		}
		// Absorb a terminator run ("?!", "...") into the same sentence.
		for i+1 < len(runes) && isSentenceTerminator(runes[i+1]) {
			i++
			b.WriteRune(runes[i])
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
